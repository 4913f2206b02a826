package pathfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paths = []string{"/events/Energy", "/events/tof", "/quality/valid", "/calib/energy_scale", "/a+b/x"}

func TestEmptyPatternIsIdentity(t *testing.T) {
	for _, in := range [][]string{nil, {}, paths, {"", "/"}} {
		got, err := Apply(in, "")
		require.NoError(t, err)
		assert.Equal(t, in, got)
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		pattern string
		want    []string
	}{
		{"energy", []string{"/events/Energy", "/calib/energy_scale"}},
		{"ENERGY", []string{"/events/Energy", "/calib/energy_scale"}},
		{"^/events/", []string{"/events/Energy", "/events/tof"}},
		{"t.f$", []string{"/events/tof"}},
		{"valid|tof", []string{"/events/tof", "/quality/valid"}},
		{"nothing", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := Apply(paths, tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResultIsOrderedSubsequence(t *testing.T) {
	got, err := Apply(paths, "e")
	require.NoError(t, err)
	j := 0
	for _, p := range got {
		for j < len(paths) && paths[j] != p {
			j++
		}
		require.Less(t, j, len(paths), "%s out of order", p)
		j++
	}
}

func TestCaseSensitive(t *testing.T) {
	got, err := New(CaseSensitive()).Apply(paths, "Energy")
	require.NoError(t, err)
	assert.Equal(t, []string{"/events/Energy"}, got)
}

func TestInvalidPattern(t *testing.T) {
	_, err := Apply(paths, "a+(b")
	var pe *PatternError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "a+(b", pe.Pattern)
}

func TestInvalidPatternSubstringFallback(t *testing.T) {
	got, err := New(OnInvalid(Substring)).Apply(paths, "A+B/(")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = New(OnInvalid(Substring)).Apply([]string{"/x/(a", "/y"}, "(A")
	require.NoError(t, err)
	assert.Equal(t, []string{"/x/(a"}, got)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("substring")
	require.NoError(t, err)
	assert.Equal(t, Substring, p)
	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Reject, p)
	_, err = ParsePolicy("maybe")
	assert.Error(t, err)
}
