package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5view/internal/fixture"
)

func sample(t *testing.T) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, runGenerate([]string{t.TempDir()}, &out))
	path := strings.TrimSpace(out.String())
	require.Equal(t, fixture.SampleName, filepath.Base(path))
	return path
}

func TestTree(t *testing.T) {
	file := sample(t)

	var out bytes.Buffer
	require.NoError(t, runTree([]string{file}, &out))
	text := out.String()
	assert.True(t, strings.HasPrefix(text, "/\n"), text)
	assert.Contains(t, text, "  /events/\n")
	assert.Contains(t, text, "    energy\n")
	assert.Contains(t, text, "    /calibration/history/\n")

	out.Reset()
	require.NoError(t, runTree([]string{"-v", file}, &out))
	assert.Contains(t, out.String(), "dataset /events/energy [500] float/8 @units")
	assert.Contains(t, out.String(), "dataset /events/channel [500] integer/4")

	out.Reset()
	require.NoError(t, runTree([]string{"-attrs", file}, &out))
	assert.Equal(t, "/events/energy@units = keV\n", out.String())
}

func TestHist(t *testing.T) {
	file := sample(t)
	png := filepath.Join(t.TempDir(), "energy.png")

	var out bytes.Buffer
	require.NoError(t, runHist([]string{"-bins", "5", "-filter", "channel >= 32", "-png", png, file, "/events/energy"}, &out))
	text := out.String()
	assert.Contains(t, text, "raw=500 base=400")
	assert.Contains(t, text, "validity=applied")
	assert.Contains(t, text, `filter "channel >= 32" on /events/channel`)
	assert.Contains(t, text, "data_length=")
	assert.Equal(t, 5+4, strings.Count(text, "\n"))

	info, err := os.Stat(png)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestHistNoValidity(t *testing.T) {
	file := sample(t)
	var out bytes.Buffer
	require.NoError(t, runHist([]string{"-validity", "", "-bins", "3", file, "/events/tof"}, &out))
	assert.Contains(t, out.String(), "raw=500 base=500 filtered=500 validity=disabled")
}

func TestArguments(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, runTree(nil, &out))
	assert.Error(t, runHist([]string{"only-file"}, &out))
	assert.Error(t, runGenerate([]string{"a", "b"}, &out))
}
