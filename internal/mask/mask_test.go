package mask

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5view/internal/container"
	"github.com/robert-malhotra/h5view/internal/expr"
	"github.com/robert-malhotra/h5view/internal/fixture"
)

func source(f *container.MemFile) *container.Memory {
	return container.NewMemory().Add("f", f)
}

func TestLoadAppliesValidity(t *testing.T) {
	src := source(container.NewMemFile().
		Dataset("/x", []float64{1, 2, 3, 4, 5}).
		BoolDataset("/quality/valid", []bool{true, false, true, true, false}))

	res, err := New(src).Load("f", "/x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, res.Raw)
	assert.Equal(t, []float64{1, 3, 4}, res.Base)
	assert.Equal(t, ValidityApplied, res.Validity)
	assert.Equal(t, []uint64{5}, res.Shape)
	assert.Zero(t, src.Handles())
}

func TestLoadFallsBackSilently(t *testing.T) {
	raw := []float64{1, 2, 3, 4, 5}
	tests := []struct {
		name string
		file *container.MemFile
		want Validity
	}{
		{"absent", container.NewMemFile().Dataset("/x", raw), ValidityAbsent},
		{"not boolean", container.NewMemFile().Dataset("/x", raw).Dataset("/quality/valid", []float64{1, 0, 2, 1, 1}), ValidityNotBoolean},
		{"length mismatch", container.NewMemFile().Dataset("/x", raw).BoolDataset("/quality/valid", []bool{true, false}), ValidityLengthMismatch},
		{"unreadable", container.NewMemFile().Dataset("/x", raw).
			BoolDataset("/quality/valid", []bool{true, true, true, true, true}).
			FailRead("/quality/valid", errors.New("bad chunk")), ValidityUnreadable},
		{"group at path", container.NewMemFile().Dataset("/x", raw).Group("/quality/valid"), ValidityUnreadable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(source(tt.file)).Load("f", "/x")
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Validity)
			assert.Equal(t, res.Raw, res.Base)
		})
	}
}

func TestLoadDisabledValidity(t *testing.T) {
	src := source(container.NewMemFile().
		Dataset("/x", []float64{1, 2}).
		BoolDataset("/quality/valid", []bool{true, false}))

	res, err := New(src, WithValidityPath("")).Load("f", "/x")
	require.NoError(t, err)
	assert.Equal(t, ValidityDisabled, res.Validity)
	assert.Equal(t, []float64{1, 2}, res.Base)
}

func TestLoadCustomValidityPath(t *testing.T) {
	src := source(container.NewMemFile().
		Dataset("/x", []float64{1, 2, 3}).
		BoolDataset("/meta/ok", []bool{false, true, true}))

	p := New(src, WithValidityPath("/meta/ok"))
	assert.Equal(t, "/meta/ok", p.ValidityPath())
	res, err := p.Load("f", "/x")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, res.Base)
}

func TestBaseDoesNotAliasRaw(t *testing.T) {
	res, err := New(source(container.NewMemFile().Dataset("/x", []float64{1, 2}))).Load("f", "/x")
	require.NoError(t, err)
	res.Base[0] = 42
	assert.Equal(t, 1.0, res.Raw[0])
}

func TestLoadReadError(t *testing.T) {
	src := source(container.NewMemFile().Dataset("/x", []float64{1}))
	_, err := New(src).Load("f", "/missing")
	var re *container.ReadError
	require.ErrorAs(t, err, &re)
	assert.Zero(t, src.Handles())
}

func TestFilter(t *testing.T) {
	src := source(container.NewMemFile().
		Dataset("/x", []float64{1, 2, 3, 4, 5}).
		Dataset("/w", []float64{10, 20, 30, 40, 50}).
		BoolDataset("/quality/valid", []bool{true, false, true, true, false}))
	p := New(src)

	base, err := p.Load("f", "/x")
	require.NoError(t, err)

	e, err := expr.Parse("x > 2")
	require.NoError(t, err)
	out, err := p.Filter("f", base.Base, "/x", e)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, out)

	// condition on another dataset selects the same positions
	e, err = expr.Parse("w >= 30")
	require.NoError(t, err)
	out, err = p.Filter("f", base.Base, "/w", e)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, out)
}

func TestFilterLengthMismatch(t *testing.T) {
	src := source(container.NewMemFile().
		Dataset("/x", []float64{1, 2, 3}).
		Dataset("/short", []float64{1, 2}))
	p := New(src)

	e, err := expr.Parse("short > 0")
	require.NoError(t, err)
	_, err = p.Filter("f", []float64{1, 2, 3}, "/short", e)
	var ee *expr.Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "short > 0", ee.Expression)
}

func TestSelect(t *testing.T) {
	assert.Equal(t, []float64{}, Select(nil, nil))
	assert.Equal(t, []float64{2}, Select([]float64{1, 2}, []bool{false, true}))
}

func TestLoadHDF5(t *testing.T) {
	file := filepath.Join(t.TempDir(), "masked.h5")
	require.NoError(t, fixture.Write(file,
		fixture.Dataset("/data/x", []float64{1, 2, 3, 4, 5}),
		fixture.Dataset("/quality/valid", []uint8{1, 0, 1, 1, 0}),
	))

	res, err := New(container.HDF5{}).Load(file, "/data/x")
	require.NoError(t, err)
	assert.Equal(t, ValidityApplied, res.Validity)
	assert.Equal(t, []float64{1, 3, 4}, res.Base)
}

func TestValidityString(t *testing.T) {
	assert.Equal(t, "applied", ValidityApplied.String())
	assert.Equal(t, "length-mismatch", ValidityLengthMismatch.String())
	assert.Equal(t, "validity(99)", Validity(99).String())
}
