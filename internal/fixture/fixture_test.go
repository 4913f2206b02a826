package fixture

import (
	"path/filepath"
	"testing"

	"github.com/robert-malhotra/go-hdf5/hdf5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRoundTrip(t *testing.T) {
	file := filepath.Join(t.TempDir(), "round.h5")
	require.NoError(t, Write(file,
		Entry{Path: "/labelled", Data: []uint8{1}, Attrs: map[string]interface{}{
			"scale": 1.5,
			"name":  "trigger",
		}},
		Dataset("/a/b/c/ints", []int32{-3, 0, 7}),
		Dataset("/a/floats", []float64{0.5, 1.5}),
		Dataset("/a/b/shorts", []uint16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}),
		Dataset("/single", []float32{1, 2, 3}),
		Group("/empty"),
	))

	f, err := hdf5.Open(file)
	require.NoError(t, err)
	defer f.Close()

	var paths []string
	require.NoError(t, hdf5.Walk(f.Root(), func(path string, obj interface{}, err error) error {
		require.NoError(t, err)
		paths = append(paths, path)
		return nil
	}))
	assert.ElementsMatch(t, []string{
		"/", "/a", "/a/b", "/a/b/c", "/a/b/c/ints", "/a/floats", "/a/b/shorts",
		"/single", "/labelled", "/empty",
	}, paths)

	read := func(path string) []float64 {
		ds, err := f.OpenDataset(path)
		require.NoError(t, err, path)
		v, err := ds.ReadFloat64()
		require.NoError(t, err, path)
		return v
	}
	assert.Equal(t, []float64{-3, 0, 7}, read("/a/b/c/ints"))
	assert.Equal(t, []float64{0.5, 1.5}, read("/a/floats"))
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, read("/a/b/shorts"))
	assert.Equal(t, []float64{1, 2, 3}, read("/single"))
	assert.Equal(t, []float64{1}, read("/labelled"))

	ds, err := f.OpenDataset("/labelled")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"scale", "name"}, ds.Attrs())

	scale, err := ds.Attr("scale").ReadScalarFloat64()
	require.NoError(t, err)
	assert.Equal(t, 1.5, scale)
	name, err := ds.Attr("name").ReadScalarString()
	require.NoError(t, err)
	assert.Equal(t, "trigger", name)
}

// Members of groups two or more levels deep must stay reachable after
// later siblings are added higher up.
func TestWriteDeepGroupsKeepMembers(t *testing.T) {
	file := filepath.Join(t.TempDir(), "deep.h5")
	require.NoError(t, Write(file,
		Dataset("/A/B/y", []float64{3}),
		Dataset("/A/B/C/z", []float64{4}),
		Dataset("/A/x", []float64{1, 2}),
		Dataset("/top", []float64{5}),
	))

	f, err := hdf5.Open(file)
	require.NoError(t, err)
	defer f.Close()

	b, err := f.OpenGroup("A/B")
	require.NoError(t, err)
	members, err := b.Members()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"y", "C"}, members)

	ds, err := f.OpenDataset("A/B/C/z")
	require.NoError(t, err)
	v, err := ds.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, []float64{4}, v)
}

func TestWriteRejectsUnsupported(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.h5")
	err := Write(file, Dataset("/bad", []chan int{nil}))
	assert.Error(t, err)
}

func TestWriteRejectsSecondAttributedEntry(t *testing.T) {
	file := filepath.Join(t.TempDir(), "attrs.h5")
	err := Write(file,
		Entry{Path: "/a", Data: []float64{1}, Attrs: map[string]interface{}{"k": 1.0}},
		Entry{Path: "/b", Data: []float64{2}, Attrs: map[string]interface{}{"k": 2.0}},
	)
	assert.ErrorIs(t, err, ErrAttrsTwice)
}

func TestSample(t *testing.T) {
	file, err := Sample(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, SampleName, filepath.Base(file))

	f, err := hdf5.Open(file)
	require.NoError(t, err)
	defer f.Close()

	for _, path := range []string{"/events/energy", "/events/tof", "/events/channel", "/quality/valid"} {
		ds, err := f.OpenDataset(path)
		require.NoError(t, err, path)
		assert.Equal(t, []uint64{500}, ds.Shape(), path)
	}

	valid, err := f.OpenDataset("/quality/valid")
	require.NoError(t, err)
	flags, err := valid.ReadFloat64()
	require.NoError(t, err)
	invalid := 0
	for _, v := range flags {
		if v == 0 {
			invalid++
		}
	}
	assert.Equal(t, 100, invalid)

	energy, err := f.OpenDataset("/events/energy")
	require.NoError(t, err)
	units, err := energy.Attr("units").ReadScalarString()
	require.NoError(t, err)
	assert.Equal(t, "keV", units)

	_, err = f.OpenGroup("/calibration/history")
	require.NoError(t, err)
}
