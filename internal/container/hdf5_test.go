package container

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5view/internal/fixture"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "tree.h5")
	err := fixture.Write(file,
		fixture.Dataset("/A/x", []float64{1, 2, 3, 4, 5}),
		fixture.Dataset("/A/B/y", []int32{7, 8}),
		fixture.Dataset("/flags/valid", []uint8{1, 0, 1, 1, 0}),
		fixture.Dataset("/flags/counts", []uint8{3, 0, 1}),
	)
	require.NoError(t, err)
	return file
}

func TestHDF5Listing(t *testing.T) {
	file := writeFixture(t)

	err := With(HDF5{}, file, func(r Reader) error {
		root, err := r.ListChildren("/")
		require.NoError(t, err)
		names := map[string]Kind{}
		for _, c := range root {
			names[c.Name] = c.Kind
			assert.Zero(t, c.ID)
		}
		assert.Equal(t, map[string]Kind{"A": KindGroup, "flags": KindGroup}, names)

		a, err := r.ListChildren("/A/")
		require.NoError(t, err)
		kinds := map[string]Kind{}
		for _, c := range a {
			kinds[c.Name] = c.Kind
		}
		assert.Equal(t, map[string]Kind{"x": KindDataset, "B": KindGroup}, kinds)

		kind, _, err := r.Stat("/A/B/y")
		require.NoError(t, err)
		assert.Equal(t, KindDataset, kind)
		return nil
	})
	require.NoError(t, err)
}

func TestHDF5RootSpellings(t *testing.T) {
	file := writeFixture(t)

	require.NoError(t, With(HDF5{}, file, func(r Reader) error {
		want, err := r.ListChildren("/")
		require.NoError(t, err)
		for _, p := range []string{"", "//", "///"} {
			got, err := r.ListChildren(p)
			require.NoError(t, err, p)
			assert.Equal(t, want, got, p)

			kind, _, err := r.Stat(p)
			require.NoError(t, err, p)
			assert.Equal(t, KindGroup, kind, p)
		}

		kind, _, err := r.Stat("//A//B/")
		require.NoError(t, err)
		assert.Equal(t, KindGroup, kind)
		return nil
	}))
}

func TestHDF5ReadArray(t *testing.T) {
	file := writeFixture(t)

	require.NoError(t, With(HDF5{}, file, func(r Reader) error {
		x, err := r.ReadArray("/A/x")
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3, 4, 5}, x.Values)
		assert.Equal(t, []uint64{5}, x.Shape)
		assert.False(t, x.Boolean)

		y, err := r.ReadArray("/A/B/y")
		require.NoError(t, err)
		assert.Equal(t, []float64{7, 8}, y.Values)

		valid, err := r.ReadArray("/flags/valid")
		require.NoError(t, err)
		assert.True(t, valid.Boolean)

		counts, err := r.ReadArray("/flags/counts")
		require.NoError(t, err)
		assert.False(t, counts.Boolean)
		return nil
	}))
}

func TestHDF5Missing(t *testing.T) {
	file := writeFixture(t)

	err := With(HDF5{}, file, func(r Reader) error {
		_, err := r.ReadArray("/A/nope")
		return err
	})
	var re *ReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "/A/nope", re.Path)
	assert.ErrorIs(t, err, ErrNotFound)
}
