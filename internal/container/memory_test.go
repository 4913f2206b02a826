package container

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryListing(t *testing.T) {
	f := NewMemFile().
		Dataset("/A/x", []float64{1, 2}).
		Group("/A/B").
		Other("/A/type").
		Attrs("/", "creator", "version")
	src := NewMemory().Add("f.h5", f)

	err := With(src, "f.h5", func(r Reader) error {
		children, err := r.ListChildren("/A/")
		require.NoError(t, err)
		require.Len(t, children, 3)
		assert.Equal(t, "x", children[0].Name)
		assert.Equal(t, KindDataset, children[0].Kind)
		assert.Equal(t, KindGroup, children[1].Kind)
		assert.Equal(t, KindOther, children[2].Kind)

		kind, _, err := r.Stat("/A/B/")
		require.NoError(t, err)
		assert.Equal(t, KindGroup, kind)

		attrs, err := r.AttributeNames("/")
		require.NoError(t, err)
		assert.Equal(t, []string{"creator", "version"}, attrs)
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, src.Handles())
}

func TestMemoryLinkSharesID(t *testing.T) {
	f := NewMemFile().Group("/A").Link("/A/loop", "/A")
	src := NewMemory().Add("f", f)

	require.NoError(t, With(src, "f", func(r Reader) error {
		_, idA, err := r.Stat("/A")
		require.NoError(t, err)
		_, idLoop, err := r.Stat("/A/loop")
		require.NoError(t, err)
		assert.Equal(t, idA, idLoop)
		return nil
	}))
}

func TestWithReleasesOnError(t *testing.T) {
	src := NewMemory().Add("f", NewMemFile())
	boom := errors.New("boom")

	err := With(src, "f", func(r Reader) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, src.Handles())
	assert.Equal(t, 1, src.Opens())
}

func TestWithMissingFile(t *testing.T) {
	err := With(NewMemory(), "missing", func(Reader) error { return nil })
	var re *ReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "missing", re.File)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadArrayCopies(t *testing.T) {
	f := NewMemFile().Dataset("/x", []float64{1, 2, 3}).BoolDataset("/ok", []bool{true, false})
	src := NewMemory().Add("f", f)

	require.NoError(t, With(src, "f", func(r Reader) error {
		a, err := r.ReadArray("/x")
		require.NoError(t, err)
		a.Values[0] = 99

		b, err := r.ReadArray("/x")
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3}, b.Values)

		ok, err := r.ReadArray("/ok")
		require.NoError(t, err)
		mask, isBool := ok.Bools()
		require.True(t, isBool)
		assert.Equal(t, []bool{true, false}, mask)

		_, isBool = b.Bools()
		assert.False(t, isBool)
		return nil
	}))
}
