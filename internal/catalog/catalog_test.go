package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempCatalog(t *testing.T, maxBytes int64) *Catalog {
	t.Helper()
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "catalog.db"), filepath.Join(dir, "uploads"), maxBytes)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSaveListGetDelete(t *testing.T) {
	ctx := context.Background()
	c := tempCatalog(t, 0)

	a, err := c.Save(ctx, "run1.h5", strings.NewReader("first"))
	require.NoError(t, err)
	b, err := c.Save(ctx, "../../etc/run2.h5", strings.NewReader("second"))
	require.NoError(t, err)

	assert.Equal(t, "run2.h5", b.Name)
	assert.Equal(t, int64(5), a.Size)
	assert.Len(t, a.SHA256, 64)
	assert.True(t, strings.HasPrefix(b.Path, c.Dir()))
	// uploads live at <dir>/<id>/<name>
	assert.Equal(t, filepath.Join(c.Dir(), b.ID, "run2.h5"), b.Path)
	data, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	all, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, b.ID, all[1].ID)

	got, err := c.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, *b, *got)

	removed, err := c.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Path, removed.Path)
	_, err = os.Stat(a.Path)
	assert.True(t, os.IsNotExist(err))

	_, err = c.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Delete(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	c := tempCatalog(t, 0)
	for _, n := range []string{"a.h5", "b.h5", "c.h5"} {
		_, err := c.Save(ctx, n, strings.NewReader(n))
		require.NoError(t, err)
	}

	removed, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Len(t, removed, 3)
	all, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSaveTooLarge(t *testing.T) {
	ctx := context.Background()
	c := tempCatalog(t, 4)

	_, err := c.Save(ctx, "big.h5", strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)
	all, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	entries, err := os.ReadDir(c.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = c.Save(ctx, "ok.h5", strings.NewReader("1234"))
	assert.NoError(t, err)
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"run.h5", "run.h5"},
		{"/abs/path/run.h5", "run.h5"},
		{`C:\Users\me\data set.h5`, "data_set.h5"},
		{"ünïcode.h5", "_n_code.h5"},
	}
	for _, tt := range tests {
		got, err := CleanName(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"", "..", "/", "..."} {
		_, err := CleanName(bad)
		assert.ErrorIs(t, err, ErrBadName, bad)
	}
}
