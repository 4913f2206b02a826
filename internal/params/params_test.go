package params

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5view/internal/container"
	"github.com/robert-malhotra/h5view/internal/expr"
	"github.com/robert-malhotra/h5view/internal/mask"
)

func newSet(t *testing.T, f *container.MemFile, opts ...Option) (*Set, *container.Memory) {
	t.Helper()
	src := container.NewMemory().Add("f", f)
	return NewSet(mask.New(src), opts...), src
}

func masked() *container.MemFile {
	return container.NewMemFile().
		Dataset("/x", []float64{1, 2, 3, 4, 5}).
		Dataset("/y", []float64{5, 4, 3, 2, 1}).
		BoolDataset("/quality/valid", []bool{true, false, true, true, false})
}

func TestAddTwiceIsIndependent(t *testing.T) {
	s, src := newSet(t, masked())

	i, err := s.Add("f", "/x")
	require.NoError(t, err)
	j, err := s.Add("f", "/x")
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	assert.Equal(t, 1, j)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 2, src.Opens())
	assert.Zero(t, src.Handles())

	require.NoError(t, s.ApplyFilter(0, "x > 2", []string{"/x"}))
	p1, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 4}, p1.Filtered)
}

func TestHideLastVisibleShowsFirst(t *testing.T) {
	s, _ := newSet(t, masked())
	_, err := s.Add("f", "/x")
	require.NoError(t, err)
	_, err = s.Add("f", "/x")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, s.VisibleIndices())

	require.NoError(t, s.Hide(0))
	assert.Equal(t, []int{1}, s.VisibleIndices())
	require.NoError(t, s.Hide(1))
	assert.Equal(t, []int{0}, s.VisibleIndices())

	require.NoError(t, s.Show(1))
	assert.Equal(t, []int{0, 1}, s.VisibleIndices())
	assert.Len(t, s.Visible(), 2)
}

func TestApplyFilter(t *testing.T) {
	s, _ := newSet(t, masked())
	i, err := s.Add("f", "/x")
	require.NoError(t, err)

	p, err := s.Get(i)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 4}, p.Base)
	assert.Equal(t, p.Base, p.Filtered)
	assert.False(t, p.Filtering())

	require.NoError(t, s.ApplyFilter(i, "x > 2", []string{"/x", "/y"}))
	p, err = s.Get(i)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, p.Filtered)
	assert.Equal(t, "x > 2", p.Expression)
	assert.Equal(t, "/x", p.Reference)
	assert.True(t, p.Filtering())

	// another dataset of the same file, masked the same way: y is [5, 3, 2]
	require.NoError(t, s.ApplyFilter(i, "y <= 3", []string{"/x", "/y"}))
	p, err = s.Get(i)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, p.Filtered)

	require.NoError(t, s.ResetFilter(i))
	p, err = s.Get(i)
	require.NoError(t, err)
	assert.Equal(t, p.Base, p.Filtered)
	assert.Empty(t, p.Expression)
}

func TestSelectAllKeepsBase(t *testing.T) {
	s, _ := newSet(t, masked())
	i, err := s.Add("f", "/x")
	require.NoError(t, err)
	require.NoError(t, s.ApplyFilter(i, "x == x", []string{"/x"}))
	p, err := s.Get(i)
	require.NoError(t, err)
	assert.Equal(t, p.Base, p.Filtered)
}

func TestApplyFilterFailureLeavesParameter(t *testing.T) {
	s, _ := newSet(t, masked().Dataset("/short", []float64{1, 2}))
	i, err := s.Add("f", "/x")
	require.NoError(t, err)
	require.NoError(t, s.ApplyFilter(i, "x > 1", []string{"/x"}))
	before, err := s.Get(i)
	require.NoError(t, err)

	var ee *expr.Error
	err = s.ApplyFilter(i, "x.__class__ > 1", []string{"/x"})
	require.ErrorAs(t, err, &ee)

	err = s.ApplyFilter(i, "short > 0", []string{"/x", "/short"})
	require.ErrorAs(t, err, &ee)

	var rnf *ReferenceNotFoundError
	err = s.ApplyFilter(i, "z > 0", []string{"/x", "/y"})
	require.ErrorAs(t, err, &rnf)
	assert.Equal(t, "z", rnf.Token)
	assert.Equal(t, 2, rnf.Candidates)

	after, err := s.Get(i)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestApplyFilterReadError(t *testing.T) {
	s, src := newSet(t, masked().Dataset("/bad", []float64{1, 2, 3}).FailRead("/bad", errors.New("checksum")))
	i, err := s.Add("f", "/x")
	require.NoError(t, err)

	var re *container.ReadError
	require.ErrorAs(t, s.ApplyFilter(i, "bad > 0", []string{"/bad"}), &re)
	assert.Zero(t, src.Handles())
}

func TestIndexOutOfRange(t *testing.T) {
	s, _ := newSet(t, masked())
	assert.ErrorIs(t, s.Show(0), ErrNoParameter)
	assert.ErrorIs(t, s.Hide(-1), ErrNoParameter)
	assert.ErrorIs(t, s.ApplyFilter(3, "x > 1", nil), ErrNoParameter)
	assert.ErrorIs(t, s.Remove(0), ErrNoParameter)
	_, err := s.Get(0)
	assert.ErrorIs(t, err, ErrNoParameter)
}

func TestAddFailureLeavesSet(t *testing.T) {
	s, _ := newSet(t, masked())
	_, err := s.Add("f", "/x")
	require.NoError(t, err)
	_, err = s.Add("f", "/missing")
	var re *container.ReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 1, s.Len())
}

func TestRemoveReindexes(t *testing.T) {
	s, _ := newSet(t, masked())
	for _, p := range []string{"/x", "/y", "/x"} {
		_, err := s.Add("f", p)
		require.NoError(t, err)
	}
	require.NoError(t, s.Hide(0))
	require.NoError(t, s.Hide(2))
	require.NoError(t, s.Remove(1))

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "/x", all[1].Path)
	assert.Equal(t, 1, all[1].Index)
	assert.Equal(t, []int{0}, s.VisibleIndices())

	s.Clear()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Visible())
}

func TestGetReturnsCopy(t *testing.T) {
	s, _ := newSet(t, masked())
	i, err := s.Add("f", "/x")
	require.NoError(t, err)
	p, err := s.Get(i)
	require.NoError(t, err)
	p.Filtered[0] = 99

	q, err := s.Get(i)
	require.NoError(t, err)
	assert.Equal(t, 1.0, q.Filtered[0])
}

func TestLengthInvariant(t *testing.T) {
	s, _ := newSet(t, masked())
	i, err := s.Add("f", "/x")
	require.NoError(t, err)
	for _, e := range []string{"x > 2", "x < 0", "x > 0 | x < 0", "not (x == 3)"} {
		require.NoError(t, s.ApplyFilter(i, e, []string{"/x"}), e)
		p, err := s.Get(i)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(p.Filtered), len(p.Base), e)
		assert.LessOrEqual(t, len(p.Base), len(p.Raw), e)
	}
}
