// Package histogram bins filtered arrays for plotting.
package histogram

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultBins is the bin count used when none is configured.
const DefaultBins = 50

// Summary is the binned form of one array.
type Summary struct {
	Label string `json:"label"`
	// Counts are density-normalized: they integrate to 1 over Edges.
	Counts []float64 `json:"counts"`
	// Edges has len(Counts)+1 entries.
	Edges []float64 `json:"edges"`
	// Mode is the center of the fullest bin, NaN for an empty array.
	Mode float64 `json:"mode"`
	// N is the number of elements, including non-finite ones.
	N int `json:"n"`
}

// Label formats the legend label of an array with n elements.
func Label(n int) string { return fmt.Sprintf("data_length=%d", n) }

// Summarize bins every array independently over its own range.
func Summarize(arrays [][]float64, bins int) []Summary {
	if bins <= 0 {
		bins = DefaultBins
	}
	out := make([]Summary, len(arrays))
	for i, a := range arrays {
		out[i] = summarize(a, bins)
	}
	return out
}

func summarize(values []float64, bins int) Summary {
	s := Summary{
		Label:  Label(len(values)),
		Counts: make([]float64, bins),
		Edges:  make([]float64, bins+1),
		Mode:   math.NaN(),
		N:      len(values),
	}

	// NaN and ±Inf have no bin.
	x := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			x = append(x, v)
		}
	}
	if len(x) == 0 {
		floats.Span(s.Edges, 0, 1)
		return s
	}
	sort.Float64s(x)

	lo, hi := x[0], x[len(x)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	if lo == hi {
		// ±0.5 is below the spacing of floats this large.
		lo, hi = spread(x[0])
	}

	// hi-lo overflows when the data spans most of the float64 range.
	width := (hi - lo) / float64(bins)
	if math.IsInf(width, 0) {
		width = hi/float64(bins) - lo/float64(bins)
	}
	for i := 0; i < bins; i++ {
		s.Edges[i] = math.Min(lo+float64(i)*width, hi)
	}
	s.Edges[bins] = hi

	// stat.Histogram takes half-open bins; widen the last divider so the
	// maximum lands in the last bin.
	dividers := append([]float64(nil), s.Edges...)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	stat.Histogram(s.Counts, dividers, x, nil)

	best := floats.MaxIdx(s.Counts)
	s.Mode = s.Edges[best] + (s.Edges[best+1]-s.Edges[best])/2

	floats.Scale(1/float64(len(x)), s.Counts)
	floats.Scale(1/width, s.Counts)
	return s
}

// spread returns the nearest floats either side of v that stay finite.
func spread(v float64) (lo, hi float64) {
	lo, hi = math.Nextafter(v, math.Inf(-1)), math.Nextafter(v, math.Inf(1))
	if math.IsInf(lo, 0) {
		lo = v
	}
	if math.IsInf(hi, 0) {
		hi = v
	}
	return lo, hi
}
