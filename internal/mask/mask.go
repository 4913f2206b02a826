// Package mask loads dataset arrays and derives the filtered views the
// visualization works on.
//
// Every load applies the base validity mask: a boolean companion dataset at a
// configurable path in the same file. The mask is applied only when it is present,
// boolean, and exactly as long as the loaded array. In every other case the base
// array equals the raw array and the reason is reported as a Validity value,
// never as an error.
package mask

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/robert-malhotra/h5view/internal/container"
	"github.com/robert-malhotra/h5view/internal/expr"
)

// DefaultValidityPath is where the validity flags are looked up unless configured.
const DefaultValidityPath = "/quality/valid"

// Validity is the outcome of looking up the validity mask for one load.
type Validity int

const (
	// ValidityApplied means the mask was compatible and applied.
	ValidityApplied Validity = iota
	// ValidityDisabled means no validity path is configured.
	ValidityDisabled
	// ValidityAbsent means the file has no dataset at the validity path.
	ValidityAbsent
	// ValidityUnreadable means the validity dataset exists but could not be read.
	ValidityUnreadable
	// ValidityNotBoolean means the validity dataset does not hold booleans.
	ValidityNotBoolean
	// ValidityLengthMismatch means the validity dataset has a different length.
	ValidityLengthMismatch
)

func (v Validity) String() string {
	switch v {
	case ValidityApplied:
		return "applied"
	case ValidityDisabled:
		return "disabled"
	case ValidityAbsent:
		return "absent"
	case ValidityUnreadable:
		return "unreadable"
	case ValidityNotBoolean:
		return "not-boolean"
	case ValidityLengthMismatch:
		return "length-mismatch"
	default:
		return fmt.Sprintf("validity(%d)", int(v))
	}
}

// Result is one loaded dataset.
type Result struct {
	File  string
	Path  string
	Shape []uint64
	// Raw holds every element, flattened.
	Raw []float64
	// Base is Raw with the validity mask applied. It never aliases Raw.
	Base     []float64
	Validity Validity
}

// Pipeline loads arrays from containers opened through a Source.
type Pipeline struct {
	src          container.Source
	validityPath string
	log          *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithValidityPath sets the validity dataset path. An empty path disables the mask.
func WithValidityPath(path string) Option {
	return func(p *Pipeline) { p.validityPath = path }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// New returns a Pipeline reading through src.
func New(src container.Source, opts ...Option) *Pipeline {
	p := &Pipeline{
		src:          src,
		validityPath: DefaultValidityPath,
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ValidityPath returns the configured validity dataset path.
func (p *Pipeline) ValidityPath() string { return p.validityPath }

// Load reads the dataset at path and applies the validity mask. The container
// is opened and released within the call.
func (p *Pipeline) Load(file, path string) (*Result, error) {
	var res *Result
	err := container.With(p.src, file, func(r container.Reader) error {
		arr, err := r.ReadArray(path)
		if err != nil {
			return err
		}

		flags, validity := p.validity(r, arr.Len())
		res = &Result{
			File:     file,
			Path:     path,
			Shape:    arr.Shape,
			Raw:      arr.Values,
			Validity: validity,
		}
		if validity == ValidityApplied {
			res.Base = Select(arr.Values, flags)
		} else {
			res.Base = append([]float64(nil), arr.Values...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.log.Debug("loaded dataset", "file", file, "path", path,
		"raw", len(res.Raw), "base", len(res.Base), "validity", res.Validity.String())
	return res, nil
}

// validity reads the validity flags for an array of n elements.
func (p *Pipeline) validity(r container.Reader, n int) ([]bool, Validity) {
	if p.validityPath == "" {
		return nil, ValidityDisabled
	}
	arr, err := r.ReadArray(p.validityPath)
	if err != nil {
		if errors.Is(err, container.ErrNotFound) {
			return nil, ValidityAbsent
		}
		p.log.Debug("validity mask unreadable", "path", p.validityPath, "err", err)
		return nil, ValidityUnreadable
	}
	flags, ok := arr.Bools()
	if !ok {
		return nil, ValidityNotBoolean
	}
	if len(flags) != n {
		return nil, ValidityLengthMismatch
	}
	return flags, ValidityApplied
}

// Filter evaluates e against the dataset refPath of file (validity mask applied)
// and returns the elements of base where the condition holds. The reference must
// have exactly as many elements as base.
func (p *Pipeline) Filter(file string, base []float64, refPath string, e *expr.Expr) ([]float64, error) {
	ref, err := p.Load(file, refPath)
	if err != nil {
		return nil, err
	}
	if len(ref.Base) != len(base) {
		return nil, &expr.Error{
			Expression: e.String(),
			Pos:        -1,
			Msg:        fmt.Sprintf("%s has %d elements, the filtered array has %d", refPath, len(ref.Base), len(base)),
		}
	}
	keep, err := e.Mask(ref.Base)
	if err != nil {
		return nil, err
	}
	return Select(base, keep), nil
}

// Select returns a new slice with the values whose flag is set.
// keep must be as long as values.
func Select(values []float64, keep []bool) []float64 {
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if keep[i] {
			out = append(out, v)
		}
	}
	return out
}
