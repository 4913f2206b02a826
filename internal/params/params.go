// Package params keeps the ordered working set of datasets selected for
// plotting.
//
// Each Parameter owns three views of one dataset: Raw as read from the file,
// Base with the validity mask applied, and Filtered, which equals Base until a
// filter expression is applied. len(Filtered) <= len(Base) <= len(Raw) always
// holds. A Set is not safe for concurrent use; the owning session serializes
// access.
package params

import (
	"io"
	"log/slog"

	"github.com/robert-malhotra/h5view/internal/expr"
	"github.com/robert-malhotra/h5view/internal/mask"
)

// Loader loads masked arrays and evaluates filters against them.
// *mask.Pipeline implements it.
type Loader interface {
	Load(file, path string) (*mask.Result, error)
	Filter(file string, base []float64, refPath string, e *expr.Expr) ([]float64, error)
}

// Parameter is one selected dataset.
type Parameter struct {
	Index    int
	File     string
	Path     string
	Shape    []uint64
	Raw      []float64
	Base     []float64
	Filtered []float64
	Validity mask.Validity
	Visible  bool
	// Expression and Reference describe the applied filter; both are empty
	// while Filtered equals Base.
	Expression string
	Reference  string
}

// Filtering reports whether a filter expression is applied.
func (p *Parameter) Filtering() bool { return p.Expression != "" }

func (p *Parameter) clone() Parameter {
	c := *p
	c.Shape = append([]uint64(nil), p.Shape...)
	c.Raw = append([]float64(nil), p.Raw...)
	c.Base = append([]float64(nil), p.Base...)
	c.Filtered = append([]float64(nil), p.Filtered...)
	return c
}

// Set is an ordered collection of Parameters.
type Set struct {
	loader   Loader
	tieBreak TieBreak
	log      *slog.Logger
	params   []*Parameter
}

// Option configures a Set.
type Option func(*Set)

// WithTieBreak sets how an ambiguous filter reference is resolved.
func WithTieBreak(tb TieBreak) Option {
	return func(s *Set) { s.tieBreak = tb }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Set) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSet returns an empty set loading through loader.
func NewSet(loader Loader, opts ...Option) *Set {
	s := &Set{
		loader: loader,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Len returns the number of parameters.
func (s *Set) Len() int { return len(s.params) }

// Add loads path from file and appends it as a visible parameter. Adding the
// same dataset twice yields two independent parameters.
func (s *Set) Add(file, path string) (int, error) {
	res, err := s.loader.Load(file, path)
	if err != nil {
		return -1, err
	}
	p := &Parameter{
		Index:    len(s.params),
		File:     file,
		Path:     path,
		Shape:    res.Shape,
		Raw:      res.Raw,
		Base:     res.Base,
		Filtered: append([]float64(nil), res.Base...),
		Validity: res.Validity,
		Visible:  true,
	}
	s.params = append(s.params, p)
	s.log.Info("parameter added", "index", p.Index, "file", file, "path", path,
		"validity", res.Validity.String())
	return p.Index, nil
}

func (s *Set) at(i int) (*Parameter, error) {
	if i < 0 || i >= len(s.params) {
		return nil, indexError(i, len(s.params))
	}
	return s.params[i], nil
}

// Get returns a copy of parameter i.
func (s *Set) Get(i int) (Parameter, error) {
	p, err := s.at(i)
	if err != nil {
		return Parameter{}, err
	}
	return p.clone(), nil
}

// All returns copies of every parameter in order.
func (s *Set) All() []Parameter {
	out := make([]Parameter, len(s.params))
	for i, p := range s.params {
		out[i] = p.clone()
	}
	return out
}

// Visible returns copies of the visible parameters in order.
func (s *Set) Visible() []Parameter {
	var out []Parameter
	for _, p := range s.params {
		if p.Visible {
			out = append(out, p.clone())
		}
	}
	return out
}

// VisibleIndices returns the indices of the visible parameters.
func (s *Set) VisibleIndices() []int {
	var out []int
	for _, p := range s.params {
		if p.Visible {
			out = append(out, p.Index)
		}
	}
	return out
}

// Show makes parameter i visible.
func (s *Set) Show(i int) error {
	p, err := s.at(i)
	if err != nil {
		return err
	}
	p.Visible = true
	return nil
}

// Hide hides parameter i. Hiding the last visible parameter shows parameter 0
// instead, so the visible set is never empty while the set is not.
func (s *Set) Hide(i int) error {
	p, err := s.at(i)
	if err != nil {
		return err
	}
	p.Visible = false
	s.keepOneVisible()
	return nil
}

func (s *Set) keepOneVisible() {
	if len(s.params) == 0 {
		return
	}
	for _, p := range s.params {
		if p.Visible {
			return
		}
	}
	s.params[0].Visible = true
}

// ApplyFilter filters parameter i by expression. The expression's reference is
// resolved against available, loaded fresh from the parameter's file, and the
// resulting condition selects from the parameter's base array. On any error the
// parameter is left as it was.
func (s *Set) ApplyFilter(i int, expression string, available []string) error {
	p, err := s.at(i)
	if err != nil {
		return err
	}
	e, err := expr.Parse(expression)
	if err != nil {
		return err
	}
	ref, err := Resolve(e.Reference(), available, p.Path, s.tieBreak)
	if err != nil {
		return err
	}
	filtered, err := s.loader.Filter(p.File, p.Base, ref, e)
	if err != nil {
		return err
	}

	p.Filtered = filtered
	p.Expression = expression
	p.Reference = ref
	s.log.Info("filter applied", "index", i, "expression", expression, "reference", ref,
		"base", len(p.Base), "filtered", len(filtered))
	return nil
}

// ResetFilter drops the filter of parameter i.
func (s *Set) ResetFilter(i int) error {
	p, err := s.at(i)
	if err != nil {
		return err
	}
	p.Filtered = append([]float64(nil), p.Base...)
	p.Expression = ""
	p.Reference = ""
	return nil
}

// Remove deletes parameter i. Later parameters move down one index.
func (s *Set) Remove(i int) error {
	if _, err := s.at(i); err != nil {
		return err
	}
	s.params = append(s.params[:i], s.params[i+1:]...)
	for j := i; j < len(s.params); j++ {
		s.params[j].Index = j
	}
	s.keepOneVisible()
	return nil
}

// Clear removes every parameter.
func (s *Set) Clear() {
	s.params = nil
}
