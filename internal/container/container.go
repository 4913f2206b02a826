// Package container defines the capability the indexer and masking pipeline need
// from a hierarchical container file, and provides an HDF5-backed implementation
// plus an in-memory one.
//
// A Reader is a scoped acquisition: obtain it from a Source, perform reads, and
// close it before returning. With wraps that pattern so the handle is released on
// every exit path.
package container

import (
	"fmt"
)

// Kind classifies a node inside a container.
type Kind int

const (
	KindOther Kind = iota
	KindGroup
	KindDataset
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "GROUP"
	case KindDataset:
		return "DATASET"
	default:
		return "OTHER"
	}
}

// Child is one entry of a group listing.
type Child struct {
	Name string
	Kind Kind
	// ID identifies the underlying object when the format exposes one; 0 means unknown.
	ID uint64
}

// Array is a dataset read fully into memory and flattened in row-major order.
type Array struct {
	Values []float64
	Shape  []uint64
	// Boolean is set when the stored element type is a boolean or a one-byte
	// integer/enum holding only 0 and 1.
	Boolean bool
}

// Len returns the number of elements.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Values)
}

// Bools converts a boolean array into a mask. ok is false if the array is not boolean.
func (a *Array) Bools() (mask []bool, ok bool) {
	if a == nil || !a.Boolean {
		return nil, false
	}
	mask = make([]bool, len(a.Values))
	for i, v := range a.Values {
		mask[i] = v != 0
	}
	return mask, true
}

// Reader is an open container.
type Reader interface {
	// Stat reports the kind of the node at an absolute path and its object id.
	Stat(path string) (Kind, uint64, error)
	// ListChildren lists the direct children of a group.
	ListChildren(group string) ([]Child, error)
	// ReadArray reads a whole dataset.
	ReadArray(path string) (*Array, error)
	// AttributeNames lists the attribute names attached to a node.
	AttributeNames(path string) ([]string, error)
	Close() error
}

// Source opens containers by file path.
type Source interface {
	Open(file string) (Reader, error)
}

// With opens file, runs fn with the reader, and always closes it.
// A close error is reported only when fn succeeded.
func With(src Source, file string, fn func(Reader) error) (err error) {
	r, err := src.Open(file)
	if err != nil {
		return &ReadError{File: file, Err: err}
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = &ReadError{File: file, Err: fmt.Errorf("closing: %w", cerr)}
		}
	}()
	return fn(r)
}
