package container

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/robert-malhotra/go-hdf5/hdf5"
)

// Datatype classes reported by hdf5.Dataset.DtypeClass.
const (
	classFixedPoint = 0
	classFloatPoint = 1
	classBitfield   = 4
	classEnum       = 8
)

// HDF5 opens files with the pure-Go HDF5 reader.
type HDF5 struct{}

// Open implements Source.
func (HDF5) Open(file string) (Reader, error) {
	f, err := hdf5.Open(file)
	if err != nil {
		return nil, err
	}
	return &hdf5Reader{file: f}, nil
}

type hdf5Reader struct {
	file *hdf5.File
}

// relPath reduces p to a root-relative path with no empty segments.
// "", "/" and "///" all name the root group.
func relPath(p string) string {
	return strings.Trim(path.Clean("/"+p), "/")
}

func (r *hdf5Reader) Stat(p string) (Kind, uint64, error) {
	rel := relPath(p)
	if rel == "" {
		return KindGroup, 0, nil
	}
	_, err := r.file.Root().OpenDataset(rel)
	switch {
	case err == nil:
		return KindDataset, 0, nil
	case errors.Is(err, hdf5.ErrNotDataset):
		return KindGroup, 0, nil
	default:
		return KindOther, 0, r.wrap(p, err)
	}
}

// ListChildren reports ID 0 for every child: the reader does not expose
// object addresses, so cycle protection falls back to the depth bound.
func (r *hdf5Reader) ListChildren(group string) ([]Child, error) {
	g, err := r.openGroup(group)
	if err != nil {
		return nil, err
	}
	members, err := g.MembersInfo()
	if err != nil {
		return nil, r.wrap(group, err)
	}
	children := make([]Child, len(members))
	for i, m := range members {
		children[i] = Child{Name: m.Name, Kind: convertKind(m.Type)}
	}
	return children, nil
}

func (r *hdf5Reader) ReadArray(p string) (*Array, error) {
	ds, err := r.file.Root().OpenDataset(relPath(p))
	if err != nil {
		return nil, r.wrap(p, err)
	}

	class := ds.DtypeClass()
	switch class {
	case classFixedPoint, classFloatPoint, classEnum, classBitfield:
	default:
		return nil, &ReadError{File: r.file.Path(), Path: p, Err: fmt.Errorf("datatype class %d is not numeric", class)}
	}

	values, err := ds.ReadFloat64()
	if err != nil {
		return nil, r.wrap(p, err)
	}
	if n := int(ds.NumElements()); len(values) > n {
		values = values[:n]
	}

	arr := &Array{Values: values, Shape: append([]uint64(nil), ds.Shape()...)}
	if ds.DtypeSize() == 1 && class != classFloatPoint {
		arr.Boolean = onlyZeroOne(values)
	}
	return arr, nil
}

func (r *hdf5Reader) AttributeNames(p string) ([]string, error) {
	kind, _, err := r.Stat(p)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindGroup:
		g, err := r.openGroup(p)
		if err != nil {
			return nil, err
		}
		return g.Attrs(), nil
	case KindDataset:
		ds, err := r.file.Root().OpenDataset(relPath(p))
		if err != nil {
			return nil, r.wrap(p, err)
		}
		return ds.Attrs(), nil
	default:
		return nil, nil
	}
}

func (r *hdf5Reader) Close() error {
	return r.file.Close()
}

func (r *hdf5Reader) openGroup(p string) (*hdf5.Group, error) {
	rel := relPath(p)
	if rel == "" {
		return r.file.Root(), nil
	}
	g, err := r.file.Root().OpenGroup(rel)
	if err != nil {
		return nil, r.wrap(p, err)
	}
	return g, nil
}

func (r *hdf5Reader) wrap(p string, err error) error {
	if errors.Is(err, hdf5.ErrNotFound) {
		err = fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return &ReadError{File: r.file.Path(), Path: p, Err: err}
}

func convertKind(t hdf5.ObjectType) Kind {
	switch t {
	case hdf5.ObjectTypeGroup:
		return KindGroup
	case hdf5.ObjectTypeDataset:
		return KindDataset
	default:
		return KindOther
	}
}

func onlyZeroOne(values []float64) bool {
	for _, v := range values {
		if v != 0 && v != 1 {
			return false
		}
	}
	return true
}
