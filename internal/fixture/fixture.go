// Package fixture writes small HDF5 containers with the scigolib writer. Tests
// use it to exercise the HDF5 source end to end, and the generate command uses
// it to produce sample files.
package fixture

import (
	"errors"
	"fmt"
	"math"
	"path"
	"path/filepath"
	"sort"

	"github.com/scigolib/hdf5"
)

// Entry is a node to create. A nil Data creates a group.
type Entry struct {
	Path string
	// Data is a slice of a fixed-size numeric type, e.g. []float64 or []uint8.
	Data interface{}
	// Attrs are attached to datasets only. Values are scalars or numeric slices.
	Attrs map[string]interface{}
}

// Group returns an entry creating an empty group.
func Group(path string) Entry { return Entry{Path: path} }

// Dataset returns an entry creating a dataset.
func Dataset(path string, data interface{}) Entry { return Entry{Path: path, Data: data} }

// ErrAttrsTwice is returned when more than one entry carries attributes.
// The writer grows an object header in place when an attribute is added, so
// only the object written last may have them.
var ErrAttrsTwice = errors.New("fixture: only one entry may carry attributes")

// Write creates file and writes entries in order, except that the entry with
// attributes is written last. Parent groups are created as needed.
func Write(file string, entries ...Entry) (err error) {
	ordered, err := attrsLast(entries)
	if err != nil {
		return err
	}

	fw, err := hdf5.CreateForWrite(file, hdf5.CreateTruncate)
	if err != nil {
		return fmt.Errorf("creating %s: %w", file, err)
	}
	defer func() {
		if cerr := fw.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", file, cerr)
		}
	}()

	w := &writer{fw: fw, groups: map[string]bool{"/": true}}
	for _, e := range ordered {
		p := path.Clean("/" + e.Path)
		if p == "/" {
			continue
		}
		if e.Data == nil {
			if err := w.ensure(p); err != nil {
				return err
			}
			continue
		}
		if err := w.ensure(path.Dir(p)); err != nil {
			return err
		}
		if err := w.dataset(p, e); err != nil {
			return fmt.Errorf("creating dataset %s: %w", p, err)
		}
	}
	return nil
}

func attrsLast(entries []Entry) ([]Entry, error) {
	out := make([]Entry, 0, len(entries))
	var tail []Entry
	for _, e := range entries {
		if len(e.Attrs) == 0 {
			out = append(out, e)
			continue
		}
		if len(tail) > 0 {
			return nil, ErrAttrsTwice
		}
		tail = append(tail, e)
	}
	return append(out, tail...), nil
}

type writer struct {
	fw     *hdf5.FileWriter
	groups map[string]bool
}

// ensure creates g and any missing ancestors, parents first.
func (w *writer) ensure(g string) error {
	if w.groups[g] {
		return nil
	}
	if err := w.ensure(path.Dir(g)); err != nil {
		return err
	}
	if _, err := w.fw.CreateGroup(g); err != nil {
		return fmt.Errorf("creating group %s: %w", g, err)
	}
	w.groups[g] = true
	return nil
}

func (w *writer) dataset(p string, e Entry) error {
	dtype, n, err := datatypeOf(e.Data)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("empty data")
	}
	ds, err := w.fw.CreateDataset(p, dtype, []uint64{uint64(n)})
	if err != nil {
		return err
	}
	if err := ds.Write(e.Data); err != nil {
		return err
	}

	names := make([]string, 0, len(e.Attrs))
	for name := range e.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ds.WriteAttribute(name, e.Attrs[name]); err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
	}
	return nil
}

func datatypeOf(data interface{}) (hdf5.Datatype, int, error) {
	switch v := data.(type) {
	case []int8:
		return hdf5.Int8, len(v), nil
	case []int16:
		return hdf5.Int16, len(v), nil
	case []int32:
		return hdf5.Int32, len(v), nil
	case []int64:
		return hdf5.Int64, len(v), nil
	case []uint8:
		return hdf5.Uint8, len(v), nil
	case []uint16:
		return hdf5.Uint16, len(v), nil
	case []uint32:
		return hdf5.Uint32, len(v), nil
	case []uint64:
		return hdf5.Uint64, len(v), nil
	case []float32:
		return hdf5.Float32, len(v), nil
	case []float64:
		return hdf5.Float64, len(v), nil
	default:
		return 0, 0, fmt.Errorf("unsupported data type %T", data)
	}
}

// SampleName is the file name Sample writes.
const SampleName = "detector.h5"

// Sample writes a small detector-style container into dir and returns its path.
// /quality/valid flags every fifth event as invalid.
func Sample(dir string) (string, error) {
	const n = 500
	energy := make([]float64, n)
	tof := make([]float32, n)
	channel := make([]int32, n)
	valid := make([]uint8, n)
	for i := 0; i < n; i++ {
		x := float64(i)
		energy[i] = 50 + 20*math.Sin(x/17) + float64(i%23)
		tof[i] = float32(1e-3 * (x + 0.5*math.Cos(x/5)))
		channel[i] = int32(i % 64)
		if i%5 != 0 {
			valid[i] = 1
		}
	}

	file := filepath.Join(dir, SampleName)
	err := Write(file,
		Entry{Path: "/events/energy", Data: energy, Attrs: map[string]interface{}{"units": "keV"}},
		Dataset("/events/tof", tof),
		Dataset("/events/channel", channel),
		Dataset("/quality/valid", valid),
		Dataset("/calibration/gain", []float64{1.01, 0.99, 1.02, 0.98}),
		Group("/calibration/history"),
	)
	if err != nil {
		return "", err
	}
	return file, nil
}
