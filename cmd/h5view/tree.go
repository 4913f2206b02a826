package main

import (
	"flag"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/robert-malhotra/go-hdf5/hdf5"

	"github.com/robert-malhotra/h5view/internal/container"
	"github.com/robert-malhotra/h5view/internal/tree"
)

func runTree(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("tree", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "print shapes, element types and attributes")
	attrs := fs.Bool("attrs", false, "print every attribute with its value")
	pos, err := positional(fs, args, "FILE")
	if err != nil {
		return err
	}
	if *attrs {
		return printAttrs(w, pos[0])
	}
	if *verbose {
		return printDetailed(w, pos[0])
	}
	return printTree(w, pos[0])
}

// printTree lists every group followed by the datasets directly inside it.
func printTree(w io.Writer, file string) error {
	ix, err := tree.Build(container.HDF5{}, file)
	if err != nil {
		return err
	}
	datasets, err := ix.AllDatasets()
	if err != nil {
		return err
	}
	byGroup := make(map[string][]string)
	for _, d := range datasets {
		g := tree.Parent(d)
		byGroup[g] = append(byGroup[g], d)
	}

	if attrs := ix.RootAttributes(); len(attrs) > 0 {
		fmt.Fprintf(w, "attributes: %s\n", strings.Join(attrs, ", "))
	}
	for _, g := range ix.Groups() {
		depth := strings.Count(g, "/") - 1
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), g)
		for _, d := range byGroup[g] {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth+1), d[len(g):])
		}
	}
	return nil
}

// printDetailed walks the file with the reader directly and reports what it
// finds on every object, including objects it cannot open. The walk stops
// below tree.MaxDepth so hard-link cycles cannot run it forever.
func printDetailed(w io.Writer, file string) error {
	f, err := hdf5.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(w, "superblock version %d\n", f.Version())
	return hdf5.Walk(f.Root(), func(path string, obj interface{}, err error) error {
		if depth := len(hdf5.SplitPath(path)); depth > tree.MaxDepth {
			return &tree.StructuralError{Path: path, Kind: container.KindGroup, Reason: fmt.Sprintf("deeper than %d levels", tree.MaxDepth)}
		}
		if err != nil {
			fmt.Fprintf(w, "%s: cannot open: %v\n", path, err)
			return nil
		}
		switch o := obj.(type) {
		case *hdf5.Group:
			fmt.Fprintf(w, "group   %s", path)
			writeAttrs(w, o.Attrs())
		case *hdf5.Dataset:
			fmt.Fprintf(w, "dataset %s %v %s/%d", path, o.Shape(), className(uint8(o.DtypeClass())), o.DtypeSize())
			writeAttrs(w, o.Attrs())
		}
		return nil
	})
}

// className names an HDF5 datatype class.
func className(class uint8) string {
	switch class {
	case 0:
		return "integer"
	case 1:
		return "float"
	case 2:
		return "time"
	case 3:
		return "string"
	case 4:
		return "bitfield"
	case 5:
		return "opaque"
	case 6:
		return "compound"
	case 7:
		return "reference"
	case 8:
		return "enum"
	case 9:
		return "vlen"
	case 10:
		return "array"
	default:
		return fmt.Sprintf("class%d", class)
	}
}

func writeAttrs(w io.Writer, attrs []string) {
	if len(attrs) > 0 {
		fmt.Fprintf(w, " @%s", strings.Join(attrs, " @"))
	}
	fmt.Fprintln(w)
}

// printAttrs lists every attribute in the file as PATH@NAME = VALUE.
func printAttrs(w io.Writer, file string) error {
	f, err := hdf5.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	return f.WalkAttrs(func(info hdf5.AttrInfo) error {
		if info.Err != nil {
			fmt.Fprintf(w, "%s: %v\n", info.Path, info.Err)
			return nil
		}
		fmt.Fprintf(w, "%s = %v\n", info.Path, single(info.Value))
		return nil
	})
}

// single unwraps one-element slices so a string stored with shape [1]
// prints like a scalar.
func single(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Len() == 1 {
		return rv.Index(0).Interface()
	}
	return v
}
