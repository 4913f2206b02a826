package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/robert-malhotra/h5view/internal/container"
	"github.com/robert-malhotra/h5view/internal/histogram"
	"github.com/robert-malhotra/h5view/internal/mask"
	"github.com/robert-malhotra/h5view/internal/params"
	"github.com/robert-malhotra/h5view/internal/tree"
)

func runHist(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("hist", flag.ContinueOnError)
	filter := fs.String("filter", "", "filter expression, e.g. \"energy > 40\"")
	bins := fs.Int("bins", histogram.DefaultBins, "number of bins")
	validity := fs.String("validity", mask.DefaultValidityPath, "validity mask dataset; empty disables it")
	out := fs.String("png", "", "also render the histogram to this PNG file")
	pos, err := positional(fs, args, "FILE", "DATASET")
	if err != nil {
		return err
	}
	file, path := pos[0], pos[1]

	src := container.HDF5{}
	set := params.NewSet(mask.New(src, mask.WithValidityPath(*validity)))
	i, err := set.Add(file, path)
	if err != nil {
		return err
	}
	if *filter != "" {
		ix, err := tree.Build(src, file)
		if err != nil {
			return err
		}
		available, err := ix.AllDatasets()
		if err != nil {
			return err
		}
		if err := set.ApplyFilter(i, *filter, available); err != nil {
			return err
		}
	}

	p, err := set.Get(i)
	if err != nil {
		return err
	}
	s := histogram.Summarize([][]float64{p.Filtered}, *bins)[0]

	fmt.Fprintf(w, "%s %s\n", filepath.Base(file), p.Path)
	fmt.Fprintf(w, "raw=%d base=%d filtered=%d validity=%s\n", len(p.Raw), len(p.Base), len(p.Filtered), p.Validity)
	if p.Filtering() {
		fmt.Fprintf(w, "filter %q on %s\n", p.Expression, p.Reference)
	}
	fmt.Fprintf(w, "%s mode=%.6g\n", s.Label, s.Mode)
	for b, c := range s.Counts {
		fmt.Fprintf(w, "[%12.6g, %12.6g) %.6g\n", s.Edges[b], s.Edges[b+1], c)
	}

	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		if err := histogram.Render(f, []histogram.Summary{s}, histogram.RenderOptions{Title: p.Path}); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return nil
}
