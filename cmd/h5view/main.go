// Command h5view browses HDF5 containers and plots their datasets.
//
// Usage:
//
//	h5view serve [-config FILE] [-listen ADDR] [-log-level LEVEL]
//	h5view tree [-v] [-attrs] FILE
//	h5view hist [-filter EXPR] [-bins N] [-png OUT] [-validity PATH] FILE DATASET
//	h5view generate DIR
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, `usage: h5view <command> [flags] [args]

commands:
  serve      run the HTTP API
  tree       print the groups and datasets of a file
  hist       print the histogram summary of a dataset
  generate   write a sample container into a directory`)
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "serve":
		err = runServe(args)
	case "tree":
		err = runTree(args, os.Stdout)
	case "hist":
		err = runHist(args, os.Stdout)
	case "generate":
		err = runGenerate(args, os.Stdout)
	case "-h", "-help", "--help", "help":
		usage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "h5view: unknown command %q\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		slog.Error("h5view failed", "command", os.Args[1], "err", err)
		os.Exit(1)
	}
}

// positional parses fs and checks the number of remaining arguments.
func positional(fs *flag.FlagSet, args []string, names ...string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != len(names) {
		return nil, fmt.Errorf("%s: want arguments %v, got %d", fs.Name(), names, fs.NArg())
	}
	return fs.Args(), nil
}
