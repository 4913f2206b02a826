package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/robert-malhotra/h5view/internal/fixture"
)

func runGenerate(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	pos, err := positional(fs, args, "DIR")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(pos[0], 0o755); err != nil {
		return err
	}
	path, err := fixture.Sample(pos[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(w, path)
	return nil
}
