package container

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by readers when a path does not exist.
var ErrNotFound = errors.New("node not found")

// ReadError is an I/O or format failure reported by a container reader.
type ReadError struct {
	File string
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("read %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("read %s:%s: %v", e.File, e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
