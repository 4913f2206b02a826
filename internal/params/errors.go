package params

import (
	"errors"
	"fmt"
)

// ErrNoParameter is returned for an index outside the set.
var ErrNoParameter = errors.New("no such parameter")

// ReferenceNotFoundError is returned when a filter expression names a dataset
// that matches none of the available dataset paths.
type ReferenceNotFoundError struct {
	Token string
	// Candidates is how many dataset paths were searched.
	Candidates int
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("reference %q matches none of %d datasets", e.Token, e.Candidates)
}

func indexError(i, n int) error {
	return fmt.Errorf("parameter %d of %d: %w", i, n, ErrNoParameter)
}
