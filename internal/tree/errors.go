package tree

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/container"
)

// StructuralError reports a container whose shape does not match what the
// indexer expects: a start node that is not a group, or a group reachable from
// itself.
type StructuralError struct {
	Path   string
	Kind   container.Kind
	Reason string
	Err    error
}

func (e *StructuralError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("structural error at %s (%s): %s: %v", e.Path, e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("structural error at %s (%s): %s", e.Path, e.Kind, e.Reason)
}

func (e *StructuralError) Unwrap() error { return e.Err }
