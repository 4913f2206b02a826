// Package tree discovers the groups and datasets of a container.
//
// Group paths are absolute and always start and end with "/" (the root is "/").
// Dataset paths are a group path followed by the dataset name. Discovery is a
// pre-order depth-first walk over an explicit stack, so a parent always precedes
// its subgroups and siblings keep their storage order.
package tree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robert-malhotra/h5view/internal/container"
)

// GroupPath normalizes p to the "/a/b/" form.
func GroupPath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "/"
	}
	return "/" + p + "/"
}

// Parent returns the group path containing a dataset or group path.
func Parent(p string) string {
	trimmed := strings.TrimSuffix(p, "/")
	if trimmed == "" {
		return "/"
	}
	i := strings.LastIndex(trimmed, "/")
	return GroupPath(trimmed[:i+1])
}

// MaxDepth bounds how far below the start group discovery descends. Readers
// that cannot report object ids (ID 0) rely on it to stop hard-link cycles.
const MaxDepth = 100

type frame struct {
	path  string
	depth int
	// ids of the groups on the chain from the start group to this one
	chain []uint64
}

// DiscoverGroups returns every group reachable from start, start first.
func DiscoverGroups(r container.Reader, start string) ([]string, error) {
	start = GroupPath(start)

	kind, id, err := r.Stat(start)
	if err != nil {
		if errors.Is(err, container.ErrNotFound) {
			return nil, &StructuralError{Path: start, Kind: container.KindOther, Reason: "start group does not exist", Err: err}
		}
		return nil, err
	}
	if kind != container.KindGroup {
		return nil, &StructuralError{Path: start, Kind: kind, Reason: "start node is not a group"}
	}

	var groups []string
	seen := make(map[string]struct{})
	stack := []frame{{path: start, chain: idChain(nil, id)}}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, dup := seen[cur.path]; dup {
			return nil, &StructuralError{Path: cur.path, Kind: container.KindGroup, Reason: "group visited twice"}
		}
		seen[cur.path] = struct{}{}
		groups = append(groups, cur.path)

		children, err := r.ListChildren(cur.path)
		if err != nil {
			return nil, err
		}

		// push in reverse so the first child is walked first
		for i := len(children) - 1; i >= 0; i-- {
			c := children[i]
			if c.Kind != container.KindGroup {
				continue
			}
			childPath := cur.path + c.Name + "/"
			if c.ID != 0 && containsID(cur.chain, c.ID) {
				return nil, &StructuralError{Path: childPath, Kind: container.KindGroup, Reason: "group contains one of its ancestors"}
			}
			if cur.depth+1 > MaxDepth {
				return nil, &StructuralError{Path: childPath, Kind: container.KindGroup, Reason: fmt.Sprintf("nested deeper than %d groups", MaxDepth)}
			}
			stack = append(stack, frame{path: childPath, depth: cur.depth + 1, chain: idChain(cur.chain, c.ID)})
		}
	}

	return groups, nil
}

// DiscoverDatasets returns the datasets of group and all of its subgroups, group
// by group in discovery order. Children that are neither groups nor datasets are
// skipped.
func DiscoverDatasets(r container.Reader, group string) ([]string, error) {
	groups, err := DiscoverGroups(r, group)
	if err != nil {
		return nil, err
	}
	var datasets []string
	for _, g := range groups {
		names, err := datasetsIn(r, g)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, names...)
	}
	return datasets, nil
}

// datasetsIn lists the datasets directly inside g.
func datasetsIn(r container.Reader, g string) ([]string, error) {
	children, err := r.ListChildren(g)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, c := range children {
		if c.Kind == container.KindDataset {
			out = append(out, g+c.Name)
		}
	}
	return out, nil
}

func idChain(chain []uint64, id uint64) []uint64 {
	next := make([]uint64, len(chain), len(chain)+1)
	copy(next, chain)
	if id != 0 {
		next = append(next, id)
	}
	return next
}

func containsID(chain []uint64, id uint64) bool {
	for _, v := range chain {
		if v == id {
			return true
		}
	}
	return false
}
