package params

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robert-malhotra/h5view/internal/tree"
)

// TieBreak selects among several dataset paths matching a reference token.
type TieBreak int

const (
	// TieBreakSpecific prefers an exact path, then a dataset in the same group as
	// the filtered parameter, then the deepest path, then lexical order.
	TieBreakSpecific TieBreak = iota
	// TieBreakFirst takes the first match in the order the paths were given.
	TieBreakFirst
)

func (t TieBreak) String() string {
	switch t {
	case TieBreakSpecific:
		return "specific"
	case TieBreakFirst:
		return "first"
	default:
		return fmt.Sprintf("tiebreak(%d)", int(t))
	}
}

// ParseTieBreak parses a configuration value.
func ParseTieBreak(s string) (TieBreak, error) {
	switch s {
	case "", "specific":
		return TieBreakSpecific, nil
	case "first":
		return TieBreakFirst, nil
	}
	return 0, fmt.Errorf("unknown tie break %q", s)
}

// Matches reports whether dataset path p is named by token. A token matches
// the full path or any trailing run of whole path segments.
func Matches(p, token string) bool {
	if p == token {
		return true
	}
	suffix := strings.TrimPrefix(token, "/")
	if suffix == "" {
		return false
	}
	return p == suffix || strings.HasSuffix(p, "/"+suffix)
}

// Resolve returns the dataset path among available that token refers to. near is
// the path of the dataset being filtered and decides between same-named datasets
// in different groups.
func Resolve(token string, available []string, near string, tb TieBreak) (string, error) {
	var matches []string
	seen := make(map[string]bool)
	for _, p := range available {
		if seen[p] || !Matches(p, token) {
			continue
		}
		seen[p] = true
		matches = append(matches, p)
	}
	if len(matches) == 0 {
		return "", &ReferenceNotFoundError{Token: token, Candidates: len(available)}
	}
	if tb == TieBreakFirst || len(matches) == 1 {
		return matches[0], nil
	}

	group := tree.Parent(near)
	rank := func(p string) (exact, sameGroup bool, depth int) {
		return p == token, tree.Parent(p) == group, strings.Count(strings.Trim(p, "/"), "/")
	}
	sort.SliceStable(matches, func(i, j int) bool {
		ei, gi, di := rank(matches[i])
		ej, gj, dj := rank(matches[j])
		switch {
		case ei != ej:
			return ei
		case gi != gj:
			return gi
		case di != dj:
			// deeper paths are more specific
			return di > dj
		}
		return matches[i] < matches[j]
	})
	return matches[0], nil
}
