// Package pathfilter selects the paths matching a user search pattern.
//
// Patterns are regular expressions (RE2 syntax) matched anywhere in the path,
// case-insensitively unless configured otherwise. A plain word therefore behaves
// as a substring search. The result keeps the input order.
package pathfilter

import (
	"fmt"
	"regexp"
	"strings"
)

// InvalidPolicy decides what happens when a pattern does not compile.
type InvalidPolicy int

const (
	// Reject fails with a PatternError.
	Reject InvalidPolicy = iota
	// Substring matches the pattern literally as a substring.
	Substring
)

// ParsePolicy maps a configuration value ("error" or "substring") to a policy.
func ParsePolicy(s string) (InvalidPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "error":
		return Reject, nil
	case "substring":
		return Substring, nil
	default:
		return Reject, fmt.Errorf("unknown invalid-pattern policy %q", s)
	}
}

// PatternError reports a search pattern that is not a valid regular expression.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid search pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Filter matches paths against patterns.
type Filter struct {
	caseSensitive bool
	onInvalid     InvalidPolicy
}

// Option configures a Filter.
type Option func(*Filter)

// CaseSensitive makes matching case-sensitive.
func CaseSensitive() Option { return func(f *Filter) { f.caseSensitive = true } }

// OnInvalid sets the invalid-pattern policy.
func OnInvalid(p InvalidPolicy) Option { return func(f *Filter) { f.onInvalid = p } }

// New returns a Filter. By default it is case-insensitive and rejects invalid patterns.
func New(opts ...Option) *Filter {
	f := &Filter{}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Apply returns the paths matching pattern. An empty pattern returns paths unchanged.
func (f *Filter) Apply(paths []string, pattern string) ([]string, error) {
	if pattern == "" {
		return paths, nil
	}

	match, err := f.matcher(pattern)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *Filter) matcher(pattern string) (func(string) bool, error) {
	expr := pattern
	if !f.caseSensitive {
		expr = "(?i)" + pattern
	}
	re, err := regexp.Compile(expr)
	if err == nil {
		return re.MatchString, nil
	}
	if f.onInvalid != Substring {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}

	if f.caseSensitive {
		return func(s string) bool { return strings.Contains(s, pattern) }, nil
	}
	lower := strings.ToLower(pattern)
	return func(s string) bool { return strings.Contains(strings.ToLower(s), lower) }, nil
}

// Apply filters with the default Filter.
func Apply(paths []string, pattern string) ([]string, error) {
	return New().Apply(paths, pattern)
}
