package lds

import (
	"fmt"
	"sort"
	"strings"
)

// MultiErr maps names (usually resource URIs) to the errors encountered processing them.
// It is returned by operations that fan out over several independent writes,
// none of which is rolled back when another fails.
type MultiErr map[string]error

// Error implements the error interface.
func (e MultiErr) Error() string {
	var strs []string
	for _, name := range e.names() {
		strs = append(strs, fmt.Sprintf("%s: %s", name, e[name]))
	}
	return "error(s): " + strings.Join(strs, "; ")
}

// Unwrap exposes the individual errors to errors.Is and errors.As,
// in name order.
func (e MultiErr) Unwrap() []error {
	var errs []error
	for _, name := range e.names() {
		errs = append(errs, e[name])
	}
	return errs
}

func (e MultiErr) names() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
