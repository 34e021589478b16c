package form

import (
	"slices"
	"strings"
)

const pathSep = "."

// State carries information about the surrounding form between a rejected
// submission and the next render: errors keyed by element path.
type State struct {
	errors map[string]string
}

// NewState returns an empty State.
func NewState() *State {
	return &State{errors: make(map[string]string)}
}

// SetError records msg for the element at path.
func (s *State) SetError(msg string, path ...string) {
	if s.errors == nil {
		s.errors = make(map[string]string)
	}
	s.errors[strings.Join(path, pathSep)] = msg
}

// HasErrors reports whether any error was recorded. A nil State has none.
func (s *State) HasErrors() bool {
	return s != nil && len(s.errors) > 0
}

// Apply copies recorded errors onto the matching elements of root, which is
// mounted at prefix. Errors outside root, or for elements it lacks, are skipped.
func (s *State) Apply(root *Element, prefix ...string) {
	if !s.HasErrors() {
		return
	}
	for key, msg := range s.errors {
		path := strings.Split(key, pathSep)
		if len(path) < len(prefix) || !slices.Equal(path[:len(prefix)], prefix) {
			continue
		}
		if el := root.Find(path[len(prefix):]...); el != nil {
			el.Error = msg
		}
	}
}
