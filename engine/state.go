package engine

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
)

// State owns the variable tree: a single root object mutated only by state
// and set blocks (and form resumption).
//
// Reads are fail-soft: any missing path, out-of-range index, or wrongly
// shaped intermediate yields Null so a single bad reference degrades
// gracefully instead of halting an interactive document. Writes create
// missing intermediates, extending arrays with Null gaps and overwriting
// primitives with fresh objects as needed.
type State struct {
	root    map[string]Value
	binding Binding
}

// NewState creates an empty state.
func NewState() *State {
	return &State{root: make(map[string]Value)}
}

// StateFrom creates a state initialized from a root object value.
// Non-object values yield an empty state.
func StateFrom(root Value) *State {
	s := NewState()

	if root.Kind == KindObject {
		for key, val := range root.Object {
			s.root[key] = val.Clone()
		}
	}

	return s
}

// SetBinding injects the read-only data binding consulted for db.* reads.
func (s *State) SetBinding(b Binding) { s.binding = b }

// Root returns the state tree as an object value.
// The returned value shares storage with the state; callers must not
// mutate it.
func (s *State) Root() Value { return ObjectValue(s.root) }

// step is one parsed element of a dotted/indexed path.
type step struct {
	key     string
	index   int
	isIndex bool
}

// parsePath parses "a.b[0].c" into steps.
// Paths may carry a leading "$" marker, which is ignored.
func parsePath(path string) ([]step, bool) {
	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return nil, false
	}

	var (
		steps []step
		cur   strings.Builder
	)

	flushKey := func() bool {
		if cur.Len() == 0 {
			return false
		}

		steps = append(steps, step{key: cur.String()})
		cur.Reset()

		return true
	}

	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '.':
			if !flushKey() {
				return nil, false
			}

			// A trailing or doubled dot is malformed.
			if i+1 >= len(path) || path[i+1] == '.' {
				return nil, false
			}
		case '[':
			// Indexes may follow a key or another index.
			if cur.Len() > 0 && !flushKey() {
				return nil, false
			}

			if len(steps) == 0 {
				return nil, false
			}

			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, false
			}

			index, err := strconv.Atoi(path[i+1 : i+end])
			if err != nil || index < 0 {
				return nil, false
			}

			steps = append(steps, step{index: index, isIndex: true})
			i += end

			// A dot after "]" is a separator.
			if i+1 < len(path) && path[i+1] == '.' {
				i++

				if i+1 >= len(path) {
					return nil, false
				}
			}
		default:
			alpha := c == '_' ||
				c >= 'a' && c <= 'z' ||
				c >= 'A' && c <= 'Z' ||
				c >= '0' && c <= '9' && cur.Len() > 0

			if !alpha {
				return nil, false
			}

			cur.WriteByte(c)
		}
	}

	if cur.Len() > 0 && !flushKey() {
		return nil, false
	}

	if len(steps) == 0 || steps[0].isIndex {
		return nil, false
	}

	return steps, true
}

// Get resolves a dotted/indexed path against the current tree.
// Every failure mode yields Null.
func (s *State) Get(path string) Value {
	steps, ok := parsePath(path)
	if !ok {
		return Null()
	}

	if steps[0].key == bindingRoot {
		return s.lookupBinding(steps)
	}

	value, found := s.root[steps[0].key]
	if !found {
		return Null()
	}

	for _, st := range steps[1:] {
		switch {
		case st.isIndex:
			if value.Kind != KindArray ||
				st.index >= len(value.Array) {
				return Null()
			}

			value = value.Array[st.index]
		default:
			if value.Kind != KindObject {
				return Null()
			}

			var ok bool
			if value, ok = value.Object[st.key]; !ok {
				return Null()
			}
		}
	}

	return value
}

// lookupBinding routes a db.* read through the injected binding.
// Absent binding or lookup failure yields Null.
func (s *State) lookupBinding(steps []step) Value {
	if s.binding == nil || len(steps) < 2 {
		return Null()
	}

	var b strings.Builder

	for i, st := range steps[1:] {
		if st.isIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(st.index))
			b.WriteByte(']')

			continue
		}

		if i > 0 {
			b.WriteByte('.')
		}

		b.WriteString(st.key)
	}

	value, err := s.binding.Lookup(b.String())
	if err != nil {
		return Null()
	}

	return value
}

// Set assigns a value at a path, creating intermediate containers as
// needed. Writing through an existing primitive replaces it with a fresh
// object (or array, for an index step); this is deliberate, not an error.
func (s *State) Set(path string, value Value) error {
	steps, ok := parsePath(path)
	if !ok {
		return ErrBadPath.With(slog.String("path", path))
	}

	if steps[0].key == bindingRoot {
		return ErrReservedPath.With(slog.String("path", path))
	}

	s.root[steps[0].key] = setIn(s.root[steps[0].key], steps[1:], value)

	return nil
}

// setIn descends into container following steps, materializing whatever
// shape each step requires, and returns the updated container.
func setIn(container Value, steps []step, value Value) Value {
	if len(steps) == 0 {
		return value
	}

	st := steps[0]

	if st.isIndex {
		if container.Kind != KindArray {
			container = ArrayValue(nil)
		}

		for len(container.Array) <= st.index {
			container.Array = append(container.Array, Null())
		}

		container.Array[st.index] = setIn(
			container.Array[st.index], steps[1:], value,
		)

		return container
	}

	if container.Kind != KindObject {
		container = ObjectValue(nil)
	}

	container.Object[st.key] = setIn(container.Object[st.key], steps[1:], value)

	return container
}

// Expand replaces every {{expr}} occurrence, and every $path reference
// outside braces, with the display form of its evaluation. Null expands to
// the empty string. A failed expression also contributes the empty string,
// and its error is returned so the caller can report it; $path references
// are fail-soft reads and never error.
func (s *State) Expand(template string) (string, []error) {
	var (
		b    strings.Builder
		errs []error
	)

	for i := 0; i < len(template); {
		switch {
		case strings.HasPrefix(template[i:], "{{"):
			end := strings.Index(template[i+2:], "}}")
			if end < 0 {
				// Unterminated braces are literal text.
				b.WriteString(template[i:])

				return b.String(), errs
			}

			expr := template[i+2 : i+2+end]

			value, err := Evaluate(expr, s)
			if err != nil {
				errs = append(errs, err)
			} else {
				b.WriteString(value.Display())
			}

			i += end + 4
		case template[i] == '$':
			path, width := scanDollarPath(template[i+1:])
			if width == 0 {
				b.WriteByte('$')
				i++

				continue
			}

			b.WriteString(s.Get(path).Display())

			i += width + 1
		default:
			b.WriteByte(template[i])
			i++
		}
	}

	return b.String(), errs
}

// Interpolate is Expand without the error report, for callers that only
// want the fail-soft expansion.
func (s *State) Interpolate(template string) string {
	out, _ := s.Expand(template)

	return out
}

// scanDollarPath consumes a path reference after '$'.
// It accepts identifier characters, dots followed by identifiers, and
// bracketed integer indexes.
func scanDollarPath(s string) (path string, width int) {
	i := 0

	identChar := func(c byte) bool {
		return c == '_' ||
			c >= 'a' && c <= 'z' ||
			c >= 'A' && c <= 'Z' ||
			c >= '0' && c <= '9'
	}

	if i >= len(s) || s[i] >= '0' && s[i] <= '9' || !identChar(s[i]) {
		return "", 0
	}

	for i < len(s) {
		switch {
		case identChar(s[i]):
			i++
		case s[i] == '.' && i+1 < len(s) && identChar(s[i+1]) &&
			!(s[i+1] >= '0' && s[i+1] <= '9'):
			i += 2
		case s[i] == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return s[:i], i
			}

			if _, err := strconv.Atoi(s[i+1 : i+end]); err != nil {
				return s[:i], i
			}

			i += end + 1
		default:
			return s[:i], i
		}
	}

	return s[:i], i
}

// MarshalJSON implements json.Marshaler: the persisted state format is a
// JSON object mirroring the tree exactly.
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Root())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *State) UnmarshalJSON(data []byte) error {
	var root Value

	err := root.UnmarshalJSON(data)
	if err != nil {
		return err
	}

	if root.Kind != KindObject {
		return ErrCorruptContext.
			With(slog.String("issue", "state snapshot is not an object"))
	}

	s.root = root.Object

	return nil
}

// SerializeState renders the state tree as JSON.
func SerializeState(s *State) ([]byte, error) {
	return s.MarshalJSON()
}

// DeserializeState reconstructs a state from its JSON snapshot.
func DeserializeState(data []byte) (*State, error) {
	s := NewState()

	err := s.UnmarshalJSON(data)
	if err != nil {
		return nil, err
	}

	return s, nil
}
