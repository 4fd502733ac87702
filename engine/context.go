package engine

import (
	"encoding/json"
	"log/slog"
)

// Status is the runtime lifecycle state.
type Status int

const (
	// StatusRunning means the runtime is mid-section and can Step.
	StatusRunning Status = iota

	// StatusSuspended means a form is awaiting host input; only Resume
	// makes progress.
	StatusSuspended

	// StatusCompleted means the document ran off its last section.
	StatusCompleted

	// StatusFatal means an unrecoverable error halted execution; the
	// context is frozen for inspection.
	StatusFatal
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "Running"
	case StatusSuspended:
		return "Suspended"
	case StatusCompleted:
		return "Completed"
	case StatusFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// Navigation records where execution is and how it got there.
type Navigation struct {
	// Section is the index of the section currently executing.
	Section int `json:"section"`

	// History lists every section entered, in order, including the
	// current one.
	History []int `json:"history"`
}

// ExecError is one recoverable error recorded during execution.
type ExecError struct {
	Message string `json:"message"`
	Section int    `json:"section"`
	Line    int    `json:"line,omitempty"`
}

// pendingForm identifies the form block a suspended runtime waits on.
type pendingForm struct {
	Section int `json:"section"`
	Block   int `json:"block"`
}

// branch is one level of if/else nesting during section execution.
//
// active is whether blocks at this depth execute right now; taken is
// whether any arm at this depth has executed, which else consults.
type branch struct {
	ParentActive bool `json:"parent_active"`
	Taken        bool `json:"taken"`
	Active       bool `json:"active"`
}

// Context is the complete execution state of one document run: variables,
// position, render output, and error log. It is serializable, so a run can
// suspend, persist, and resume in another process.
type Context struct {
	state  *State
	nav    Navigation
	stream Stream
	errs   []ExecError

	status   Status
	block    int
	pending  *pendingForm
	branches []branch

	// jumpRun counts consecutive navigations without an intervening
	// suspension or fall-through, for loop detection.
	jumpRun int

	fatal error
}

// newContext creates a fresh context positioned at the first section.
func newContext() *Context {
	return &Context{
		state: NewState(),
		nav:   Navigation{History: []int{0}},
	}
}

// Status returns the lifecycle state.
func (c *Context) Status() Status { return c.status }

// State returns the variable tree manager.
func (c *Context) State() *State { return c.state }

// Navigation returns a copy of the navigation record.
func (c *Context) Navigation() Navigation {
	nav := c.nav
	nav.History = append([]int(nil), c.nav.History...)

	return nav
}

// Stream returns the render stream accumulated for the current section.
func (c *Context) Stream() Stream { return c.stream }

// Errors returns the recoverable errors recorded so far.
func (c *Context) Errors() []ExecError { return c.errs }

// FatalError returns the error that halted execution, or nil.
func (c *Context) FatalError() error { return c.fatal }

// recordError logs a recoverable error and surfaces it in-stream.
func (c *Context) recordError(err error, line int) {
	c.errs = append(c.errs, ExecError{
		Message: err.Error(),
		Section: c.nav.Section,
		Line:    line,
	})

	c.stream = append(c.stream, RenderError{
		Message: err.Error(),
		Line:    line,
	})
}

// emit appends an instruction to the render stream.
func (c *Context) emit(inst Instruction) {
	c.stream = append(c.stream, inst)
}

// blockActive reports whether the current branch nesting permits
// execution.
func (c *Context) blockActive() bool {
	if len(c.branches) == 0 {
		return true
	}

	top := c.branches[len(c.branches)-1]

	return top.ParentActive && top.Active
}

// snapshot is the serialized context wire shape.
type snapshot struct {
	State    json.RawMessage `json:"state"`
	Nav      Navigation      `json:"navigation"`
	Stream   Stream          `json:"stream"`
	Errors   []ExecError     `json:"errors,omitempty"`
	Status   Status          `json:"status"`
	Block    int             `json:"block"`
	Pending  *pendingForm    `json:"pending_form,omitempty"`
	Branches []branch        `json:"branches,omitempty"`
	JumpRun  int             `json:"jump_run"`
	Fatal    string          `json:"fatal,omitempty"`
}

// Serialize renders the full context as JSON. The result round-trips
// through [Runtime.Restore].
func (c *Context) Serialize() ([]byte, error) {
	stateJSON, err := c.state.MarshalJSON()
	if err != nil {
		return nil, err
	}

	snap := snapshot{
		State:    stateJSON,
		Nav:      c.Navigation(),
		Stream:   c.stream,
		Errors:   c.errs,
		Status:   c.status,
		Block:    c.block,
		Pending:  c.pending,
		Branches: c.branches,
		JumpRun:  c.jumpRun,
	}

	if c.fatal != nil {
		snap.Fatal = c.fatal.Error()
	}

	return json.Marshal(snap)
}

// deserializeContext reconstructs a context from its JSON snapshot.
// Structural problems surface as [ErrCorruptContext]; bounds against the
// document are the runtime's to validate.
func deserializeContext(data []byte) (*Context, error) {
	var snap snapshot

	err := json.Unmarshal(data, &snap)
	if err != nil {
		return nil, ErrCorruptContext.Wrap(err)
	}

	if snap.Status < StatusRunning || snap.Status > StatusFatal {
		return nil, ErrCorruptContext.With(
			slog.Int("status", int(snap.Status)),
		)
	}

	state := NewState()

	if len(snap.State) > 0 {
		err = state.UnmarshalJSON(snap.State)
		if err != nil {
			return nil, err
		}
	}

	c := &Context{
		state:    state,
		nav:      snap.Nav,
		stream:   snap.Stream,
		errs:     snap.Errors,
		status:   snap.Status,
		block:    snap.Block,
		pending:  snap.Pending,
		branches: snap.Branches,
		jumpRun:  snap.JumpRun,
	}

	if snap.Fatal != "" {
		c.fatal = NewFatal(snap.Fatal)
	}

	if len(c.nav.History) == 0 {
		c.nav.History = []int{c.nav.Section}
	}

	return c, nil
}
