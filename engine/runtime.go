package engine

import (
	"log/slog"
	"strconv"

	"github.com/sahilm/fuzzy"

	"github.com/ardnew/fable/doc"
	"github.com/ardnew/fable/log"
)

// DefaultNavLimit caps consecutive nav jumps without an intervening
// suspension or section fall-through before the runtime declares a loop.
const DefaultNavLimit = 1000

// Runtime executes a parsed document deterministically: same document,
// same inputs, same binding reads, same render stream.
//
// A Runtime is single-threaded; the host drives it through Start, Step,
// Resume, and Serialize/Restore. It is not safe for concurrent use.
type Runtime struct {
	doc *doc.Document
	ctx *Context

	navLimit int
	binding  Binding
	logger   log.Logger
	initial  Value
	seed     []seedValue
}

type seedValue struct {
	path  string
	value Value
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithNavLimit overrides the consecutive-jump cap.
// Non-positive values keep the default.
func WithNavLimit(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.navLimit = n
		}
	}
}

// WithBinding injects the read-only external data source for db.* reads.
func WithBinding(b Binding) Option {
	return func(r *Runtime) { r.binding = b }
}

// WithLogger sets the structured logger.
// Without it the runtime is silent.
func WithLogger(l log.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// WithState seeds the entire variable tree from a root object value
// before the first block runs. Non-object values are ignored. Paths
// seeded through WithValue apply on top.
func WithState(root Value) Option {
	return func(r *Runtime) { r.initial = root }
}

// WithValue seeds a state path before the first block runs, so hosts can
// pre-populate variables the document expects.
func WithValue(path string, value Value) Option {
	return func(r *Runtime) {
		r.seed = append(r.seed, seedValue{path: path, value: value})
	}
}

// New creates a runtime for a parsed document.
func New(d *doc.Document, opts ...Option) *Runtime {
	r := &Runtime{
		doc:      d,
		navLimit: DefaultNavLimit,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.ctx = r.freshContext()

	return r
}

// freshContext builds a context carrying the configured initial state
// and binding.
func (r *Runtime) freshContext() *Context {
	ctx := newContext()

	if r.initial.Kind == KindObject {
		ctx.state = StateFrom(r.initial)
	}

	ctx.state.SetBinding(r.binding)

	return ctx
}

// Context returns the live execution context.
func (r *Runtime) Context() *Context { return r.ctx }

// Status returns the lifecycle state.
func (r *Runtime) Status() Status { return r.ctx.status }

// Stream returns the instructions produced since the last Start, Step,
// or Resume.
func (r *Runtime) Stream() Stream { return r.ctx.stream }

// Start begins (or restarts) execution from the first section with a fresh
// context, running until the document suspends on a form, completes, or
// fails fatally.
func (r *Runtime) Start() (Stream, error) {
	r.ctx = r.freshContext()

	for _, sv := range r.seed {
		if err := r.ctx.state.Set(sv.path, sv.value); err != nil {
			r.ctx.recordError(err, 0)
		}
	}

	if len(r.doc.Sections) == 0 {
		r.ctx.status = StatusCompleted

		return nil, nil
	}

	r.logger.Debug("start",
		slog.Int("sections", len(r.doc.Sections)),
	)

	return r.advance()
}

// Step continues execution from the context's current position without
// resetting it, until the document suspends, completes, or fails. It is
// how a host continues a restored context that was captured mid-run; on
// a context in any other status it reports the terminal stream as-is.
func (r *Runtime) Step() (Stream, error) {
	switch r.ctx.status {
	case StatusRunning:
		if len(r.doc.Sections) == 0 {
			r.ctx.status = StatusCompleted

			return nil, nil
		}

		r.ctx.stream = nil

		return r.advance()

	case StatusFatal:
		return r.ctx.stream, r.ctx.fatal

	default:
		return r.ctx.stream, nil
	}
}

// Resume supplies input for the suspended form and continues execution.
// Inputs are keyed by field name; missing optional fields take their
// declared default, missing required fields record a recoverable error
// and read as Null.
func (r *Runtime) Resume(inputs map[string]Value) (Stream, error) {
	if r.ctx.status != StatusSuspended || r.ctx.pending == nil {
		return nil, ErrNoPendingForm.With(
			slog.String("status", r.ctx.status.String()),
		)
	}

	block := r.pendingBlock()
	if block == nil {
		r.fatal(ErrCorruptContext.With(
			slog.String("issue", "pending form does not address a form block"),
		))

		return r.ctx.stream, r.ctx.fatal
	}

	r.ctx.stream = nil
	r.applyInputs(block, inputs)

	r.ctx.pending = nil
	r.ctx.status = StatusRunning
	r.ctx.block++

	return r.advance()
}

// pendingBlock resolves the suspended form block, or nil when the context
// no longer addresses one.
func (r *Runtime) pendingBlock() *doc.Block {
	p := r.ctx.pending
	if p.Section < 0 || p.Section >= len(r.doc.Sections) {
		return nil
	}

	section := &r.doc.Sections[p.Section]
	if p.Block < 0 || p.Block >= len(section.Blocks) {
		return nil
	}

	block := &section.Blocks[p.Block]
	if block.Kind != doc.KindForm {
		return nil
	}

	return block
}

// applyInputs writes form values into state, filling defaults and running
// per-field validation. Validation failures are recorded after the write:
// the value stays, the document decides what to do with it.
func (r *Runtime) applyInputs(block *doc.Block, inputs map[string]Value) {
	for i := range block.Fields {
		field := &block.Fields[i]

		value, given := inputs[field.Name]
		if !given || value.IsNull() {
			value = r.fieldDefault(field)

			if value.IsNull() && field.Required {
				r.ctx.recordError(ErrMissingInput.With(
					slog.String("field", field.Name),
				), field.Line)
			}
		}

		value = coerceInput(field.Type, value)

		if err := r.ctx.state.Set(field.Name, value); err != nil {
			r.ctx.recordError(err, field.Line)

			continue
		}

		if field.Validate != "" {
			result, err := Evaluate(field.Validate, r.ctx.state)
			if err != nil {
				r.ctx.recordError(err, field.Line)
			} else if !result.Truthy() {
				r.ctx.recordError(ErrValidation.With(
					slog.String("field", field.Name),
					slog.String("rule", field.Validate),
				), field.Line)
			}
		}
	}
}

// fieldDefault evaluates a field's default expression, yielding Null when
// absent or failing.
func (r *Runtime) fieldDefault(field *doc.Field) Value {
	if field.Default == "" {
		return Null()
	}

	value, err := Evaluate(field.Default, r.ctx.state)
	if err != nil {
		r.ctx.recordError(err, field.Line)

		return Null()
	}

	return value
}

// coerceInput nudges host-supplied values toward the declared field type:
// numeric strings become numbers, checkbox strings become booleans.
// Anything that does not coerce passes through unchanged.
func coerceInput(fieldType string, value Value) Value {
	if value.Kind != KindString {
		return value
	}

	switch fieldType {
	case "number":
		if n, err := strconv.ParseFloat(value.Str, 64); err == nil {
			return Number(n)
		}
	case "checkbox":
		switch value.Str {
		case "true", "on", "yes", "1":
			return BoolValue(true)
		case "false", "off", "no", "0", "":
			return BoolValue(false)
		}
	}

	return value
}

// advance drives execution until the runtime leaves StatusRunning.
func (r *Runtime) advance() (Stream, error) {
	for r.ctx.status == StatusRunning {
		r.section()
	}

	if r.ctx.status == StatusFatal {
		return r.ctx.stream, r.ctx.fatal
	}

	return r.ctx.stream, nil
}

// section executes the current section from the context's block cursor
// until it suspends, jumps, halts, or falls through to the next section.
func (r *Runtime) section() {
	sec := &r.doc.Sections[r.ctx.nav.Section]

	r.logger.Debug("section",
		slog.String("name", sec.Name),
		slog.Int("index", r.ctx.nav.Section),
	)

	for r.ctx.block < len(sec.Blocks) {
		block := &sec.Blocks[r.ctx.block]

		jumped := r.execute(sec, block)
		if jumped || r.ctx.status != StatusRunning {
			return
		}

		r.ctx.block++
	}

	r.fallThrough()
}

// fallThrough moves past the end of a section: into the next section, or
// to completion after the last one. The jump counter resets because a
// fall-through proves forward progress.
func (r *Runtime) fallThrough() {
	r.ctx.branches = nil
	r.ctx.jumpRun = 0

	next := r.ctx.nav.Section + 1
	if next >= len(r.doc.Sections) {
		r.ctx.status = StatusCompleted

		r.logger.Debug("completed",
			slog.Int("errors", len(r.ctx.errs)),
		)

		return
	}

	r.ctx.nav.Section = next
	r.ctx.nav.History = append(r.ctx.nav.History, next)
	r.ctx.block = 0
}

// jump performs a nav to a section addressed by name or by index.
func (r *Runtime) jump(target string, line int) (jumped bool) {
	index := r.doc.SectionIndex(target)
	if index < 0 {
		if n, err := strconv.Atoi(target); err == nil &&
			n >= 0 && n < len(r.doc.Sections) {
			index = n
		}
	}

	if index < 0 {
		err := ErrNavTarget.With(navTargetAttrs(
			target, r.doc.SectionNames(),
		)...)

		r.fatal(err)

		return false
	}

	if r.ctx.jumpRun >= r.navLimit {
		r.fatal(ErrNavigationLoop.With(
			slog.Int("jumps", r.ctx.jumpRun),
			slog.String("target", target),
			slog.Int("line", line),
		))

		return false
	}

	r.ctx.jumpRun++
	r.ctx.nav.Section = index
	r.ctx.nav.History = append(r.ctx.nav.History, index)
	r.ctx.block = 0
	r.ctx.branches = nil

	r.logger.Debug("jump",
		slog.String("target", target),
		slog.Int("run", r.ctx.jumpRun),
	)

	return true
}

// navTargetAttrs builds the attributes for a missing nav target, including
// a fuzzy-matched suggestion when one section name comes close.
func navTargetAttrs(target string, names []string) []slog.Attr {
	attrs := []slog.Attr{slog.String("target", target)}

	if matches := fuzzy.Find(target, names); len(matches) > 0 {
		attrs = append(attrs,
			slog.String("did_you_mean", matches[0].Str),
		)
	}

	return attrs
}

// fatal freezes the runtime with an unrecoverable error.
func (r *Runtime) fatal(err error) {
	r.ctx.status = StatusFatal
	r.ctx.fatal = err

	r.logger.Error("fatal", slog.Any("error", err))
}

// Serialize snapshots the execution context as JSON.
func (r *Runtime) Serialize() ([]byte, error) {
	return r.ctx.Serialize()
}

// Restore replaces the execution context with a deserialized snapshot,
// validating it against the runtime's document. A snapshot addressing
// positions the document does not have is corrupt.
func (r *Runtime) Restore(data []byte) error {
	ctx, err := deserializeContext(data)
	if err != nil {
		return err
	}

	if ctx.nav.Section < 0 || ctx.nav.Section >= len(r.doc.Sections) {
		return ErrCorruptContext.With(
			slog.Int("section", ctx.nav.Section),
			slog.Int("sections", len(r.doc.Sections)),
		)
	}

	if n := len(r.doc.Sections[ctx.nav.Section].Blocks); ctx.block > n {
		return ErrCorruptContext.With(
			slog.Int("block", ctx.block),
			slog.Int("blocks", n),
		)
	}

	ctx.state.SetBinding(r.binding)
	r.ctx = ctx

	if ctx.status == StatusSuspended && r.pendingBlock() == nil {
		r.ctx = r.freshContext()

		return ErrCorruptContext.With(
			slog.String("issue", "pending form does not address a form block"),
		)
	}

	return nil
}
