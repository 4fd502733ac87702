package engine

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/ardnew/fable/doc"
)

// execute runs one block, honoring the branch stack. Branch markers always
// execute; everything else is skipped while inside an untaken branch.
// Reports whether the block performed a nav jump.
func (r *Runtime) execute(sec *doc.Section, block *doc.Block) bool {
	switch block.Kind {
	case doc.KindIf:
		r.execIf(block)

		return false
	case doc.KindElse:
		r.execElse()

		return false
	case doc.KindEndIf:
		r.execEndIf()

		return false
	}

	if !r.ctx.blockActive() {
		return false
	}

	r.logger.Trace("block",
		slog.String("kind", block.Kind.String()),
		slog.String("section", sec.Name),
		slog.Int("line", block.Span.Start),
	)

	switch block.Kind {
	case doc.KindText:
		r.ctx.emit(Text{Content: r.interpolate(block.Body, block.Span.Start)})
	case doc.KindOpaque:
		r.execOpaque(block)
	case doc.KindInvalid:
		r.ctx.recordError(ErrBlockSpec.With(
			slog.String("block", block.Tag),
			slog.String("detail", block.Err),
		), block.Span.Start)
	case doc.KindState, doc.KindSet:
		r.execAssigns(block)
	case doc.KindForm:
		r.execForm(block)
	case doc.KindNav:
		return r.execNav(block)
	case doc.KindPanel:
		r.execPanel(block)
	case doc.KindMap:
		r.execMap(block)
	}

	return false
}

// execIf evaluates the branch condition and pushes a nesting level.
// A missing condition defaults to true; a failed one records the error
// and leaves the branch untaken.
func (r *Runtime) execIf(block *doc.Block) {
	parent := r.ctx.blockActive()
	taken := false

	if parent {
		cond := block.Param("cond")
		if cond == "" {
			taken = true
		} else {
			value, err := Evaluate(cond, r.ctx.state)
			if err != nil {
				r.ctx.recordError(err, block.Span.Start)
			} else {
				taken = value.Truthy()
			}
		}
	}

	r.ctx.branches = append(r.ctx.branches, branch{
		ParentActive: parent,
		Taken:        taken,
		Active:       taken,
	})
}

// execElse flips the innermost branch: active iff no earlier arm ran.
// An unmatched else is a parse warning; at execution time it is ignored.
func (r *Runtime) execElse() {
	if len(r.ctx.branches) == 0 {
		return
	}

	top := &r.ctx.branches[len(r.ctx.branches)-1]
	top.Active = top.ParentActive && !top.Taken
	top.Taken = true
}

func (r *Runtime) execEndIf() {
	if len(r.ctx.branches) == 0 {
		return
	}

	r.ctx.branches = r.ctx.branches[:len(r.ctx.branches)-1]
}

// execOpaque re-emits an unrecognized fence verbatim, no interpolation.
func (r *Runtime) execOpaque(block *doc.Block) {
	var b strings.Builder

	b.WriteString("```")
	b.WriteString(block.Tag)
	b.WriteByte('\n')
	b.WriteString(block.Body)

	if block.Body != "" {
		b.WriteByte('\n')
	}

	b.WriteString("```")

	r.ctx.emit(Text{Content: b.String()})
}

// interpolate expands a template against state, recording every failed
// expression as a recoverable error attributed to line.
func (r *Runtime) interpolate(template string, line int) string {
	out, errs := r.ctx.state.Expand(template)
	for _, err := range errs {
		r.ctx.recordError(err, line)
	}

	return out
}

// execAssigns runs a state or set block. The two are semantically
// identical: each line assigns unconditionally, so re-declaring a path
// overwrites the previous value. Each line fails independently.
func (r *Runtime) execAssigns(block *doc.Block) {
	for _, assign := range block.Assigns {
		value, err := Evaluate(assign.Expr, r.ctx.state)
		if err != nil {
			r.ctx.recordError(err, assign.Line)

			continue
		}

		if err := r.ctx.state.Set(assign.Path, value); err != nil {
			r.ctx.recordError(err, assign.Line)
		}
	}
}

// execForm emits the field instructions and suspends the runtime.
// Labels interpolate; defaults evaluate to their display form so the host
// can pre-fill inputs.
func (r *Runtime) execForm(block *doc.Block) {
	for i := range block.Fields {
		field := &block.Fields[i]

		inst := FormField{
			Name:     field.Name,
			Label:    r.interpolate(field.Label, field.Line),
			Kind:     field.Type,
			Required: field.Required,
			Options:  field.Options,
		}

		if value := r.fieldDefault(field); !value.IsNull() {
			inst.Default = value.Display()
		}

		r.ctx.emit(inst)
	}

	r.ctx.pending = &pendingForm{
		Section: r.ctx.nav.Section,
		Block:   r.ctx.block,
	}
	r.ctx.status = StatusSuspended
	r.ctx.jumpRun = 0

	r.logger.Debug("suspend",
		slog.Int("fields", len(block.Fields)),
		slog.Int("line", block.Span.Start),
	)
}

// execNav jumps to the target section, unless a guard expression is
// present and falsy. Both guard= and cond= name the expression, matching
// the if-block spelling. Reports whether the jump happened.
func (r *Runtime) execNav(block *doc.Block) bool {
	guard := block.Param("guard")
	if guard == "" {
		guard = block.Param("cond")
	}

	if guard != "" {
		value, err := Evaluate(guard, r.ctx.state)
		if err != nil {
			r.ctx.recordError(err, block.Span.Start)

			return false
		}

		if !value.Truthy() {
			return false
		}
	}

	target := r.interpolate(block.Param("target"), block.Span.Start)

	return r.jump(target, block.Span.Start)
}

// execPanel emits a display widget with every entry interpolated.
func (r *Runtime) execPanel(block *doc.Block) {
	widget := PanelWidget{
		Title:   r.interpolate(block.Param("title"), block.Span.Start),
		Entries: make([]PanelEntry, 0, len(block.Entries)),
	}

	for _, entry := range block.Entries {
		widget.Entries = append(widget.Entries, PanelEntry{
			Label: r.interpolate(entry.Key, entry.Line),
			Text:  r.interpolate(entry.Raw, entry.Line),
		})
	}

	r.ctx.emit(widget)
}

// execMap emits a tile grid. Dimensions are runtime-validated because
// rows/cols may interpolate from state; a bad grid is a recoverable error
// and the block is skipped.
func (r *Runtime) execMap(block *doc.Block) {
	rows, okRows := r.dimension(block.Param("rows"), block.Span.Start)
	cols, okCols := r.dimension(block.Param("cols"), block.Span.Start)

	if !okRows || !okCols {
		r.ctx.recordError(ErrBlockSpec.With(
			slog.String("block", "map"),
			slog.String("rows", block.Param("rows")),
			slog.String("cols", block.Param("cols")),
		), block.Span.Start)

		return
	}

	grid := MapGrid{Rows: rows, Cols: cols}

	for _, tile := range block.Tiles {
		if tile.When != "" {
			value, err := Evaluate(tile.When, r.ctx.state)
			if err != nil {
				r.ctx.recordError(err, tile.Line)

				continue
			}

			if !value.Truthy() {
				continue
			}
		}

		if tile.X < 0 || tile.X >= cols || tile.Y < 0 || tile.Y >= rows {
			r.ctx.recordError(ErrBlockSpec.With(
				slog.String("block", "map"),
				slog.String("tile",
					strconv.Itoa(tile.X)+","+strconv.Itoa(tile.Y)),
				slog.String("detail", "coordinate outside grid"),
			), tile.Line)

			continue
		}

		grid.Tiles = append(grid.Tiles, MapTile{
			X:      tile.X,
			Y:      tile.Y,
			Sprite: r.interpolate(tile.Sprite, tile.Line),
			Label:  r.interpolate(tile.Label, tile.Line),
		})
	}

	r.ctx.emit(grid)
}

// dimension resolves a rows/cols parameter, interpolating state
// references first. Valid dimensions are positive integers.
func (r *Runtime) dimension(raw string, line int) (int, bool) {
	resolved := r.interpolate(raw, line)

	n, err := strconv.Atoi(strings.TrimSpace(resolved))
	if err != nil || n <= 0 {
		return 0, false
	}

	return n, true
}
