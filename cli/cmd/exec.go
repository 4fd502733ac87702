package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/fable/engine"
	"github.com/ardnew/fable/log"
)

// Exec runs a document to completion without a terminal UI. Form
// suspensions are answered from --input values, so scripted runs stay
// deterministic and non-interactive.
type Exec struct {
	Source string `arg:"" default:"-" help:"Document file or '-' for stdin"`

	Set    []string `help:"Seed state before execution"      placeholder:"PATH=VALUE"  short:"s"`
	Input  []string `help:"Answer form fields by name"       placeholder:"NAME=VALUE"  short:"i"`
	Format string   `help:"Render stream output format"      enum:"text,json"          default:"text"`
	State  bool     `help:"Dump final state as YAML"`

	NavLimit int `help:"Maximum consecutive navigation jumps" default:"1000"`
}

// resumeCap bounds how many forms a single exec run will answer, so a
// document that loops back into the same form cannot spin forever on a
// fixed input set.
const resumeCap = 100

// Run executes the exec command.
func (e *Exec) Run(ctx context.Context) error {
	out := io.Writer(os.Stdout)
	if ktx := kongContextFrom(ctx); ktx != nil {
		out = ktx.Stdout
	}

	d, _, err := loadDocument(ctx, e.Source)
	if err != nil {
		return err
	}

	opts := []engine.Option{
		engine.WithNavLimit(e.NavLimit),
		engine.WithLogger(log.Default()),
	}

	for _, pair := range e.Set {
		path, value, ok := splitPair(pair)
		if !ok {
			return &ArgumentError{Flag: "--set", Value: pair}
		}

		opts = append(opts, engine.WithValue(path, parseScalar(value)))
	}

	inputs := make(map[string]engine.Value, len(e.Input))

	for _, pair := range e.Input {
		name, value, ok := splitPair(pair)
		if !ok {
			return &ArgumentError{Flag: "--input", Value: pair}
		}

		inputs[name] = parseScalar(value)
	}

	rt := engine.New(d, opts...)

	stream, err := rt.Start()

	for resumes := 0; err == nil &&
		rt.Status() == engine.StatusSuspended; resumes++ {
		if resumes >= resumeCap {
			break
		}

		if err := e.render(out, stream); err != nil {
			return err
		}

		stream, err = rt.Resume(inputs)
	}

	if renderErr := e.render(out, stream); renderErr != nil {
		return renderErr
	}

	log.DebugContext(ctx, "exec finished",
		slog.String("status", rt.Status().String()),
		slog.Int("errors", len(rt.Context().Errors())),
	)

	if e.State {
		if dumpErr := dumpState(out, rt); dumpErr != nil {
			return dumpErr
		}
	}

	return err
}

// render writes one render stream to out in the selected format.
func (e *Exec) render(out io.Writer, stream engine.Stream) error {
	if len(stream) == 0 {
		return nil
	}

	if e.Format == "json" {
		data, err := json.MarshalIndent(stream, "", "  ")
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(out, string(data))

		return err
	}

	for _, inst := range stream {
		renderText(out, inst)
	}

	return nil
}

// renderText writes one instruction as plain text.
func renderText(out io.Writer, inst engine.Instruction) {
	switch inst := inst.(type) {
	case engine.Text:
		fmt.Fprintln(out, inst.Content)
		fmt.Fprintln(out)
	case engine.FormField:
		suffix := ""
		if inst.Required {
			suffix = " (required)"
		}

		fmt.Fprintf(out, "? %s [%s %s]%s\n", inst.Label, inst.Name, inst.Kind, suffix)

		if len(inst.Options) > 0 {
			fmt.Fprintf(out, "  options: %s\n", strings.Join(inst.Options, ", "))
		}
	case engine.PanelWidget:
		if inst.Title != "" {
			fmt.Fprintf(out, "== %s ==\n", inst.Title)
		}

		for _, entry := range inst.Entries {
			fmt.Fprintf(out, "%s: %s\n", entry.Label, entry.Text)
		}

		fmt.Fprintln(out)
	case engine.MapGrid:
		fmt.Fprint(out, renderGrid(inst))
	case engine.RenderError:
		fmt.Fprintf(out, "! %s (line %d)\n", inst.Message, inst.Line)
	}
}

// renderGrid draws a tile grid with '.' for empty cells.
func renderGrid(grid engine.MapGrid) string {
	var b strings.Builder

	for _, row := range grid.Cells('.') {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}

	for _, tile := range grid.Tiles {
		if tile.Label != "" {
			fmt.Fprintf(&b, "  (%d,%d) %s\n", tile.X, tile.Y, tile.Label)
		}
	}

	b.WriteByte('\n')

	return b.String()
}

// dumpState writes the final state tree as YAML.
func dumpState(out io.Writer, rt *engine.Runtime) error {
	data, err := yaml.Marshal(rt.Context().State().Root().ToNative())
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "---")
	_, err = out.Write(data)

	return err
}

// ArgumentError reports a malformed NAME=VALUE flag argument.
type ArgumentError struct {
	Flag  string
	Value string
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s expects NAME=VALUE, got %q", e.Flag, e.Value)
}
