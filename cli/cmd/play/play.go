// Package play runs documents interactively in the terminal.
//
// The engine suspends on each form block; play prompts for the fields
// one at a time and resumes with the collected answers, printing every
// render instruction into the scrollback as it arrives.
package play

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/fable/engine"
)

// Styles.
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	textStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")).
			Bold(true)
)

const fieldPrompt = "➜ "

// model is the Bubble Tea model for the interactive player.
type model struct {
	rt    *engine.Runtime
	input textinput.Model

	fields []engine.FormField
	values map[string]engine.Value
	idx    int

	pending  []string // output lines not yet flushed to scrollback
	err      error
	quitting bool
}

// Run executes the runtime interactively.
func Run(ctx context.Context, rt *engine.Runtime) error {
	stream, err := rt.Start()

	lines, fields := ingest(stream)

	if rt.Status() != engine.StatusSuspended {
		// Nothing to prompt for; print the whole run and finish.
		for _, line := range lines {
			fmt.Println(line)
		}

		return err
	}

	m := newModel(rt, lines, fields)

	p := tea.NewProgram(m, tea.WithContext(ctx))

	final, err := p.Run()
	if err != nil {
		return err
	}

	if fm, ok := final.(model); ok {
		return fm.err
	}

	return nil
}

const defaultWidth = 80

func newModel(
	rt *engine.Runtime,
	pending []string,
	fields []engine.FormField,
) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(fieldPrompt)
	ti.Focus()
	ti.CharLimit = 1024
	ti.Width = defaultWidth

	m := model{
		rt:      rt,
		input:   ti,
		fields:  fields,
		values:  make(map[string]engine.Value, len(fields)),
		pending: pending,
	}

	m.preparePrompt()

	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.flush())
}

// flush moves pending output lines into the terminal scrollback.
func (m *model) flush() tea.Cmd {
	if len(m.pending) == 0 {
		return nil
	}

	cmds := make([]tea.Cmd, len(m.pending))
	for i, line := range m.pending {
		cmds[i] = tea.Println(line)
	}

	m.pending = nil

	return tea.Sequence(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - len(fieldPrompt) - 2

		return m, nil
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true

		return m, tea.Quit

	case tea.KeyEnter:
		return m.submitField()
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

// submitField records the answer for the current field and either moves
// to the next field or resumes the engine with the full set.
func (m model) submitField() (model, tea.Cmd) {
	field := m.fields[m.idx]
	answer := strings.TrimSpace(m.input.Value())

	// Empty input falls back to the field default inside the engine.
	if answer != "" {
		m.values[field.Name] = engine.StringValue(answer)
	}

	echo := tea.Println(
		promptStyle.Render(fieldPrompt) +
			hintStyle.Render(field.Label+": ") +
			textStyle.Render(answer),
	)

	m.input.SetValue("")
	m.idx++

	if m.idx < len(m.fields) {
		m.preparePrompt()

		return m, echo
	}

	return m.resume(echo)
}

// resume feeds the collected answers back into the engine and either
// arms the next form or finishes the run.
func (m model) resume(echo tea.Cmd) (model, tea.Cmd) {
	stream, err := m.rt.Resume(m.values)

	lines, fields := ingest(stream)
	m.pending = append(m.pending, lines...)

	if m.rt.Status() == engine.StatusSuspended {
		m.fields = fields
		m.values = make(map[string]engine.Value, len(fields))
		m.idx = 0
		m.preparePrompt()

		return m, tea.Sequence(echo, m.flush())
	}

	m.err = err
	m.quitting = true

	if err != nil {
		m.pending = append(m.pending, errorStyle.Render("✗ "+err.Error()))
	} else {
		m.pending = append(m.pending, statusStyle.Render("✔ The End"))
	}

	return m, tea.Sequence(echo, m.flush(), tea.Quit)
}

// preparePrompt configures the input for the current field.
func (m *model) preparePrompt() {
	if m.idx >= len(m.fields) {
		return
	}

	field := m.fields[m.idx]

	m.input.Placeholder = field.Default
	if field.Kind == "checkbox" {
		m.input.Placeholder = "yes/no"
	}
}

func (m model) View() string {
	if m.quitting || m.idx >= len(m.fields) {
		return ""
	}

	field := m.fields[m.idx]

	var b strings.Builder

	b.WriteString(titleStyle.Render(field.Label))

	if field.Required {
		b.WriteString(hintStyle.Render(" (required)"))
	}

	b.WriteString("\n")

	if len(field.Options) > 0 {
		b.WriteString(hintStyle.Render("  " + strings.Join(field.Options, " | ")))
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")

	return b.String()
}

// ingest renders a stream into display lines and collects form fields.
func ingest(stream engine.Stream) (lines []string, fields []engine.FormField) {
	for _, inst := range stream {
		switch inst := inst.(type) {
		case engine.Text:
			lines = append(lines, textStyle.Render(inst.Content), "")

		case engine.FormField:
			fields = append(fields, inst)

		case engine.PanelWidget:
			lines = append(lines, renderPanel(inst), "")

		case engine.MapGrid:
			lines = append(lines, renderGrid(inst), "")

		case engine.RenderError:
			lines = append(lines, errorStyle.Render(
				fmt.Sprintf("✗ %s (line %d)", inst.Message, inst.Line),
			))
		}
	}

	return lines, fields
}

// renderPanel draws a panel widget inside a rounded border.
func renderPanel(panel engine.PanelWidget) string {
	var b strings.Builder

	if panel.Title != "" {
		b.WriteString(titleStyle.Render(panel.Title))
		b.WriteString("\n")
	}

	width := 0
	for _, entry := range panel.Entries {
		if n := lipgloss.Width(entry.Label); n > width {
			width = n
		}
	}

	for i, entry := range panel.Entries {
		if i > 0 {
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "%-*s  %s",
			width, hintStyle.Render(entry.Label), textStyle.Render(entry.Text),
		)
	}

	return panelStyle.Render(b.String())
}

// renderGrid draws a tile grid with '·' for empty cells.
func renderGrid(grid engine.MapGrid) string {
	var b strings.Builder

	for _, row := range grid.Cells('·') {
		b.WriteString(textStyle.Render(string(row)))
		b.WriteString("\n")
	}

	for _, tile := range grid.Tiles {
		if tile.Label != "" {
			b.WriteString(hintStyle.Render(
				fmt.Sprintf("  (%d,%d) %s", tile.X, tile.Y, tile.Label),
			))
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
