package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Styles for pretty text output.
//
//nolint:gochecknoglobals
var (
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	traceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	debugStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	msgStyle   = lipgloss.NewStyle().Bold(true)
)

// prettyTextHandler implements a colorized text handler for log messages.
type prettyTextHandler struct {
	opts       slog.HandlerOptions
	mu         *sync.Mutex
	w          io.Writer
	timeLayout string
	attrs      []slog.Attr
	groups     []string
}

func newPrettyTextHandler(
	w io.Writer,
	opts *slog.HandlerOptions,
	timeLayout string,
) *prettyTextHandler {
	return &prettyTextHandler{
		opts:       *opts,
		mu:         &sync.Mutex{},
		w:          w,
		timeLayout: timeLayout,
	}
}

func (h *prettyTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *prettyTextHandler) Handle(_ context.Context, r slog.Record) error {
	buf := new(bytes.Buffer)

	if !r.Time.IsZero() {
		buf.WriteString(timeStyle.Render(r.Time.Format(h.timeLayout)))
		buf.WriteByte(' ')
	}

	buf.WriteString(levelStyle(r.Level).Render(levelName(r.Level)))
	buf.WriteByte(' ')

	if h.opts.AddSource {
		if src := r.Source(); src != nil {
			buf.WriteString(keyStyle.Render(
				src.File + ":" + strconv.Itoa(src.Line),
			))
			buf.WriteByte(' ')
		}
	}

	buf.WriteString(msgStyle.Render(r.Message))

	for _, a := range h.attrs {
		h.writeAttr(buf, a)
	}

	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(buf, a)

		return true
	})

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

func (h *prettyTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)

	return &clone
}

func (h *prettyTextHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.groups = append(h.groups[:len(h.groups):len(h.groups)], name)

	return &clone
}

func (h *prettyTextHandler) writeAttr(buf *bytes.Buffer, a slog.Attr) {
	a.Value = a.Value.Resolve()

	key := a.Key
	for i := len(h.groups) - 1; i >= 0; i-- {
		key = h.groups[i] + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			ga.Key = key + "." + ga.Key
			h.writeAttr(buf, ga)
		}

		return
	}

	buf.WriteByte(' ')
	buf.WriteString(keyStyle.Render(key + "="))
	buf.WriteString(fmt.Sprint(a.Value.Any()))
}

func levelName(level slog.Level) string {
	if level <= slog.Level(levelTraceMask) {
		return "TRC"
	}

	switch {
	case level < slog.LevelInfo:
		return "DBG"
	case level < slog.LevelWarn:
		return "INF"
	case level < slog.LevelError:
		return "WRN"
	default:
		return "ERR"
	}
}

func levelStyle(level slog.Level) lipgloss.Style {
	if level <= slog.Level(levelTraceMask) {
		return traceStyle
	}

	switch {
	case level < slog.LevelInfo:
		return debugStyle
	case level < slog.LevelWarn:
		return infoStyle
	case level < slog.LevelError:
		return warnStyle
	default:
		return errStyle
	}
}
