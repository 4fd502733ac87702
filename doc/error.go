package doc

import (
	"fmt"
	"log/slog"
)

// ParseError describes one problem found while parsing.
// Warnings do not prevent the affected region from executing.
type ParseError struct {
	Msg     string
	Line    int
	Warning bool
}

// Error implements the error interface.
func (e ParseError) Error() string {
	severity := "error"
	if e.Warning {
		severity = "warning"
	}

	return fmt.Sprintf("line %d: %s: %s", e.Line, severity, e.Msg)
}

// LogValue implements slog.LogValuer for structured logging.
func (e ParseError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("msg", e.Msg),
		slog.Int("line", e.Line),
		slog.Bool("warning", e.Warning),
	)
}

// errorf appends a parse error to the collector.
func errorf(errs *[]ParseError, line int, format string, args ...any) {
	*errs = append(*errs, ParseError{
		Msg:  fmt.Sprintf(format, args...),
		Line: line,
	})
}

// warnf appends a parse warning to the collector.
func warnf(errs *[]ParseError, line int, format string, args ...any) {
	*errs = append(*errs, ParseError{
		Msg:     fmt.Sprintf(format, args...),
		Line:    line,
		Warning: true,
	})
}
