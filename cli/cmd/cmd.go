// Package cmd implements the fable subcommands.
package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/fable/doc"
	"github.com/ardnew/fable/engine"
	"github.com/ardnew/fable/log"
)

// contextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// openSource opens the named document, mapping "-" to stdin.
// The caller owns the returned closer.
func openSource(path string) (io.ReadCloser, error) {
	if path == stdinSource {
		return io.NopCloser(os.Stdin), nil
	}

	return os.Open(path)
}

// loadDocument reads and parses a document, logging every parse
// diagnostic. It fails only when parsing reported hard errors.
func loadDocument(
	ctx context.Context,
	path string,
) (*doc.Document, []doc.ParseError, error) {
	source, err := openSource(path)
	if err != nil {
		return nil, nil, err
	}
	defer source.Close()

	d, diags, err := doc.ParseReader(source)
	if err != nil {
		return nil, nil, err
	}

	for _, diag := range diags {
		if diag.Warning {
			log.WarnContext(ctx, "parse", slog.Any("diagnostic", diag))
		} else {
			log.ErrorContext(ctx, "parse", slog.Any("diagnostic", diag))
		}
	}

	return d, diags, nil
}

// parseScalar converts a command-line value string into an engine value:
// booleans and numbers by syntax, everything else as a string.
func parseScalar(s string) engine.Value {
	switch s {
	case "true":
		return engine.BoolValue(true)
	case "false":
		return engine.BoolValue(false)
	case "null":
		return engine.Null()
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return engine.Number(n)
	}

	return engine.StringValue(s)
}

// splitPair splits a NAME=VALUE argument.
func splitPair(s string) (name, value string, ok bool) {
	i := strings.IndexByte(s, '=')
	if i <= 0 {
		return "", "", false
	}

	return s[:i], s[i+1:], true
}
