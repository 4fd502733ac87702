package doc

import (
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"
)

// globalCache stores parse results keyed by source content hash.
// Documents are immutable after parse, so cache hits share one Document.
//
//nolint:gochecknoglobals
var globalCache sync.Map

// cached holds one memoized parse result.
type cached struct {
	once sync.Once
	doc  *Document
	errs []ParseError
}

// ParseCached parses source text, memoizing the result by content hash.
func ParseCached(source string) (*Document, []ParseError) {
	key := strconv.FormatUint(xxh3.Hash([]byte(source)), 36)

	entry := new(cached)

	value, _ := globalCache.LoadOrStore(key, entry)
	entry = value.(*cached)

	entry.once.Do(func() {
		entry.doc, entry.errs = Parse(source)
	})

	return entry.doc, entry.errs
}

// ParseReader reads all input and parses it with caching.
// The reader is wrapped with async read-ahead so data is pre-fetched while
// earlier chunks are consumed.
func ParseReader(r io.Reader) (*Document, []ParseError, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, nil, &ReadError{cause: err}
	}

	d, errs := ParseCached(string(data))

	return d, errs, nil
}

// ClearCache removes all cached parse results.
// This is primarily useful for testing or when memory needs to be reclaimed.
func ClearCache() {
	globalCache = sync.Map{}
}

// ReadError wraps an input read failure from [ParseReader].
type ReadError struct {
	cause error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	return "failed to read input: " + e.cause.Error()
}

// Unwrap returns the underlying read failure.
func (e *ReadError) Unwrap() error { return e.cause }

// LogValue implements slog.LogValuer for structured logging.
func (e *ReadError) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("error", "failed to read input"),
		slog.String("cause", e.cause.Error()),
	)
}
