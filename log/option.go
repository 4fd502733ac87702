package log

import "io"

// Option configures a [Logger] via [Make], [Logger.Wrap], or [Config].
type Option func(*config)

// WithWriter sets the destination for log output.
func WithWriter(w io.Writer) Option {
	return func(c *config) { c.writer = w }
}

// WithLevel sets the minimum level of messages to emit.
func WithLevel(level Level) Option {
	return func(c *config) { c.level = level }
}

// WithFormat sets the output format.
func WithFormat(format Format) Option {
	return func(c *config) { c.format = format }
}

// WithTimeLayout sets the timestamp layout for text output.
func WithTimeLayout(layout string) Option {
	return func(c *config) { c.timeLayout = layout }
}

// WithCaller includes source file and line in each message.
func WithCaller(enable bool) Option {
	return func(c *config) { c.caller = enable }
}

// WithPretty enables colorized text output.
// It has no effect unless the format is [FormatText].
func WithPretty(enable bool) Option {
	return func(c *config) { c.pretty = enable }
}
