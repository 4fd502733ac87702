package cmd

import (
	"context"

	"github.com/ardnew/fable/cli/cmd/play"
	"github.com/ardnew/fable/engine"
	"github.com/ardnew/fable/log"
)

// Play runs a document interactively in the terminal, prompting for
// each form field as the engine suspends.
type Play struct {
	Source string `arg:"" default:"-" help:"Document file or '-' for stdin"`

	Set []string `help:"Seed state before execution" placeholder:"PATH=VALUE" short:"s"`

	NavLimit int `help:"Maximum consecutive navigation jumps" default:"1000"`
}

// Run executes the play command.
func (p *Play) Run(ctx context.Context) error {
	d, _, err := loadDocument(ctx, p.Source)
	if err != nil {
		return err
	}

	opts := []engine.Option{
		engine.WithNavLimit(p.NavLimit),
		engine.WithLogger(log.Default()),
	}

	for _, pair := range p.Set {
		path, value, ok := splitPair(pair)
		if !ok {
			return &ArgumentError{Flag: "--set", Value: pair}
		}

		opts = append(opts, engine.WithValue(path, parseScalar(value)))
	}

	return play.Run(ctx, engine.New(d, opts...))
}
