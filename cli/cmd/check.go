package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Check parses a document and reports every diagnostic without executing
// anything.
type Check struct {
	Source string `arg:"" default:"-" help:"Document file or '-' for stdin"`

	Quiet bool `help:"Report errors only, not warnings" short:"q"`
}

// Run executes the check command.
func (c *Check) Run(ctx context.Context) error {
	out := io.Writer(os.Stdout)
	if ktx := kongContextFrom(ctx); ktx != nil {
		out = ktx.Stdout
	}

	d, diags, err := loadDocument(ctx, c.Source)
	if err != nil {
		return err
	}

	failed := 0

	for _, diag := range diags {
		if diag.Warning {
			if !c.Quiet {
				fmt.Fprintln(out, diag.Error())
			}

			continue
		}

		failed++

		fmt.Fprintln(out, diag.Error())
	}

	blocks := 0
	for i := range d.Sections {
		blocks += len(d.Sections[i].Blocks)
	}

	fmt.Fprintf(out, "%d section(s), %d block(s)\n", len(d.Sections), blocks)

	for _, name := range d.SectionNames() {
		fmt.Fprintf(out, "  %s\n", name)
	}

	if failed > 0 {
		return &CheckError{Count: failed}
	}

	return nil
}

// CheckError reports how many hard parse errors a document contains.
type CheckError struct {
	Count int
}

// Error implements the error interface.
func (e *CheckError) Error() string {
	return fmt.Sprintf("document has %d parse error(s)", e.Count)
}
