// Package cli implements the fable command-line interface.
//
// The CLI wires global logging and profiling flag groups around three
// commands: check (parse and lint a document), exec (run a document
// non-interactively), and play (run a document in an interactive terminal
// session).
package cli
