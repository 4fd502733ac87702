// Package doc parses Markdown documents into the block structure executed by
// the engine package.
//
// A document is an ordered list of sections, each started by a top-level
// heading line. Fenced code regions whose info string begins with a
// recognized tag (state, set, form, if, else, nav, panel, map) become typed
// blocks; any other fence is an opaque block rendered verbatim. Prose between
// fences becomes text blocks.
//
// # Grammar
//
// Informally:
//
//	Document   → Frontmatter? (Heading | Fence | Prose)*
//	Frontmatter→ '---' yaml... '---'            (document top only)
//	Heading    → '#'+ ' ' text                  (starts a new Section)
//	Fence      → '```' tag param*               (param is key=value)
//
// Block bodies use restrictive line-oriented sub-grammars parsed here, not at
// execution time:
//
//	state/set  → path = expression             (literals may span lines)
//	form       → name: type key=value...
//	panel      → label: text
//	map        → tile X,Y key=value...
//
// The if and else tags do not open bodies. They are emitted as flat If/Else
// markers, and a bare closing fence while a branch is open is an EndIf
// marker. The engine interprets the markers with an explicit branch stack.
//
// # Errors
//
// Parse never fails outright: malformed input is collected into []ParseError
// and the offending region becomes an inert invalid block, so a Document is
// always produced.
//
// Parsed documents are immutable. [ParseReader] caches results by content
// hash so identical sources share one Document.
package doc
