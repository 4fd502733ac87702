// Package engine executes parsed interactive documents.
//
// The runtime walks a [doc.Document] section by section, evaluating the
// sandboxed expression language against a JSON-shaped state tree and
// emitting a host-agnostic render stream. Execution is deterministic and
// resumable: the full context serializes to JSON, so a form can suspend in
// one process and resume in another.
package engine
