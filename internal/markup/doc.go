// Package markup implements the incremental parser for the relay's
// XML-like game stream.
//
// The stream arrives in arbitrary network-sized chunks: tags split across
// chunk boundaries, character data arrives in fragments, and a small set of
// tag names are routing directives that select a named output channel for
// everything parsed after them. The parser is therefore stateful: its open
// tag stack, buffered text, carried partial tag, and current routing channel
// all survive between Parse calls and are only discarded on explicit Reset.
//
// The dialect is not XML: there are no namespaces, no DTDs, and no guarantee
// of well-formedness beyond tags eventually closing. Malformed spans are
// logged and skipped; Parse never returns an error.
package markup
