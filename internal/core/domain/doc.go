// Package domain holds the types every other layer of whis speaks in.
//
// A Document is read by a connector and sanitised into SanitizedChunks,
// each identified by a hash of its redacted text. Chunks and their vectors
// are committed together as a Generation, and queries against the current
// generation return a RetrievalResult whose Verdict says whether the
// requested mode's RetrievalPolicy admitted the context.
//
// The package imports the standard library only.
package domain
