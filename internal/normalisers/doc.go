// Package normalisers converts corpus files that are not markdown or plain
// text into document text. Each normaliser handles a set of file extensions
// and is registered with the filesystem connector.
package normalisers
