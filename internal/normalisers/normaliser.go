package normalisers

import (
	"path/filepath"
	"slices"
	"strings"
)

// Result is the text extracted from one file.
type Result struct {
	// Title is empty when the format carries none.
	Title string

	// Text uses markdown headings where the source had them so that
	// chunking can split on section boundaries.
	Text string
}

// Normaliser extracts text from one file format.
type Normaliser interface {
	// Extensions returns the lower-case extensions handled, with leading dot.
	Extensions() []string

	// Normalise converts the file content. ref is the slash-separated path
	// relative to the corpus root.
	Normalise(ref string, data []byte) (*Result, error)
}

// Registry maps file extensions to normalisers. The last registration for an
// extension wins.
type Registry struct {
	byExt map[string]Normaliser
}

// NewRegistry creates a registry holding ns.
func NewRegistry(ns ...Normaliser) *Registry {
	r := &Registry{byExt: make(map[string]Normaliser)}
	for _, n := range ns {
		r.Register(n)
	}
	return r
}

// Register adds n for each of its extensions.
func (r *Registry) Register(n Normaliser) {
	for _, ext := range n.Extensions() {
		r.byExt[strings.ToLower(ext)] = n
	}
}

// For returns the normaliser for the file at path.
func (r *Registry) For(path string) (Normaliser, bool) {
	if r == nil {
		return nil, false
	}
	n, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return n, ok
}

// Extensions returns every registered extension in sorted order.
func (r *Registry) Extensions() []string {
	if r == nil {
		return nil
	}
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// TitleFromPath derives a readable title from a file name.
func TitleFromPath(ref string) string {
	name := filepath.Base(filepath.FromSlash(ref))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
