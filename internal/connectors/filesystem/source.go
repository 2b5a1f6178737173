package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driven"
	"github.com/custodia-labs/whis/internal/normalisers"
	"github.com/custodia-labs/whis/internal/normalisers/eml"
	"github.com/custodia-labs/whis/internal/normalisers/html"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// frontMatterDelim opens and closes a TOML front matter block.
const frontMatterDelim = "+++"

// defaultExtensions are the file types read as documents.
var defaultExtensions = []string{".md", ".markdown", ".txt"}

// Source lists and loads documents under a root directory.
type Source struct {
	root        string
	extensions  map[string]bool
	normalisers *normalisers.Registry
}

// Option configures a Source.
type Option func(*Source)

// WithExtensions replaces the accepted file extensions.
func WithExtensions(exts ...string) Option {
	return func(s *Source) {
		s.extensions = make(map[string]bool, len(exts))
		for _, e := range exts {
			e = strings.ToLower(e)
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			s.extensions[e] = true
		}
	}
}

// WithNormalisers replaces the converters used for non-text formats.
// Passing none reads only the text extensions.
func WithNormalisers(ns ...normalisers.Normaliser) Option {
	return func(s *Source) {
		s.normalisers = normalisers.NewRegistry(ns...)
	}
}

// New creates a source rooted at root. HTML and EML files are converted to
// text unless WithNormalisers says otherwise.
func New(root string, opts ...Option) *Source {
	s := &Source{root: root}
	WithExtensions(defaultExtensions...)(s)
	WithNormalisers(html.New(), eml.New())(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the corpus directory.
func (s *Source) Root() string {
	return s.root
}

// Validate checks that the root exists and is a directory.
func (s *Source) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("root path does not exist: %s", s.root)
		}
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path is not a directory: %s", s.root)
	}
	return nil
}

// List returns the slash-separated paths, relative to the root, of every
// accepted file in lexical order.
func (s *Source) List(ctx context.Context) ([]string, error) {
	if err := s.Validate(ctx); err != nil {
		return nil, err
	}

	var refs []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path != s.root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() || !s.Accepts(path) {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		refs = append(refs, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.root, err)
	}
	sort.Strings(refs)
	return refs, nil
}

// Accepts reports whether the file at path would be read as a document.
func (s *Source) Accepts(path string) bool {
	if s.extensions[strings.ToLower(filepath.Ext(path))] {
		return true
	}
	_, ok := s.normalisers.For(path)
	return ok
}

// Load reads one document. Unreadable files, invalid UTF-8 and malformed
// front matter are reported as *domain.DocumentProcessingError.
func (s *Source) Load(ctx context.Context, ref string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.root, filepath.FromSlash(ref))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.DocumentProcessingError{SourcePath: ref, Err: err}
	}
	var doc *domain.Document
	if n, ok := s.normalisers.For(ref); ok && !s.extensions[strings.ToLower(filepath.Ext(ref))] {
		doc, err = normalise(n, ref, data)
	} else {
		doc, err = ParseDocument(ref, data)
	}
	if err != nil {
		return nil, &domain.DocumentProcessingError{SourcePath: ref, Err: err}
	}
	return doc, nil
}

// normalise converts a non-text file. Such formats carry no front matter.
func normalise(n normalisers.Normaliser, ref string, data []byte) (*domain.Document, error) {
	res, err := n.Normalise(ref, data)
	if err != nil {
		return nil, err
	}
	title := res.Title
	if title == "" {
		title = normalisers.TitleFromPath(ref)
	}
	return &domain.Document{
		Title:      title,
		SourcePath: ref,
		Text:       res.Text,
	}, nil
}

// frontMatter is the optional metadata block at the top of a file.
type frontMatter struct {
	Title   string   `toml:"title"`
	Tags    []string `toml:"tags"`
	Section string   `toml:"section"`
	Vendor  string   `toml:"vendor"`
}

// ParseDocument decodes file content into a document.
func ParseDocument(ref string, data []byte) (*domain.Document, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("invalid UTF-8")
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	meta, body, err := splitFrontMatter(string(data))
	if err != nil {
		return nil, err
	}

	title := meta.Title
	if title == "" {
		title = firstHeading(body)
	}
	if title == "" {
		base := filepath.Base(filepath.FromSlash(ref))
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return &domain.Document{
		Title:      title,
		SourcePath: ref,
		Text:       body,
		Tags:       meta.Tags,
		Section:    meta.Section,
		Vendor:     meta.Vendor,
	}, nil
}

// splitFrontMatter separates a leading "+++" block from the body.
func splitFrontMatter(text string) (frontMatter, string, error) {
	var meta frontMatter
	first, rest, found := strings.Cut(text, "\n")
	if !found || strings.TrimSpace(first) != frontMatterDelim {
		return meta, text, nil
	}

	block, body, ok := cutDelimiterLine(rest)
	if !ok {
		return meta, "", errors.New("front matter is not closed")
	}
	if err := toml.Unmarshal([]byte(block), &meta); err != nil {
		return meta, "", fmt.Errorf("front matter: %w", err)
	}
	return meta, body, nil
}

// cutDelimiterLine splits text around the first line equal to the delimiter.
func cutDelimiterLine(text string) (before, after string, found bool) {
	offset := 0
	for offset <= len(text) {
		line, _, _ := strings.Cut(text[offset:], "\n")
		if strings.TrimSpace(line) == frontMatterDelim {
			end := min(offset+len(line)+1, len(text))
			return text[:offset], text[end:], true
		}
		if offset+len(line) >= len(text) {
			break
		}
		offset += len(line) + 1
	}
	return "", "", false
}

// firstHeading returns the text of the first level-one ATX heading.
func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

// isHidden reports whether a file or directory name is hidden.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
