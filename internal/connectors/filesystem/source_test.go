package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/whis/internal/core/domain"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSource_List(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.md", "# B")
	writeFile(t, root, "a.txt", "plain")
	writeFile(t, root, "nested/c.markdown", "# C")
	writeFile(t, root, "nested/deep/D.MD", "# D")
	writeFile(t, root, "image.png", "binary")
	writeFile(t, root, ".hidden.md", "secret")
	writeFile(t, root, ".git/notes.md", "vcs")
	writeFile(t, root, "nested/.drafts/e.md", "draft")

	refs, err := New(root).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.md", "nested/c.markdown", "nested/deep/D.MD"}, refs)
}

func TestSource_ListWithExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "x")
	writeFile(t, root, "b.rst", "x")

	refs, err := New(root, WithExtensions("rst")).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b.rst"}, refs)
}

func TestSource_Validate(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "file.md", "x")

	err := New(filepath.Join(root, "missing")).Validate(context.Background())
	assert.ErrorContains(t, err, "does not exist")

	err = New(filepath.Join(root, "file.md")).Validate(context.Background())
	assert.ErrorContains(t, err, "not a directory")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, New(root).Validate(ctx), context.Canceled)

	_, err = New(filepath.Join(root, "missing")).List(context.Background())
	assert.Error(t, err)
}

func TestSource_Load(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "runbooks/brute.md", `+++
title = "Brute force triage"
tags = ["Auth", "attack:T1110"]
section = "Identity"
vendor = "Okta"
+++
# Ignored heading

Lock the account after review.
`)

	doc, err := New(root).Load(context.Background(), "runbooks/brute.md")
	require.NoError(t, err)
	assert.Equal(t, "Brute force triage", doc.Title)
	assert.Equal(t, "runbooks/brute.md", doc.SourcePath)
	assert.Equal(t, []string{"Auth", "attack:T1110"}, doc.Tags)
	assert.Equal(t, "Identity", doc.Section)
	assert.Equal(t, "Okta", doc.Vendor)
	assert.Equal(t, "# Ignored heading\n\nLock the account after review.\n", doc.Text)
}

func TestSource_LoadErrors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "latin1.txt", "caf\xe9")
	writeFile(t, root, "open.md", "+++\ntitle = \"x\"\nno closing delimiter")
	writeFile(t, root, "bad.md", "+++\ntitle = \n+++\nbody")

	tests := []struct {
		ref  string
		want string
	}{
		{"latin1.txt", "invalid UTF-8"},
		{"open.md", "not closed"},
		{"bad.md", "front matter"},
		{"missing.md", "no such file"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			_, err := New(root).Load(context.Background(), tt.ref)
			var procErr *domain.DocumentProcessingError
			require.ErrorAs(t, err, &procErr)
			assert.Equal(t, tt.ref, procErr.SourcePath)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParseDocument_Title(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		text string
		want string
	}{
		{"first h1", "kb/x.md", "intro\n## Sub\n#  Main Title \nbody", "Main Title"},
		{"file name fallback", "kb/lateral-movement.md", "no heading here", "lateral-movement"},
		{"h2 is not a title", "kb/notes.txt", "## Only sub", "notes"},
		{"front matter without title", "kb/y.md", "+++\ntags = [\"a\"]\n+++\n# From Heading", "From Heading"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument(tt.ref, []byte(tt.text))
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.Title)
		})
	}
}

func TestParseDocument_Body(t *testing.T) {
	doc, err := ParseDocument("a.md", []byte("\ufeffplain body"))
	require.NoError(t, err)
	assert.Equal(t, "plain body", doc.Text)
	assert.Nil(t, doc.Tags)

	doc, err = ParseDocument("b.md", []byte("+++\r\ntitle = \"Windows\"\r\n+++\r\nbody\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "Windows", doc.Title)
	assert.Equal(t, "body\r\n", doc.Text)

	doc, err = ParseDocument("c.md", []byte("+++\ntitle = \"Empty\"\n+++"))
	require.NoError(t, err)
	assert.Equal(t, "Empty", doc.Title)
	assert.Empty(t, doc.Text)

	doc, err = ParseDocument("d.md", []byte("a line\n+++\nnot front matter"))
	require.NoError(t, err)
	assert.Equal(t, "a line\n+++\nnot front matter", doc.Text)
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{".hidden", true},
		{".git", true},
		{"visible.md", false},
		{"file.hidden", false},
		{".", false},
		{"..", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isHidden(tt.name), tt.name)
	}
}

func TestSource_LoadConvertedFormats(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ir/ransomware.html", "<title>Ransomware</title><h2>Contain</h2><p>Isolate the host.</p>")
	writeFile(t, root, "ir/no_title.htm", "<p>Body only</p>")
	writeFile(t, root, "phish/report.eml", "Subject: Fake invoice\r\nFrom: a@b.example\r\n\r\nPay now.\r\n")

	src := New(root)
	refs, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ir/no_title.htm", "ir/ransomware.html", "phish/report.eml"}, refs)

	doc, err := src.Load(context.Background(), "ir/ransomware.html")
	require.NoError(t, err)
	assert.Equal(t, "Ransomware", doc.Title)
	assert.Equal(t, "ir/ransomware.html", doc.SourcePath)
	assert.Equal(t, "## Contain\n\nIsolate the host.", doc.Text)

	doc, err = src.Load(context.Background(), "ir/no_title.htm")
	require.NoError(t, err)
	assert.Equal(t, "no title", doc.Title)

	doc, err = src.Load(context.Background(), "phish/report.eml")
	require.NoError(t, err)
	assert.Equal(t, "Fake invoice", doc.Title)
	assert.Contains(t, doc.Text, "Pay now.")
}

func TestSource_LoadConvertedFormatError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "broken.eml", "no headers here")

	_, err := New(root).Load(context.Background(), "broken.eml")

	var procErr *domain.DocumentProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "broken.eml", procErr.SourcePath)
}

func TestSource_WithoutNormalisers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "x")
	writeFile(t, root, "b.html", "<p>x</p>")

	src := New(root, WithNormalisers())
	refs, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, refs)
	assert.False(t, src.Accepts("b.html"))
}
