// Package html converts exported HTML runbooks into text. Scripts, styles
// and markup are removed, entities decoded, and headings rewritten as
// markdown headings so chunking can split on sections.
package html
