package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveRoot converts a corpus argument to an absolute directory path.
// Handles file:// URIs, a leading ~ and relative paths.
func ResolveRoot(uri string) (string, error) {
	p := strings.TrimPrefix(uri, "file://")
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", uri, err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", uri, err)
	}
	return abs, nil
}
