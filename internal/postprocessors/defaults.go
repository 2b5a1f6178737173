package postprocessors

import (
	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driven"
	"github.com/custodia-labs/whis/internal/postprocessors/chunker"
	"github.com/custodia-labs/whis/internal/postprocessors/tagger"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("tagger", buildTagger)
}

// NewDefaultPipeline builds the chunk pipeline described by the sanitizer settings:
// the chunker, followed by the tagger when auto-tagging is enabled.
func NewDefaultPipeline(cfg domain.SanitizerSettings) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)

	stages := []Stage{{
		Name:   "chunker",
		Config: map[string]any{"max_chars": cfg.MaxChars, "overlap": cfg.Overlap},
	}}
	if cfg.AutoTag {
		stages = append(stages, Stage{Name: "tagger"})
	}
	return r.Pipeline(stages...)
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - max_chars (int): Characters per chunk (default: 1800)
//   - overlap (int): Overlapping characters between chunks (default: 200)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "max_chars"); size > 0 {
			opts = append(opts, chunker.WithMaxChars(size))
		}
		if _, ok := cfg["overlap"]; ok {
			opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
		}
	}

	return chunker.New(opts...), nil
}

// buildTagger creates a tagger processor from generic config.
// Supported config keys:
//   - tools ([]string): Tool names to recognise (default: tagger.DefaultTools)
func buildTagger(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []tagger.Option
	if tools := getStringsFromConfig(cfg, "tools"); len(tools) > 0 {
		opts = append(opts, tagger.WithTools(tools))
	}
	return tagger.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// getStringsFromConfig extracts a string list, accepting []any from TOML parsing.
func getStringsFromConfig(cfg map[string]any, key string) []string {
	switch v := cfg[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
