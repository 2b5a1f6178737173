package services

import (
	"fmt"
	"math"
	"slices"

	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driven"
)

// configReader reads typed values from a ConfigStore. Missing keys, and
// empty strings, yield the default. The first wrongly typed value is kept in err as a
// ConfigurationError naming its key.
type configReader struct {
	store driven.ConfigStore
	err   error
}

func (r *configReader) fail(key string, v any, want string) {
	if r.err == nil {
		r.err = domain.NewConfigurationError(key, "expected %s, got %T", want, v)
	}
}

func (r *configReader) str(key, def string) string {
	v, ok := r.store.Get(key)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		r.fail(key, v, "a string")
		return def
	}
	if s == "" {
		return def
	}
	return s
}

func (r *configReader) integer(key string, def int) int {
	v, ok := r.store.Get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if n == math.Trunc(n) {
			return int(n)
		}
	}
	r.fail(key, v, "an integer")
	return def
}

func (r *configReader) number(key string, def float64) float64 {
	v, ok := r.store.Get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	r.fail(key, v, "a number")
	return def
}

func (r *configReader) boolean(key string, def bool) bool {
	v, ok := r.store.Get(key)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(key, v, "true or false")
		return def
	}
	return b
}

func (r *configReader) list(key string, def []string) []string {
	v, ok := r.store.Get(key)
	if !ok {
		return slices.Clone(def)
	}
	switch list := v.(type) {
	case []string:
		return slices.Clone(list)
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				r.fail(fmt.Sprintf("%s[%d]", key, i), item, "a string")
				return slices.Clone(def)
			}
			out = append(out, s)
		}
		return out
	}
	r.fail(key, v, "a list of strings")
	return slices.Clone(def)
}
