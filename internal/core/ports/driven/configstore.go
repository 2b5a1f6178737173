package driven

// ConfigStore holds the flat, dot-keyed configuration ("retrieval.teacher.k").
// Values keep the type they were decoded or set with; callers convert them.
type ConfigStore interface {
	// Get returns the raw value for key and whether it is present.
	Get(key string) (any, bool)

	// Keys lists the present keys in sorted order.
	Keys() []string

	// Set stores one value and persists it.
	Set(key string, value any) error

	// Apply stores values and removes the unset keys as one write. Nothing
	// changes when persisting fails.
	Apply(values map[string]any, unset ...string) error

	// Load rereads the backing storage, dropping unsaved state.
	Load() error

	// Path names the backing storage.
	Path() string
}
