package domain

const unknownDescription = "Unknown"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderHashing is the built-in offline feature-hashing embedder.
	AIProviderHashing AIProvider = "hashing"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderHashing, AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashing
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderHashing:
		return "Hashing (offline, built-in)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// SanitizerSettings configures the sanitisation pipeline.
type SanitizerSettings struct {
	// MaxChars is the chunk window size in characters.
	MaxChars int

	// Overlap is the number of characters shared by adjacent chunks.
	Overlap int

	// SaltEnv names the environment variable holding the pseudonymisation salt.
	SaltEnv string

	// AllowInsecureSalt permits a development key when no salt is set.
	// Such runs are marked non-secure.
	AllowInsecureSalt bool

	// Workers bounds document-level parallelism during ingest.
	Workers int

	// AutoTag enables content-derived ATT&CK and tool tags.
	AutoTag bool

	// ExtraDetectors are user detectors in "name|strategy|token|pattern" form.
	ExtraDetectors []string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size for providers that need it stated.
	Dimensions int

	// BatchSize bounds how many texts are embedded per call.
	BatchSize int

	// RequestsPerSecond throttles remote providers. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// IndexSettings configures the vector index and query handling.
type IndexSettings struct {
	Metric Metric

	// MaxQueryChars truncates overlong queries before embedding.
	MaxQueryChars int
}

// LogSettings configures the logger.
type LogSettings struct {
	// Format is "console" or "json".
	Format string

	// File optionally mirrors logs to a rotating file.
	File string
}

// Settings holds all application settings.
type Settings struct {
	Sanitizer SanitizerSettings
	Embedding EmbeddingSettings
	Index     IndexSettings
	Teacher   RetrievalPolicy
	Assistant RetrievalPolicy
	Log       LogSettings
}

// Default tag rule matchers for assistant mode.
var (
	DefaultAttackPrefixes = []string{"attack:", "mitre:", "technique:"}
	DefaultToolPrefixes   = []string{"tool:", "playbook:", "detection:", "soar:"}
	DefaultToolTags       = []string{"sigma", "splunk", "limacharlie", "yara", "kql"}
)

// DefaultTeacherPolicy returns the default teacher-mode policy.
func DefaultTeacherPolicy() RetrievalPolicy {
	return RetrievalPolicy{
		Mode:       ModeTeacher,
		K:          6,
		MinSources: 2,
	}
}

// DefaultAssistantPolicy returns the default assistant-mode policy.
func DefaultAssistantPolicy() RetrievalPolicy {
	return RetrievalPolicy{
		Mode: ModeAssistant,
		K:    8,
		RequiredTags: []TagRule{
			{
				Name:     "attack_mapping",
				Reason:   ReasonMissingAttackMapping,
				Prefixes: append([]string(nil), DefaultAttackPrefixes...),
			},
			{
				Name:     "tool_reference",
				Reason:   ReasonMissingToolReference,
				Prefixes: append([]string(nil), DefaultToolPrefixes...),
				Tags:     append([]string(nil), DefaultToolTags...),
			},
		},
	}
}

// DefaultSettings returns settings with sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		Sanitizer: SanitizerSettings{
			MaxChars: 1800,
			Overlap:  200,
			SaltEnv:  "WHIS_PSEUDONYM_SALT",
			Workers:  4,
			AutoTag:  true,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderHashing,
			Model:      "hashing-384",
			Dimensions: 384,
			BatchSize:  32,
		},
		Index: IndexSettings{
			Metric:        MetricInnerProduct,
			MaxQueryChars: 2000,
		},
		Teacher:   DefaultTeacherPolicy(),
		Assistant: DefaultAssistantPolicy(),
		Log: LogSettings{
			Format: "console",
		},
	}
}

// Policy returns the policy for a mode.
func (s *Settings) Policy(mode Mode) (RetrievalPolicy, bool) {
	switch mode {
	case ModeTeacher:
		return s.Teacher, true
	case ModeAssistant:
		return s.Assistant, true
	default:
		return RetrievalPolicy{}, false
	}
}

// Policies returns both policies keyed by mode.
func (s *Settings) Policies() map[Mode]RetrievalPolicy {
	return map[Mode]RetrievalPolicy{
		ModeTeacher:   s.Teacher,
		ModeAssistant: s.Assistant,
	}
}

// Validate checks settings and returns a *ConfigurationError on the first problem.
func (s *Settings) Validate() error {
	if s.Sanitizer.MaxChars <= 0 {
		return NewConfigurationError("sanitizer.max_chars", "must be positive, got %d", s.Sanitizer.MaxChars)
	}
	if s.Sanitizer.Overlap < 0 || s.Sanitizer.Overlap >= s.Sanitizer.MaxChars {
		return NewConfigurationError("sanitizer.overlap",
			"must be in [0, %d), got %d", s.Sanitizer.MaxChars, s.Sanitizer.Overlap)
	}
	if s.Sanitizer.SaltEnv == "" {
		return NewConfigurationError("sanitizer.salt_env", "must not be empty")
	}
	if s.Embedding.BatchSize <= 0 {
		return NewConfigurationError("embedding.batch_size", "must be positive, got %d", s.Embedding.BatchSize)
	}
	if !s.Embedding.Provider.IsValid() {
		return NewConfigurationError("embedding.provider", "unsupported provider %q", s.Embedding.Provider)
	}
	if !s.Index.Metric.IsValid() {
		return NewConfigurationError("index.metric", "unsupported metric %q", s.Index.Metric)
	}
	if s.Index.MaxQueryChars <= 0 {
		return NewConfigurationError("index.max_query_chars", "must be positive, got %d", s.Index.MaxQueryChars)
	}
	if s.Teacher.Mode != ModeTeacher {
		return NewConfigurationError("retrieval.teacher.mode", "expected %q, got %q", ModeTeacher, s.Teacher.Mode)
	}
	if s.Assistant.Mode != ModeAssistant {
		return NewConfigurationError("retrieval.assistant.mode", "expected %q, got %q", ModeAssistant, s.Assistant.Mode)
	}
	if err := s.Teacher.Validate(); err != nil {
		return err
	}
	return s.Assistant.Validate()
}
