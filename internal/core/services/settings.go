package services

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/whis/internal/core/domain"
	"github.com/custodia-labs/whis/internal/core/ports/driven"
	"github.com/custodia-labs/whis/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyMaxChars          = "sanitizer.max_chars"
	keyOverlap           = "sanitizer.overlap"
	keySaltEnv           = "sanitizer.salt_env"
	keyAllowInsecure     = "sanitizer.allow_insecure_salt"
	keyWorkers           = "sanitizer.workers"
	keyAutoTag           = "sanitizer.auto_tag"
	keyExtraDetectors    = "sanitizer.extra_detectors"
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyEmbedDims         = "embedding.dimensions"
	keyEmbedBatch        = "embedding.batch_size"
	keyEmbedRate         = "embedding.requests_per_second"
	keyMetric            = "index.metric"
	keyMaxQueryChars     = "index.max_query_chars"
	keyTeacherK          = "retrieval.teacher.k"
	keyTeacherMinSources = "retrieval.teacher.min_sources"
	keyAssistK           = "retrieval.assistant.k"
	keyAssistMinSources  = "retrieval.assistant.min_sources"
	keyAttackPrefixes    = "retrieval.assistant.attack_prefixes"
	keyToolPrefixes      = "retrieval.assistant.tool_prefixes"
	keyToolTags          = "retrieval.assistant.tool_tags"
	keyLogFormat         = "log.format"
	keyLogFile           = "log.file"
)

// Environment variables consulted when the config file has no API key.
//
//nolint:gosec // G101: environment variable names, not credentials.
var apiKeyEnv = []string{"WHIS_EMBEDDING_API_KEY", "OPENAI_API_KEY"}

// EmbeddingValidator checks that an embedding configuration can be reached.
type EmbeddingValidator func(ctx context.Context, settings *domain.EmbeddingSettings) error

// SettingsService maps the flat config store onto domain.Settings.
type SettingsService struct {
	configStore driven.ConfigStore
	validator   EmbeddingValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service. validator may be nil.
func NewSettingsService(configStore driven.ConfigStore, validator EmbeddingValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		validator:   validator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current settings. Missing keys take their default; present
// keys are taken as written so Validate can reject bad values. A value of the
// wrong type is a ConfigurationError.
func (s *SettingsService) Get() (*domain.Settings, error) {
	d := domain.DefaultSettings()
	r := &configReader{store: s.configStore}

	settings := &domain.Settings{
		Sanitizer: domain.SanitizerSettings{
			MaxChars:          r.integer(keyMaxChars, d.Sanitizer.MaxChars),
			Overlap:           r.integer(keyOverlap, d.Sanitizer.Overlap),
			SaltEnv:           r.str(keySaltEnv, d.Sanitizer.SaltEnv),
			AllowInsecureSalt: r.boolean(keyAllowInsecure, d.Sanitizer.AllowInsecureSalt),
			Workers:           r.integer(keyWorkers, d.Sanitizer.Workers),
			AutoTag:           r.boolean(keyAutoTag, d.Sanitizer.AutoTag),
			ExtraDetectors:    r.list(keyExtraDetectors, d.Sanitizer.ExtraDetectors),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          domain.AIProvider(r.str(keyEmbedProvider, d.Embedding.Provider.String())),
			Model:             r.str(keyEmbedModel, ""),
			BaseURL:           r.str(keyEmbedBaseURL, ""), // adapters pick their own
			APIKey:            r.str(keyEmbedAPIKey, s.envAPIKey()),
			Dimensions:        r.integer(keyEmbedDims, d.Embedding.Dimensions),
			BatchSize:         r.integer(keyEmbedBatch, d.Embedding.BatchSize),
			RequestsPerSecond: r.number(keyEmbedRate, d.Embedding.RequestsPerSecond),
		},
		Index: domain.IndexSettings{
			Metric:        domain.Metric(r.str(keyMetric, d.Index.Metric.String())),
			MaxQueryChars: r.integer(keyMaxQueryChars, d.Index.MaxQueryChars),
		},
		Teacher: domain.RetrievalPolicy{
			Mode:         domain.ModeTeacher,
			K:            r.integer(keyTeacherK, d.Teacher.K),
			MinSources:   r.integer(keyTeacherMinSources, d.Teacher.MinSources),
			RequiredTags: d.Teacher.RequiredTags,
		},
		Assistant: domain.RetrievalPolicy{
			Mode:       domain.ModeAssistant,
			K:          r.integer(keyAssistK, d.Assistant.K),
			MinSources: r.integer(keyAssistMinSources, d.Assistant.MinSources),
			RequiredTags: []domain.TagRule{
				{
					Name:     "attack_mapping",
					Reason:   domain.ReasonMissingAttackMapping,
					Prefixes: r.list(keyAttackPrefixes, domain.DefaultAttackPrefixes),
				},
				{
					Name:     "tool_reference",
					Reason:   domain.ReasonMissingToolReference,
					Prefixes: r.list(keyToolPrefixes, domain.DefaultToolPrefixes),
					Tags:     r.list(keyToolTags, domain.DefaultToolTags),
				},
			},
		},
		Log: domain.LogSettings{
			Format: r.str(keyLogFormat, d.Log.Format),
			File:   r.str(keyLogFile, ""),
		},
	}
	if r.err != nil {
		return nil, r.err
	}

	if settings.Embedding.Model == "" {
		settings.Embedding.Model = defaultModel(settings.Embedding.Provider, settings.Embedding.Dimensions)
	}

	return settings, nil
}

// defaultModel names the model used when none is configured.
func defaultModel(provider domain.AIProvider, dims int) string {
	switch provider {
	case domain.AIProviderOllama:
		return "nomic-embed-text"
	case domain.AIProviderOpenAI:
		return "text-embedding-3-small"
	default:
		return "hashing-" + strconv.Itoa(dims)
	}
}

// setting is one key/value pair written by Save.
type setting struct {
	key   string
	value any
}

// Save persists settings in one write. The API key is only written when it
// differs from the environment, so keys supplied there stay out of the file.
func (s *SettingsService) Save(settings *domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	values := []setting{
		{keyMaxChars, settings.Sanitizer.MaxChars},
		{keyOverlap, settings.Sanitizer.Overlap},
		{keySaltEnv, settings.Sanitizer.SaltEnv},
		{keyAllowInsecure, settings.Sanitizer.AllowInsecureSalt},
		{keyWorkers, settings.Sanitizer.Workers},
		{keyAutoTag, settings.Sanitizer.AutoTag},
		{keyExtraDetectors, settings.Sanitizer.ExtraDetectors},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedBatch, settings.Embedding.BatchSize},
		{keyEmbedRate, settings.Embedding.RequestsPerSecond},
		{keyMetric, settings.Index.Metric.String()},
		{keyMaxQueryChars, settings.Index.MaxQueryChars},
		{keyTeacherK, settings.Teacher.K},
		{keyTeacherMinSources, settings.Teacher.MinSources},
		{keyAssistK, settings.Assistant.K},
		{keyAssistMinSources, settings.Assistant.MinSources},
		{keyLogFormat, settings.Log.Format},
		{keyLogFile, settings.Log.File},
	}
	for _, rule := range settings.Assistant.RequiredTags {
		switch rule.Reason {
		case domain.ReasonMissingAttackMapping:
			values = append(values, setting{keyAttackPrefixes, rule.Prefixes})
		case domain.ReasonMissingToolReference:
			values = append(values,
				setting{keyToolPrefixes, rule.Prefixes},
				setting{keyToolTags, rule.Tags})
		}
	}

	changes := make(map[string]any, len(values)+1)
	for _, v := range values {
		changes[v.key] = v.value
	}
	var unset []string
	if key := settings.Embedding.APIKey; key == "" || key == s.envAPIKey() {
		unset = append(unset, keyEmbedAPIKey)
	} else {
		changes[keyEmbedAPIKey] = key
	}
	if err := s.configStore.Apply(changes, unset...); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

// Set parses value for a known key, validates the resulting settings and
// persists them.
func (s *SettingsService) Set(key, value string) error {
	apply, ok := setters[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := apply(settings, strings.TrimSpace(value)); err != nil {
		return domain.NewConfigurationError(key, "%v", err)
	}
	if key == keyEmbedProvider {
		settings.Embedding.Model = defaultModel(settings.Embedding.Provider, settings.Embedding.Dimensions)
	}
	return s.Save(settings)
}

// Keys returns the settable keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// Salt returns the pseudonymisation salt from the configured environment variable.
func (s *SettingsService) Salt() string {
	settings, err := s.Get()
	if err != nil {
		return ""
	}
	return s.getenv(settings.Sanitizer.SaltEnv)
}

// ValidateEmbeddingConfig pings the configured embedding provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.validator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.validator(ctx, &settings.Embedding)
}

func (s *SettingsService) envAPIKey() string {
	for _, name := range apiKeyEnv {
		if v := s.getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// setters apply a string value to one settings field.
var setters = map[string]func(*domain.Settings, string) error{
	keyMaxChars:          intSetter(func(s *domain.Settings) *int { return &s.Sanitizer.MaxChars }),
	keyOverlap:           intSetter(func(s *domain.Settings) *int { return &s.Sanitizer.Overlap }),
	keySaltEnv:           stringSetter(func(s *domain.Settings) *string { return &s.Sanitizer.SaltEnv }),
	keyAllowInsecure:     boolSetter(func(s *domain.Settings) *bool { return &s.Sanitizer.AllowInsecureSalt }),
	keyWorkers:           intSetter(func(s *domain.Settings) *int { return &s.Sanitizer.Workers }),
	keyAutoTag:           boolSetter(func(s *domain.Settings) *bool { return &s.Sanitizer.AutoTag }),
	keyExtraDetectors:    linesSetter(func(s *domain.Settings) *[]string { return &s.Sanitizer.ExtraDetectors }),
	keyEmbedModel:        stringSetter(func(s *domain.Settings) *string { return &s.Embedding.Model }),
	keyEmbedBaseURL:      stringSetter(func(s *domain.Settings) *string { return &s.Embedding.BaseURL }),
	keyEmbedAPIKey:       stringSetter(func(s *domain.Settings) *string { return &s.Embedding.APIKey }),
	keyEmbedDims:         intSetter(func(s *domain.Settings) *int { return &s.Embedding.Dimensions }),
	keyEmbedBatch:        intSetter(func(s *domain.Settings) *int { return &s.Embedding.BatchSize }),
	keyMaxQueryChars:     intSetter(func(s *domain.Settings) *int { return &s.Index.MaxQueryChars }),
	keyTeacherK:          intSetter(func(s *domain.Settings) *int { return &s.Teacher.K }),
	keyTeacherMinSources: intSetter(func(s *domain.Settings) *int { return &s.Teacher.MinSources }),
	keyAssistK:           intSetter(func(s *domain.Settings) *int { return &s.Assistant.K }),
	keyAssistMinSources:  intSetter(func(s *domain.Settings) *int { return &s.Assistant.MinSources }),
	keyLogFormat:         stringSetter(func(s *domain.Settings) *string { return &s.Log.Format }),
	keyLogFile:           stringSetter(func(s *domain.Settings) *string { return &s.Log.File }),
	keyEmbedProvider: func(s *domain.Settings, v string) error {
		s.Embedding.Provider = domain.AIProvider(strings.ToLower(v))
		return nil
	},
	keyEmbedRate: func(s *domain.Settings, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		s.Embedding.RequestsPerSecond = f
		return nil
	},
	keyMetric: func(s *domain.Settings, v string) error {
		s.Index.Metric = domain.Metric(strings.ToLower(v))
		return nil
	},
	keyAttackPrefixes: ruleSetter(domain.ReasonMissingAttackMapping, false),
	keyToolPrefixes:   ruleSetter(domain.ReasonMissingToolReference, false),
	keyToolTags:       ruleSetter(domain.ReasonMissingToolReference, true),
}

func intSetter(field func(*domain.Settings) *int) func(*domain.Settings, string) error {
	return func(s *domain.Settings, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(s) = n
		return nil
	}
}

func boolSetter(field func(*domain.Settings) *bool) func(*domain.Settings, string) error {
	return func(s *domain.Settings, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(s) = b
		return nil
	}
}

func stringSetter(field func(*domain.Settings) *string) func(*domain.Settings, string) error {
	return func(s *domain.Settings, v string) error {
		*field(s) = v
		return nil
	}
}

// linesSetter takes one item per line; detector patterns may contain commas.
func linesSetter(field func(*domain.Settings) *[]string) func(*domain.Settings, string) error {
	return func(s *domain.Settings, v string) error {
		*field(s) = splitOn(v, "\n")
		return nil
	}
}

// ruleSetter replaces the prefixes or tags of the assistant rule with the given reason.
func ruleSetter(reason string, tags bool) func(*domain.Settings, string) error {
	return func(s *domain.Settings, v string) error {
		for i := range s.Assistant.RequiredTags {
			rule := &s.Assistant.RequiredTags[i]
			if rule.Reason != reason {
				continue
			}
			if tags {
				rule.Tags = splitList(v)
			} else {
				rule.Prefixes = splitList(v)
			}
			return nil
		}
		return fmt.Errorf("no assistant rule for %s", reason)
	}
}

// splitList parses a comma-separated list, dropping empty items.
func splitList(v string) []string {
	return splitOn(v, ",")
}

func splitOn(v, sep string) []string {
	out := []string{}
	for _, item := range strings.Split(v, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
