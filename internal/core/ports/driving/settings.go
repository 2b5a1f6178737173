package driving

import (
	"context"

	"github.com/custodia-labs/whis/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings, falling back to defaults per key.
	Get() (*domain.Settings, error)

	// Save persists settings.
	Save(settings *domain.Settings) error

	// Set stores a single dot-notation key after validating the result.
	Set(key, value string) error

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings

	// Salt returns the pseudonymisation salt from the environment.
	Salt() string

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig(ctx context.Context) error
}
