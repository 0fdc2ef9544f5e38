// Package extract turns legal sections into structured norms using an LLM
// provider. Responses are cached by section content and API calls are rate
// limited; a malformed norm in a response never aborts the batch.
package extract

import (
	"context"
	"fmt"
	"strings"
)

// Provider is the minimal LLM surface extraction needs: a completion call
// and an availability probe.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// Complete sends a prompt and returns the raw model output.
	Complete(ctx context.Context, prompt string) (string, error)

	// Available checks whether the provider is configured and reachable.
	Available(ctx context.Context) bool
}

// Config holds provider configuration.
type Config struct {
	// Provider name, currently "openai".
	Provider string

	// Model name (provider-specific).
	Model string

	// APIKey for the provider.
	APIKey string

	// BaseURL for custom endpoints.
	BaseURL string

	// Timeout for API requests, in seconds.
	Timeout int

	// MaxTokens for response generation.
	MaxTokens int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:  "openai",
		Timeout:   60,
		MaxTokens: 4000,
	}
}

// NewProvider creates a provider from configuration.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: openai)", config.Provider)
	}
}
