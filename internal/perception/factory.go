package perception

import (
	"context"
	"fmt"
	"os"
	"time"
)

// ProviderConfig holds the resolved provider selection.
type ProviderConfig struct {
	Provider string // "local" or "gemini"
	APIKey   string
	Model    string
	BaseURL  string // local provider only
	Timeout  time.Duration
}

// NewProvider constructs the configured provider.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "local":
		return NewLocalClient(LocalConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider %q (want local or gemini)", cfg.Provider)
	}
}

// DetectProvider resolves provider selection from the environment.
// Priority: IDEAFORGE_PROVIDER, then GEMINI_API_KEY presence, then local.
func DetectProvider() ProviderConfig {
	cfg := ProviderConfig{
		Provider: os.Getenv("IDEAFORGE_PROVIDER"),
		APIKey:   os.Getenv("IDEAFORGE_API_KEY"),
		Model:    os.Getenv("IDEAFORGE_MODEL"),
		BaseURL:  os.Getenv("IDEAFORGE_BASE_URL"),
	}
	if cfg.Provider == "" {
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("GEMINI_API_KEY")
		}
		if cfg.APIKey != "" {
			cfg.Provider = "gemini"
		} else {
			cfg.Provider = "local"
		}
	}
	return cfg
}
