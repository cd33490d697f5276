package testsupport

import (
	"path/filepath"
	"testing"

	"jukebox/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Provider.BaseURL = "http://127.0.0.1:0"
	cfg.Storage.Bucket = "jukebox-test"
	cfg.Storage.Region = "us-east-1"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithNtfyTopic sets the ntfy endpoint on the test config.
func WithNtfyTopic(topic string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Notifications.NtfyTopic = topic
	}
}

// WithProviderURL overrides the provider base URL on the test config.
func WithProviderURL(baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Provider.BaseURL = baseURL
	}
}
