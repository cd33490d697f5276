package config

import (
	"os"
	"strings"
)

// Environment variables recognized as overrides. Secrets stay out of the config
// file; the proxy URL carries credentials and the AWS SDK reads its own standard
// variables for object store auth.
const (
	envProxyURL        = "JUKEBOX_PROXY_URL"
	envProviderBaseURL = "JUKEBOX_PROVIDER_URL"
	envNtfyTopic       = "JUKEBOX_NTFY_TOPIC"
)

func (c *Config) normalize() error {
	for _, field := range []*string{&c.Paths.DataDir, &c.Paths.LogDir} {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	if v := strings.TrimSpace(os.Getenv(envProxyURL)); v != "" {
		c.Provider.ProxyURL = v
	}
	if v := strings.TrimSpace(os.Getenv(envProviderBaseURL)); v != "" {
		c.Provider.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(envNtfyTopic)); v != "" {
		c.Notifications.NtfyTopic = v
	}

	c.Provider.BaseURL = strings.TrimRight(strings.TrimSpace(c.Provider.BaseURL), "/")
	c.Storage.Endpoint = strings.TrimRight(strings.TrimSpace(c.Storage.Endpoint), "/")

	if c.Provider.RequestTimeout <= 0 {
		c.Provider.RequestTimeout = defaultProviderTimeout
	}
	if c.Provider.RequestsPerMinute <= 0 {
		c.Provider.RequestsPerMinute = defaultProviderRatePerMin
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	return nil
}
