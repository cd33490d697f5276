package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run without.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Provider.BaseURL) == "" {
		problems = append(problems, "provider.base_url is required")
	} else if _, err := url.Parse(c.Provider.BaseURL); err != nil {
		problems = append(problems, fmt.Sprintf("provider.base_url is not a valid URL: %v", err))
	}

	if proxy := strings.TrimSpace(c.Provider.ProxyURL); proxy != "" {
		if _, err := url.Parse(proxy); err != nil {
			problems = append(problems, fmt.Sprintf("provider.proxy_url is not a valid URL: %v", err))
		}
	}

	if strings.TrimSpace(c.Storage.Bucket) == "" {
		problems = append(problems, "storage.bucket is required")
	}
	if strings.TrimSpace(c.Storage.Region) == "" {
		problems = append(problems, "storage.region is required")
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported (console, json)", c.Logging.Format))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
