package config

const (
	defaultDataDir            = "~/.local/share/jukebox"
	defaultLogDir             = "~/.local/share/jukebox/logs"
	defaultAPIBind            = "127.0.0.1:7640"
	defaultProviderBaseURL    = "http://127.0.0.1:8080"
	defaultProviderTimeout    = 30
	defaultProviderRatePerMin = 60
	defaultStorageRegion      = "us-east-1"
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Provider: Provider{
			BaseURL:           defaultProviderBaseURL,
			RequestTimeout:    defaultProviderTimeout,
			RequestsPerMinute: defaultProviderRatePerMin,
		},
		Storage: Storage{
			Region: defaultStorageRegion,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
