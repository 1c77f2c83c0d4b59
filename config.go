package atrium

import "time"

// Config holds the externally configurable constants of the sync core. It is
// populated from the viper-managed config file by WithConfigDir, or falls back
// to DefaultConfig for clients configured entirely in code.
type Config struct {
	ConfigDir      string        `mapstructure:"config_dir"`       // Current config dir
	SearchCacheTTL time.Duration `mapstructure:"search_cache_ttl"` // Max age before a search entry is stale
	SweepMaxAge    time.Duration `mapstructure:"sweep_max_age"`    // Hard sweep threshold for cached entries
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`  // Fixed delay between channel reconnect attempts
	CacheVersion   string        `mapstructure:"cache_version"`    // Tag invalidating stale proxy caches on deploy
	ChannelURL     string        `mapstructure:"channel_url"`      // Notification socket endpoint
	APIBaseURL     string        `mapstructure:"api_base_url"`     // Base URL for replayed actions and fetches
}

// DefaultConfig returns the built-in configuration defaults: a 24 hour search
// TTL, a 7 day hard sweep, and a 5 second reconnect delay.
func DefaultConfig() *Config {
	return &Config{
		SearchCacheTTL: DefaultSearchCacheTTL,
		SweepMaxAge:    DefaultSweepMaxAge,
		ReconnectDelay: DefaultReconnectDelay,
		CacheVersion:   "v1",
	}
}
