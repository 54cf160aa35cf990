// Package config handles configuration loading and validation for the mining engine.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the engine
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Mining      MiningConfig      `mapstructure:"mining"`
	Referral    ReferralConfig    `mapstructure:"referral"`
	Ads         AdsConfig         `mapstructure:"ads"`
	Settlement  SettlementConfig  `mapstructure:"settlement"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	API         APIConfig         `mapstructure:"api"`
	Security    SecurityConfig    `mapstructure:"security"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	NewRelic    NewRelicConfig    `mapstructure:"newrelic"`
	Profiling   ProfilingConfig   `mapstructure:"profiling"`
	Log         LogConfig         `mapstructure:"log"`
}

// AppConfig defines application identity settings
type AppConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MiningConfig defines session settings
type MiningConfig struct {
	DefaultHours  int           `mapstructure:"default_hours"`
	SeedConfig    bool          `mapstructure:"seed_config"`
	StatsInterval time.Duration `mapstructure:"stats_interval"`
}

// ReferralConfig defines referral program rewards
type ReferralConfig struct {
	SignupBonus float64 `mapstructure:"signup_bonus"`
	MiningShare float64 `mapstructure:"mining_share"`
}

// AdsConfig defines rewarded ad settings
type AdsConfig struct {
	RewardTokens float64       `mapstructure:"reward_tokens"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
}

// SettlementConfig defines referral cascade retry settings
type SettlementConfig struct {
	RetryEnabled  bool          `mapstructure:"retry_enabled"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
}

// LeaderboardConfig defines leaderboard settings
type LeaderboardConfig struct {
	Size  int           `mapstructure:"size"`
	Cache time.Duration `mapstructure:"cache"`
}

// APIConfig defines API server settings
type APIConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Bind           string        `mapstructure:"bind"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	AdminEnabled   bool          `mapstructure:"admin_enabled"`
	AdminPassword  string        `mapstructure:"admin_password"`
	StreamInterval time.Duration `mapstructure:"stream_interval"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
}

// SecurityConfig defines request policy settings
type SecurityConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxScore        int32         `mapstructure:"max_score"`
	ScoreResetTime  time.Duration `mapstructure:"score_reset_time"`
	BanDuration     time.Duration `mapstructure:"ban_duration"`
	CostRequest     int32         `mapstructure:"cost_request"`
	CostFailure     int32         `mapstructure:"cost_failure"`
	CostMalformed   int32         `mapstructure:"cost_malformed"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// NotifyConfig defines notification settings
type NotifyConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	DiscordURL string `mapstructure:"discord_url"`
	InboxSize  int64  `mapstructure:"inbox_size"`
}

// NewRelicConfig defines New Relic APM settings
type NewRelicConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	AppName    string `mapstructure:"app_name"`
	LicenseKey string `mapstructure:"license_key"`
}

// ProfilingConfig defines pprof server settings
type ProfilingConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Bind          string `mapstructure:"bind"`
	BlockRate     int    `mapstructure:"block_rate"`
	MutexFraction int    `mapstructure:"mutex_fraction"`
}

// LogConfig defines logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/cryptominer")
	}

	v.SetEnvPrefix("CRYPTOMINER")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Crypto Mining Village")

	v.SetDefault("redis.url", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("mining.default_hours", 1)
	v.SetDefault("mining.seed_config", true)
	v.SetDefault("mining.stats_interval", "30s")

	v.SetDefault("referral.signup_bonus", 200.0)
	v.SetDefault("referral.mining_share", 0.10)

	v.SetDefault("ads.reward_tokens", 10.0)
	v.SetDefault("ads.cooldown", "30s")

	v.SetDefault("settlement.retry_enabled", true)
	v.SetDefault("settlement.retry_interval", "30s")
	v.SetDefault("settlement.max_attempts", 10)

	v.SetDefault("leaderboard.size", 100)
	v.SetDefault("leaderboard.cache", "10s")

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.bind", "0.0.0.0:3000")
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.stream_interval", "1s")
	v.SetDefault("api.metrics_enabled", true)

	v.SetDefault("security.enabled", true)
	v.SetDefault("security.max_score", 300)
	v.SetDefault("security.score_reset_time", "1m")
	v.SetDefault("security.ban_duration", "10m")
	v.SetDefault("security.cost_request", 1)
	v.SetDefault("security.cost_failure", 5)
	v.SetDefault("security.cost_malformed", 20)
	v.SetDefault("security.refresh_interval", "5m")

	v.SetDefault("notify.inbox_size", 100)

	v.SetDefault("newrelic.app_name", "cryptominer-engine")

	v.SetDefault("profiling.bind", "127.0.0.1:6060")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.Redis.URL == "" {
		return fmt.Errorf("redis.url is required")
	}

	if c.Mining.DefaultHours <= 0 {
		return fmt.Errorf("mining.default_hours must be positive")
	}

	if c.Referral.MiningShare < 0 || c.Referral.MiningShare > 1 {
		return fmt.Errorf("referral.mining_share must be between 0 and 1")
	}

	if c.Referral.SignupBonus < 0 {
		return fmt.Errorf("referral.signup_bonus must be >= 0")
	}

	if c.Ads.RewardTokens < 0 {
		return fmt.Errorf("ads.reward_tokens must be >= 0")
	}

	if c.Settlement.RetryEnabled {
		if c.Settlement.RetryInterval <= 0 {
			return fmt.Errorf("settlement.retry_interval must be positive")
		}
		if c.Settlement.MaxAttempts <= 0 {
			return fmt.Errorf("settlement.max_attempts must be positive")
		}
	}

	if c.Leaderboard.Size <= 0 {
		return fmt.Errorf("leaderboard.size must be positive")
	}

	if c.API.AdminEnabled && c.API.AdminPassword == "" {
		return fmt.Errorf("api.admin_password is required when admin is enabled")
	}

	if c.Security.Enabled && c.Security.MaxScore <= 0 {
		return fmt.Errorf("security.max_score must be positive")
	}

	return nil
}
