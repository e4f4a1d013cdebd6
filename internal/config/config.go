package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type CacheType string

const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeRedis  CacheType = "redis"
)

// Config holds the configuration for the mealdesk server and its dependencies.
type Config struct {
	// Listen is the address the mealdesk server will listen on.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// Port overrides the port part of Listen. Bound to the plain PORT env var.
	Port string `yaml:"port" mapstructure:"port"`
	// SessionKey is the key used to sign session cookies.
	SessionKey string `yaml:"session_key" mapstructure:"session_key"`
	// SessionMaxAge is the maximum age of a session cookie in seconds.
	SessionMaxAge int `yaml:"session_max_age" mapstructure:"session_max_age"`
	// CurrencySymbol is prepended to all amounts shown on the dashboard.
	CurrencySymbol string `yaml:"currency_symbol" mapstructure:"currency_symbol"`
	// API holds the configuration for the remote meal order API.
	API *APIConfig `yaml:"api" mapstructure:"api"`
	// Auth holds the credential pair that unlocks the admin page.
	Auth *AuthConfig `yaml:"auth" mapstructure:"auth"`
	// Pricing holds the per-meal prices used for the summary counters.
	Pricing *PricingConfig `yaml:"pricing" mapstructure:"pricing"`
	// Cache holds the configuration for the users cache.
	Cache *CacheConfig `yaml:"cache" mapstructure:"cache"`
	// Database holds the configuration of the activity history database.
	Database *DatabaseConfig `yaml:"database" mapstructure:"database"`
	// KeepWarm holds the configuration of the job that keeps the remote API awake.
	KeepWarm *KeepWarmConfig `yaml:"keep_warm" mapstructure:"keep_warm"`
}

// APIConfig holds the configuration for the remote meal order API.
type APIConfig struct {
	// URL is the base URL of the remote API.
	URL string `yaml:"url" mapstructure:"url"`
	// Timeout is the timeout of a single HTTP attempt.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Retry configures the retry behaviour for transient failures.
	Retry *RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// RetryConfig holds the retry configuration for outbound requests.
type RetryConfig struct {
	// Attempts is the number of retries after the first attempt.
	Attempts int `yaml:"attempts" mapstructure:"attempts"`
	// Delay is the wait before the first retry. It doubles on every retry.
	Delay time.Duration `yaml:"delay" mapstructure:"delay"`
}

// AuthConfig holds the credential pair for the admin page.
type AuthConfig struct {
	// Username is the login name.
	Username string `yaml:"username" mapstructure:"username"`
	// Password is the plain text password. Mutually exclusive with PasswordHash.
	Password string `yaml:"password" mapstructure:"password"`
	// PasswordHash is a bcrypt hash of the password (see `mealdesk hash-password`).
	PasswordHash string `yaml:"password_hash" mapstructure:"password_hash"`
}

// PricingConfig holds the price of every meal in whole currency units.
type PricingConfig struct {
	Breakfast int `yaml:"breakfast" mapstructure:"breakfast"`
	Lunch     int `yaml:"lunch" mapstructure:"lunch"`
	Dinner    int `yaml:"dinner" mapstructure:"dinner"`
}

// CacheConfig holds the configuration for the cache engine.
type CacheConfig struct {
	// Type is the type of cache engine to use (e.g., "memory", "redis").
	Type CacheType `yaml:"type" mapstructure:"type"`
	// RedisURL is the address of the Redis server if using Redis.
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	// UsersTTL is how long the remote user list is cached.
	UsersTTL time.Duration `yaml:"users_ttl" mapstructure:"users_ttl"`
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	// Path is the path to the database file.
	Path string `yaml:"path" mapstructure:"path"`
}

// KeepWarmConfig holds the configuration of the keep-warm job.
type KeepWarmConfig struct {
	// Enabled indicates whether the job is scheduled at all.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Schedule is the cron schedule of the job (5 fields).
	Schedule string `yaml:"schedule" mapstructure:"schedule"`
}

// Load reads the configuration from the specified path and returns a Config struct.
// If path is empty, it will use default search paths for config files.
// A .env file in the working directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	bindNestedEnv(v)
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("MEALDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.mealdesk")
		v.AddConfigPath("/etc/mealdesk")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Debug("No config file found, using defaults and environment")
	} else {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	sanitizeConfig(&c)

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

// setDefaults sets default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "0.0.0.0:5000")
	v.SetDefault("session_key", "")
	v.SetDefault("session_max_age", 3600)
	v.SetDefault("currency_symbol", "₹")

	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.retry.attempts", 3)
	v.SetDefault("api.retry.delay", time.Second)

	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("auth.password_hash", "")

	v.SetDefault("pricing.breakfast", 40)
	v.SetDefault("pricing.lunch", 70)
	v.SetDefault("pricing.dinner", 40)

	v.SetDefault("cache.type", CacheTypeMemory)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.users_ttl", 5*time.Minute)

	v.SetDefault("database.path", "./data/mealdesk.db")

	v.SetDefault("keep_warm.enabled", true)
	v.SetDefault("keep_warm.schedule", "*/10 * * * *")
}

// AutomaticEnv only resolves keys viper already knows about, so keys without
// a default have to be bound by hand.
func bindNestedEnv(v *viper.Viper) {
	v.MustBindEnv("api.url", "MEALDESK_API_URL")
	v.MustBindEnv("port", "PORT")
}

// validateConfig validates the configuration.
func validateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("missing mealdesk config")
	}

	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}

	if c.SessionKey == "" {
		return fmt.Errorf("session key is required")
	}

	if c.API == nil || c.API.URL == "" {
		return fmt.Errorf("api URL is required")
	}
	if c.API.Retry == nil {
		c.API.Retry = &RetryConfig{Attempts: 3, Delay: time.Second}
	}
	if c.API.Retry.Attempts < 0 {
		return fmt.Errorf("api retry attempts must not be negative")
	}
	if c.API.Retry.Delay < 0 {
		return fmt.Errorf("api retry delay must not be negative")
	}

	if c.Auth == nil || c.Auth.Username == "" {
		return fmt.Errorf("auth username is required")
	}
	if c.Auth.Password == "" && c.Auth.PasswordHash == "" {
		return fmt.Errorf("either auth password or auth password hash is required")
	}
	if c.Auth.Password != "" && c.Auth.PasswordHash != "" {
		return fmt.Errorf("only one of auth password or auth password hash can be configured")
	}

	if c.Pricing == nil {
		c.Pricing = &PricingConfig{Breakfast: 40, Lunch: 70, Dinner: 40}
	}
	if c.Pricing.Breakfast < 0 || c.Pricing.Lunch < 0 || c.Pricing.Dinner < 0 {
		return fmt.Errorf("meal prices must not be negative")
	}

	if c.Cache != nil {
		if c.Cache.Type == "" {
			return fmt.Errorf("cache type is required when cache is configured")
		}
		if c.Cache.Type != CacheTypeMemory && c.Cache.Type != CacheTypeRedis {
			return fmt.Errorf("unknown cache type %q", c.Cache.Type)
		}
		if c.Cache.Type == CacheTypeRedis && c.Cache.RedisURL == "" {
			return fmt.Errorf("Redis URL is required when Redis cache is enabled") //nolint:staticcheck
		}
	} else {
		c.Cache = &CacheConfig{
			Type:     CacheTypeMemory,
			UsersTTL: 5 * time.Minute,
		}
	}

	if c.Database == nil || c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.KeepWarm != nil && c.KeepWarm.Enabled {
		if len(strings.Fields(c.KeepWarm.Schedule)) != 5 {
			return fmt.Errorf("keep warm schedule must be a valid cron expression with 5 fields (minute hour day month weekday)")
		}
	}

	return nil
}

// sanitizeConfig sanitizes the configuration values.
func sanitizeConfig(c *Config) {
	if c == nil {
		return
	}

	c.Listen = strings.TrimSpace(c.Listen)
	if port := strings.TrimSpace(c.Port); port != "" {
		host, _, err := net.SplitHostPort(c.Listen)
		if err != nil {
			host = "0.0.0.0"
		}
		c.Listen = net.JoinHostPort(host, port)
	}

	if c.API != nil {
		c.API.URL = urlSanitize(c.API.URL)
	}

	if c.Auth != nil {
		c.Auth.Username = strings.TrimSpace(c.Auth.Username)
	}
}

func urlSanitize(url string) string {
	return strings.TrimSuffix(strings.TrimSpace(url), "/")
}

// MealPrices returns the breakfast, lunch and dinner prices with defaults applied.
func (c *Config) MealPrices() (breakfast, lunch, dinner int) {
	if c == nil || c.Pricing == nil {
		return 40, 70, 40
	}
	return c.Pricing.Breakfast, c.Pricing.Lunch, c.Pricing.Dinner
}
