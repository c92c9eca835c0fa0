package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Property maps an internal property id to its channel-manager keys.
type Property struct {
	RoomID  string `mapstructure:"room_id"`
	PropKey string `mapstructure:"prop_key"`
}

// Config holds all configuration values. It is loaded once at process start
// and treated as immutable afterwards; services receive it by injection
// rather than reading ambient state.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// MongoDB.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis.
	RedisAddr        string `mapstructure:"REDIS_ADDR"`
	RedisPassword    string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB     int    `mapstructure:"REDIS_CACHE_DB"`
	RedisSchedulerDB int    `mapstructure:"REDIS_SCHEDULER_DB"`

	// Stripe.
	StripeKey string `mapstructure:"STRIPE_KEY"`
	Currency  string `mapstructure:"CURRENCY"`

	// Beds24 channel manager.
	Beds24URL    string `mapstructure:"BEDS24_URL"`
	Beds24APIKey string `mapstructure:"BEDS24_API_KEY"`

	// Properties maps internal property ids to Beds24 room/prop keys.
	// Comes from the config file only; there is no sane env encoding.
	Properties map[string]Property `mapstructure:"properties"`

	// Admin auth.
	JWTSecret string `mapstructure:"JWT_SECRET"`
}

// Load reads configuration from config.yaml and the environment and returns
// the immutable Config for injection into the rest of the process.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "casaverde")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_SCHEDULER_DB", 1)
	viper.SetDefault("CURRENCY", "eur")
	viper.SetDefault("BEDS24_URL", "https://api.beds24.com/json")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file: environment variables only.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// IsProduction checks if the environment is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Lookup resolves an internal property id to its channel-manager keys.
func (c *Config) Lookup(propertyID string) (roomID, propKey string, ok bool) {
	p, ok := c.Properties[propertyID]
	if !ok {
		return "", "", false
	}
	return p.RoomID, p.PropKey, true
}
