// Package config loads process configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/viper"
)

// ErrMissingAPIKey is returned when SQUARESPACE_API_KEY is not set.
// Nothing can run without the API credential, so this is fatal.
var ErrMissingAPIKey = errors.New("SQUARESPACE_API_KEY is not set")

// Config holds all process configuration.
type Config struct {
	// APIKey is the Squarespace commerce API bearer token.
	APIKey string

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string

	Database DatabaseConfig

	// RedisURL is the address of the Redis instance used for the run
	// lock. Empty disables locking.
	RedisURL string

	// Port is the listen port for serve mode.
	Port string
}

// DatabaseConfig holds the database connection settings. The database
// lives on a fixed hosted address pattern; only the user, password and
// host segment vary per deployment.
type DatabaseConfig struct {
	User     string
	Password string
	Server   string
}

// Load reads configuration from the environment. The variable names are
// fixed by the deployment (no prefix): SQUARESPACE_API_KEY, LOGLEVEL,
// DB_USER, DB_PASS, DB_SERVER, REDIS_URL, PORT.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("LOGLEVEL", "info")
	v.SetDefault("PORT", "8080")

	return &Config{
		APIKey:   v.GetString("SQUARESPACE_API_KEY"),
		LogLevel: v.GetString("LOGLEVEL"),
		Database: DatabaseConfig{
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			Server:   v.GetString("DB_SERVER"),
		},
		RedisURL: v.GetString("REDIS_URL"),
		Port:     v.GetString("PORT"),
	}
}

// Validate checks that the configuration is sufficient to start a run.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// DSN builds the Postgres connection string for the hosted database.
// TLS is required by the host.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s.us-west-2.retooldb.com", d.Server),
		Path:   "retool",
	}
	q := u.Query()
	q.Set("sslmode", "require")
	u.RawQuery = q.Encode()
	return u.String()
}
