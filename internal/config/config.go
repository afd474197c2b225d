// Package config loads application settings from the environment, an optional
// .env file, and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"

	BackendDisk   = "disk"
	BackendSQLite = "sqlite"

	minSecretLen = 32

	// devSecret is used only outside production when SECRET_KEY is unset.
	devSecret = "flashdeck-development-secret-do-not-deploy"
)

// Config holds the application settings.
type Config struct {
	Env          string
	Port         string
	DatabasePath string
	ImageDir     string
	ImageBackend string
	SecretKey    string
	LogLevel     string
	LogFile      string
	CookieSecure bool
	CORSOrigins  []string
}

// Loader binds config flags to a flag set and resolves the final Config.
type Loader struct {
	flags *flag.FlagSet
}

// NewLoader registers the config flags on fs. Call Load after fs is parsed.
func NewLoader(fs *flag.FlagSet) *Loader {
	fs.String("env-file", ".env", "dotenv file to load when present")
	fs.String("env", "", "application environment: development, production, or testing (APP_ENV)")
	fs.String("port", "", "HTTP listen port (PORT)")
	fs.String("db", "", "SQLite database path (DATABASE_PATH)")
	fs.String("image-dir", "", "directory for uploaded images (IMAGE_DIR)")
	fs.String("image-backend", "", "where image bytes are kept: disk or sqlite (IMAGE_BACKEND)")
	fs.String("log-level", "", "debug, info, warn, or error (LOG_LEVEL)")
	fs.String("log-file", "", "also write JSON logs to this file (LOG_FILE)")
	return &Loader{flags: fs}
}

// Load reads the .env file, the environment, and any flags that were set.
func (l *Loader) Load() (*Config, error) {
	envFile, _ := l.flags.GetString("env-file")
	if envFile != "" {
		// godotenv never overrides variables that are already set.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Env:          strings.ToLower(l.value("env", "APP_ENV", EnvProduction)),
		Port:         l.value("port", "PORT", "8080"),
		DatabasePath: l.value("db", "DATABASE_PATH", "flashdeck.db"),
		ImageDir:     l.value("image-dir", "IMAGE_DIR", "static/images"),
		ImageBackend: strings.ToLower(l.value("image-backend", "IMAGE_BACKEND", BackendDisk)),
		SecretKey:    os.Getenv("SECRET_KEY"),
		LogLevel:     l.value("log-level", "LOG_LEVEL", "info"),
		LogFile:      l.value("log-file", "LOG_FILE", ""),
		// Default to secure cookies; disable only for local development.
		CookieSecure: os.Getenv("COOKIE_SECURE") != "false",
		CORSOrigins:  splitList(os.Getenv("CORS_ORIGINS")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load parses args with the config flags and returns the resolved Config.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("flashdeck", flag.ContinueOnError)
	l := NewLoader(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return l.Load()
}

// ResolveSecret fills in the development secret outside production and
// checks the key is long enough to sign tokens.
func (c *Config) ResolveSecret() error {
	if c.SecretKey == "" {
		if c.Env == EnvProduction {
			return errors.New("SECRET_KEY environment variable is required")
		}
		c.SecretKey = devSecret
	}
	if len(c.SecretKey) < minSecretLen {
		return fmt.Errorf("SECRET_KEY must be at least %d characters", minSecretLen)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTesting:
	default:
		return fmt.Errorf("invalid APP_ENV %q", c.Env)
	}
	switch c.ImageBackend {
	case BackendDisk, BackendSQLite:
	default:
		return fmt.Errorf("invalid IMAGE_BACKEND %q: must be disk or sqlite", c.ImageBackend)
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	return nil
}

// value returns the flag value when the flag was set, else the environment
// variable, else def.
func (l *Loader) value(flagName, envKey, def string) string {
	if l.flags.Changed(flagName) {
		v, _ := l.flags.GetString(flagName)
		return v
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
