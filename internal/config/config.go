// Package config loads application configuration from an optional YAML file
// and DEVISIBLE_ environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "DEVISIBLE"

// Config holds the application configuration.
type Config struct {
	ListenAddr    string
	DBPath        string
	BackendURL    string
	SecretKey     []byte
	SecureCookies bool

	BackendTimeout time.Duration
	BackendRetries int
	SessionTTL     time.Duration
	SweepInterval  time.Duration

	LoginRatePerMinute int
	LoginBurst         int

	LogFormat string
	LogLevel  string
}

var defaults = map[string]any{
	"listen_addr":           "127.0.0.1:8080",
	"db_path":               "devisible.db",
	"backend_url":           "http://localhost:3000",
	"secure_cookies":        false,
	"backend_timeout":       "10s",
	"backend_retries":       3,
	"session_ttl":           "24h",
	"sweep_interval":        "10m",
	"login_rate_per_minute": 10,
	"login_burst":           5,
	"log_format":            "text",
	"log_level":             "info",
}

// Load reads configuration and returns a validated Config. When configFile is
// non-empty the YAML file must exist; environment variables
// (DEVISIBLE_LISTEN_ADDR, DEVISIBLE_SECRET_KEY, ...) override it.
//
// DEVISIBLE_SECRET_KEY is required: 64 hex characters (32 bytes) from which
// the session signing and cookie encryption keys are derived.
func Load(configFile string) (*Config, error) {
	v, err := newViper(configFile)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddr:         v.GetString("listen_addr"),
		DBPath:             v.GetString("db_path"),
		BackendURL:         strings.TrimRight(v.GetString("backend_url"), "/"),
		SecureCookies:      v.GetBool("secure_cookies"),
		BackendRetries:     v.GetInt("backend_retries"),
		LoginRatePerMinute: v.GetInt("login_rate_per_minute"),
		LoginBurst:         v.GetInt("login_burst"),
		LogFormat:          strings.ToLower(v.GetString("log_format")),
		LogLevel:           strings.ToLower(v.GetString("log_level")),
	}

	if cfg.BackendTimeout, err = duration(v, "backend_timeout"); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = duration(v, "session_ttl"); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = duration(v, "sweep_interval"); err != nil {
		return nil, err
	}

	if cfg.SecretKey, err = secretKey(v.GetString("secret_key")); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ListenAddr resolves only the listen address, from the same sources as Load.
// It needs no secret key, so sidecar commands such as the container
// healthcheck can use it.
func ListenAddr(configFile string) (string, error) {
	v, err := newViper(configFile)
	if err != nil {
		return "", err
	}

	addr := v.GetString("listen_addr")
	if addr == "" {
		return "", errors.New(envName("listen_addr") + " must not be empty")
	}
	return addr, nil
}

func newViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	return v, nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

// duration parses key as a positive Go duration.
func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", envName(key), raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", envName(key), d)
	}
	return d, nil
}

func secretKey(raw string) ([]byte, error) {
	name := envName("secret_key")
	if raw == "" {
		return nil, fmt.Errorf("%s is required", name)
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("%s must be 64 hex characters (32 bytes), got %d characters", name, len(raw))
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid hex: %w", name, err)
	}
	return key, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", envName("backend_url"), c.BackendURL)
	}

	if c.ListenAddr == "" {
		return errors.New(envName("listen_addr") + " must not be empty")
	}
	if c.DBPath == "" {
		return errors.New(envName("db_path") + " must not be empty")
	}
	if c.BackendRetries < 0 {
		return fmt.Errorf("%s must not be negative", envName("backend_retries"))
	}
	if c.LoginRatePerMinute <= 0 || c.LoginBurst <= 0 {
		return fmt.Errorf("%s and %s must be positive", envName("login_rate_per_minute"), envName("login_burst"))
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%s must be text or json, got %q", envName("log_format"), c.LogFormat)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s must be one of debug, info, warn, error, got %q", envName("log_level"), c.LogLevel)
	}

	return nil
}
