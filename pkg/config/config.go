// Package config loads nbx settings. Sources, lowest precedence first:
// defaults, a JSON/YAML config file, a .env file, NETBOX_* environment
// variables and command-line flags bound by the caller.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Setting keys.
const (
	KeyNetBoxURL            = "netbox_url"
	KeyAPIToken             = "api_token"
	KeyTimeout              = "timeout"
	KeyVerifySSL            = "verify_ssl"
	KeyItemsPerPage         = "items_per_page"
	KeyMaxItems             = "max_items"
	KeyPageConcurrency      = "page_concurrency"
	KeyDisplayTruncateWidth = "display_truncate_width"
	KeyLookupCacheSize      = "lookup_cache_size"
	KeyMaxAttempts          = "max_attempts"
	KeyRedisURL             = "redis_url"
	KeyMetricsAddr          = "metrics_addr"
	KeyLogLevel             = "log_level"
	KeyLogPretty            = "log_pretty"
)

const (
	// FileName is the config file searched for when none is given.
	FileName = "netbox_config"

	// EnvPrefix prefixes every environment override, e.g. NETBOX_MAX_ITEMS.
	EnvPrefix = "NETBOX"

	// PlaceholderToken and PlaceholderURL are the values of a generated
	// config file that was never edited.
	PlaceholderToken = "VOTRE_TOKEN_API_ICI"
	PlaceholderURL   = "https://votre-netbox.example.com"
)

var (
	ErrMissingURL       = errors.New("netbox_url is not set")
	ErrMissingToken     = errors.New("api_token is not set")
	ErrPlaceholderToken = errors.New("api_token is still the placeholder value")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Config is the resolved configuration.
type Config struct {
	NetBoxURL            string        `json:"netbox_url"`
	APIToken             string        `json:"api_token"`
	Timeout              time.Duration `json:"timeout"`
	VerifySSL            bool          `json:"verify_ssl"`
	ItemsPerPage         int           `json:"items_per_page"`
	MaxItems             int           `json:"max_items"`
	PageConcurrency      int           `json:"page_concurrency"`
	DisplayTruncateWidth int           `json:"display_truncate_width"`
	LookupCacheSize      int           `json:"lookup_cache_size"`
	MaxAttempts          int           `json:"max_attempts"`
	RedisURL             string        `json:"redis_url,omitempty"`
	MetricsAddr          string        `json:"metrics_addr,omitempty"`
	LogLevel             string        `json:"log_level"`
	LogPretty            bool          `json:"log_pretty"`

	// File is the config file that was read, if any.
	File string `json:"-"`
}

// Defaults are the values used when no source sets a key.
var Defaults = map[string]any{
	KeyTimeout:              30,
	KeyVerifySSL:            true,
	KeyItemsPerPage:         50,
	KeyMaxItems:             1000,
	KeyPageConcurrency:      5,
	KeyDisplayTruncateWidth: 50,
	KeyLookupCacheSize:      1024,
	KeyMaxAttempts:          3,
	KeyLogLevel:             "warn",
	KeyLogPretty:            true,
}

// NewViper returns a viper instance with defaults and environment bindings.
// Callers bind their flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	for k, val := range Defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// NETBOX_TOKEN is the historical name of the token variable
	_ = v.BindEnv(KeyAPIToken, "NETBOX_TOKEN", "NETBOX_API_TOKEN")
	_ = v.BindEnv(KeyNetBoxURL, "NETBOX_URL")
	return v
}

// SearchPaths returns the directories searched for FileName.
func SearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "nbx"))
	}
	return paths
}

// Load resolves the configuration. path names an explicit config file; when
// empty, FileName is searched in SearchPaths and its absence is not an
// error. A .env file in the working directory is loaded first without
// overriding variables that are already set.
func Load(v *viper.Viper, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Ignoring unreadable .env file")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		for _, p := range SearchPaths() {
			v.AddConfigPath(p)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	timeout, err := seconds(v.Get(KeyTimeout))
	if err != nil {
		return nil, fmt.Errorf("%w: timeout: %w", ErrInvalidConfig, err)
	}

	cfg := &Config{
		NetBoxURL:            strings.TrimSpace(v.GetString(KeyNetBoxURL)),
		APIToken:             strings.TrimSpace(v.GetString(KeyAPIToken)),
		Timeout:              timeout,
		VerifySSL:            v.GetBool(KeyVerifySSL),
		ItemsPerPage:         v.GetInt(KeyItemsPerPage),
		MaxItems:             v.GetInt(KeyMaxItems),
		PageConcurrency:      v.GetInt(KeyPageConcurrency),
		DisplayTruncateWidth: v.GetInt(KeyDisplayTruncateWidth),
		LookupCacheSize:      v.GetInt(KeyLookupCacheSize),
		MaxAttempts:          v.GetInt(KeyMaxAttempts),
		RedisURL:             v.GetString(KeyRedisURL),
		MetricsAddr:          v.GetString(KeyMetricsAddr),
		LogLevel:             v.GetString(KeyLogLevel),
		LogPretty:            v.GetBool(KeyLogPretty),
		File:                 v.ConfigFileUsed(),
	}
	return cfg, nil
}

// Validate checks the settings needed to talk to NetBox.
func (c *Config) Validate() error {
	switch {
	case c.NetBoxURL == "" || c.NetBoxURL == PlaceholderURL:
		return ErrMissingURL
	case c.APIToken == "":
		return ErrMissingToken
	case c.APIToken == PlaceholderToken:
		return ErrPlaceholderToken
	}

	u, err := url.Parse(c.NetBoxURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: netbox_url %q must be an http(s) URL", ErrInvalidConfig, c.NetBoxURL)
	}

	for key, n := range map[string]int{
		KeyItemsPerPage:         c.ItemsPerPage,
		KeyMaxItems:             c.MaxItems,
		KeyPageConcurrency:      c.PageConcurrency,
		KeyDisplayTruncateWidth: c.DisplayTruncateWidth,
		KeyLookupCacheSize:      c.LookupCacheSize,
		KeyMaxAttempts:          c.MaxAttempts,
	} {
		if n <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, key, n)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// MaskedToken returns the token with all but its last four characters hidden.
func (c *Config) MaskedToken() string {
	if c.APIToken == "" {
		return "(not set)"
	}
	if len(c.APIToken) <= 4 {
		return strings.Repeat("*", len(c.APIToken))
	}
	return strings.Repeat("*", len(c.APIToken)-4) + c.APIToken[len(c.APIToken)-4:]
}

// seconds reads a timeout given as a number of seconds or a duration string
// such as "45s".
func seconds(raw any) (time.Duration, error) {
	switch t := raw.(type) {
	case nil:
		return 0, nil
	case int:
		return time.Duration(t) * time.Second, nil
	case int64:
		return time.Duration(t) * time.Second, nil
	case float64:
		return time.Duration(t * float64(time.Second)), nil
	case time.Duration:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(n * float64(time.Second)), nil
		}
		return time.ParseDuration(s)
	default:
		return 0, fmt.Errorf("unsupported value %v", raw)
	}
}
