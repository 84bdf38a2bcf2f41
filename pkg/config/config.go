// Package config loads the server configuration from ZOTERO_* environment
// variables. Each knob has a safe default; malformed values fall back to
// the default before clamping, so a bad environment never prevents startup.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sternrassler/zotero-mcp/pkg/cache"
	"github.com/Sternrassler/zotero-mcp/pkg/logging"
	"github.com/Sternrassler/zotero-mcp/pkg/zotero"
)

// envPrefix scopes all environment lookups to ZOTERO_* variables.
const envPrefix = "ZOTERO"

// Environment variable names for the credential pair. Kept as constants
// because they appear verbatim in error details.
const (
	EnvAPIKey = "ZOTERO_API_KEY"
	EnvUserID = "ZOTERO_USER_ID"
)

// Credentials identify the Zotero library all requests are scoped to.
type Credentials struct {
	// APIKey is sent as the Zotero-API-Key header.
	APIKey string

	// UserID selects the personal library.
	UserID string

	// APIBase is the API root with any trailing slash removed.
	APIBase string
}

// Missing returns the names of unset credential variables.
func (c Credentials) Missing() []string {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, EnvAPIKey)
	}
	if c.UserID == "" {
		missing = append(missing, EnvUserID)
	}
	return missing
}

// Validate returns an AUTH-classified error naming the missing credential
// variables, or nil when both are set.
func (c Credentials) Validate() error {
	missing := c.Missing()
	if len(missing) == 0 {
		return nil
	}
	return &zotero.APIError{
		Code:    zotero.ErrorCodeAuth,
		Message: "Zotero credentials missing. Set ZOTERO_API_KEY and ZOTERO_USER_ID.",
		Details: map[string]any{"missing": missing},
	}
}

// UserPath returns the library path prefix for the configured user.
func (c Credentials) UserPath() string {
	return "/users/" + c.UserID
}

// Config is the full server configuration, loaded once at startup.
type Config struct {
	Credentials Credentials

	// Retry controls request attempts and backoff.
	Retry zotero.RetryPolicy

	// Cache configures the read cache for GET responses.
	Cache cache.Policy

	// UploadMaxBytes caps attachment payload sizes.
	UploadMaxBytes int64

	// LogLevel is the minimum level for structured logs on stderr.
	LogLevel logging.LogLevel

	// MetricsAddr is the listen address for the optional Prometheus
	// endpoint. Empty disables the listener.
	MetricsAddr string

	// Debug is reported in the server.start event.
	Debug bool
}

// Load reads the configuration from the environment. It never fails:
// credentials may be absent (Credentials.Validate reports that at call
// time) and every other value falls back to its default.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("api_base", zotero.DefaultBaseURL)
	v.SetDefault("mcp_log_level", string(logging.LevelInfo))

	retry := zotero.RetryPolicy{
		MaxAttempts: envInt(v, "retry_max_attempts", 3),
		BaseDelay:   envSeconds(v, "retry_base_delay", 500*time.Millisecond),
		MaxDelay:    envSeconds(v, "retry_max_delay", 4*time.Second),
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	if retry.BaseDelay < 0 {
		retry.BaseDelay = 0
	}
	if retry.MaxDelay < retry.BaseDelay {
		retry.MaxDelay = retry.BaseDelay
	}

	ttl := envSeconds(v, "read_cache_ttl", 30*time.Second)
	if ttl < 0 {
		ttl = 0
	}
	maxEntries := envInt(v, "read_cache_max", 128)
	if maxEntries < 1 {
		maxEntries = 1
	}
	cachePolicy := cache.Policy{
		Enabled:    readCacheEnabled(v.GetString("read_cache")),
		TTL:        ttl,
		MaxEntries: maxEntries,
	}

	return &Config{
		Credentials: Credentials{
			APIKey:  v.GetString("api_key"),
			UserID:  v.GetString("user_id"),
			APIBase: strings.TrimRight(v.GetString("api_base"), "/"),
		},
		Retry:          retry,
		Cache:          cachePolicy,
		UploadMaxBytes: envInt64(v, "upload_max_bytes", zotero.DefaultUploadMaxBytes),
		LogLevel:       logging.LogLevel(v.GetString("mcp_log_level")),
		MetricsAddr:    v.GetString("mcp_metrics_addr"),
		Debug:          v.GetString("mcp_debug") == "1",
	}
}

// ClientConfig maps the loaded configuration onto the Zotero client.
func (c *Config) ClientConfig() zotero.Config {
	return zotero.Config{
		APIKey:         c.Credentials.APIKey,
		UserID:         c.Credentials.UserID,
		BaseURL:        c.Credentials.APIBase,
		Retry:          c.Retry,
		Cache:          c.Cache,
		UploadMaxBytes: c.UploadMaxBytes,
	}
}

// readCacheEnabled interprets the ZOTERO_READ_CACHE toggle. The cache is
// on unless explicitly switched off.
func readCacheEnabled(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "0", "false", "no", "off":
		return false
	}
	return true
}

// envInt reads an integer variable; unset or malformed yields the default.
func envInt(v *viper.Viper, key string, def int) int {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}

// envInt64 reads an int64 variable; unset, malformed, or non-positive
// yields the default.
func envInt64(v *viper.Viper, key string, def int64) int64 {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return def
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return def
	}
	return value
}

// envSeconds reads a duration expressed as float seconds ("0.5" is 500ms);
// unset or malformed yields the default.
func envSeconds(v *viper.Viper, key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return def
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return time.Duration(seconds * float64(time.Second))
}
