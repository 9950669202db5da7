package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	// APIBaseURL is the root of the cat image API (TheCatAPI compatible).
	APIBaseURL string `json:"api_base_url,omitempty"`

	// APIKey is sent as the x-api-key header. Empty means anonymous access.
	// CATDEX_API_KEY (or CAT_API_KEY) overrides the file value.
	APIKey string `json:"api_key,omitempty"`

	// PageSize is the number of image records requested per refresh.
	PageSize int `json:"page_size,omitempty"`

	// RequestTimeoutSeconds bounds a single HTTP call to the API.
	RequestTimeoutSeconds int `json:"request_timeout_seconds,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is text or json.
	LogFormat string `json:"log_format,omitempty"`

	// LogFile, when set, sends logs to a size-rotated file instead of stderr.
	// Relative paths are resolved against the base directory.
	LogFile string `json:"log_file,omitempty"`

	// LogMaxSizeMB is the rotation threshold for LogFile.
	LogMaxSizeMB int `json:"log_max_size_mb,omitempty"`

	// WebBind and WebPort are the listen address for `catdex serve`.
	WebBind string `json:"web_bind,omitempty"`
	WebPort int    `json:"web_port,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:            "https://api.thecatapi.com/",
		PageSize:              100,
		RequestTimeoutSeconds: 30,
		LogLevel:              "info",
		LogFormat:             "text",
		LogMaxSizeMB:          10,
		WebBind:               "127.0.0.1",
		WebPort:               8787,
	}
}

// RequestTimeout returns RequestTimeoutSeconds as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Load loads configuration from baseDir/config.json and applies environment overrides.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.catdex.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg, os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg.
// lookup is os.LookupEnv in production.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("CAT_API_KEY"); ok && strings.TrimSpace(v) != "" {
		cfg.APIKey = strings.TrimSpace(v)
	}
	// CATDEX_API_KEY wins over the shorter name.
	if v, ok := lookup("CATDEX_API_KEY"); ok && strings.TrimSpace(v) != "" {
		cfg.APIKey = strings.TrimSpace(v)
	}
	if v, ok := lookup("CATDEX_API_BASE_URL"); ok && strings.TrimSpace(v) != "" {
		cfg.APIBaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup("CATDEX_LOG_LEVEL"); ok && strings.TrimSpace(v) != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// File doesn't exist, return zero config
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.APIBaseURL = firstString(overlay.APIBaseURL, base.APIBaseURL)
	result.APIKey = firstString(overlay.APIKey, base.APIKey)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)
	result.LogFormat = firstString(overlay.LogFormat, base.LogFormat)
	result.LogFile = firstString(overlay.LogFile, base.LogFile)
	result.WebBind = firstString(overlay.WebBind, base.WebBind)

	result.PageSize = firstInt(overlay.PageSize, base.PageSize)
	result.RequestTimeoutSeconds = firstInt(overlay.RequestTimeoutSeconds, base.RequestTimeoutSeconds)
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.LogMaxSizeMB = firstInt(overlay.LogMaxSizeMB, base.LogMaxSizeMB)
	result.WebPort = firstInt(overlay.WebPort, base.WebPort)

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
