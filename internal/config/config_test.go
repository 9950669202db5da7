package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	t.Setenv("CAT_API_KEY", "")
	t.Setenv("CATDEX_API_KEY", "")
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.PageSize != def.PageSize {
		t.Fatalf("PageSize = %d, want %d", cfg.PageSize, def.PageSize)
	}
	if cfg.APIBaseURL != def.APIBaseURL {
		t.Fatalf("APIBaseURL = %q, want %q", cfg.APIBaseURL, def.APIBaseURL)
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Fatalf("RequestTimeout() = %v, want 30s", cfg.RequestTimeout())
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	data := `{"page_size": 25, "api_base_url": "http://localhost:9999", "web_port": 9000}`
	if err := os.WriteFile(configPath, []byte(data), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PageSize != 25 {
		t.Fatalf("PageSize = %d, want %d", cfg.PageSize, 25)
	}
	if cfg.APIBaseURL != "http://localhost:9999" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.WebPort != 9000 {
		t.Fatalf("WebPort = %d, want 9000", cfg.WebPort)
	}
	// Untouched fields keep defaults
	if cfg.RequestTimeoutSeconds != 30 {
		t.Fatalf("RequestTimeoutSeconds = %d, want 30", cfg.RequestTimeoutSeconds)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"disabled_tools": ["breeds_status", " breeds_status ", "breeds_get"]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools = %v, want 2 entries", cfg.DisabledTools)
	}
	if cfg.DisabledTools[0] != "breeds_status" || cfg.DisabledTools[1] != "breeds_get" {
		t.Errorf("DisabledTools = %v", cfg.DisabledTools)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{"api_key": "from-file"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv("CAT_API_KEY", "")
	t.Setenv("CATDEX_API_KEY", "from-env")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "from-env" {
		t.Fatalf("APIKey = %q, want %q", cfg.APIKey, "from-env")
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantKey string
		wantURL string
		wantLvl string
	}{
		{
			name:    "no env keeps values",
			env:     nil,
			wantKey: "file-key",
			wantURL: "https://api.thecatapi.com/",
			wantLvl: "info",
		},
		{
			name:    "short key name",
			env:     map[string]string{"CAT_API_KEY": "short"},
			wantKey: "short",
			wantURL: "https://api.thecatapi.com/",
			wantLvl: "info",
		},
		{
			name:    "long key name wins",
			env:     map[string]string{"CAT_API_KEY": "short", "CATDEX_API_KEY": "long"},
			wantKey: "long",
			wantURL: "https://api.thecatapi.com/",
			wantLvl: "info",
		},
		{
			name:    "blank values ignored",
			env:     map[string]string{"CATDEX_API_KEY": "  ", "CATDEX_LOG_LEVEL": ""},
			wantKey: "file-key",
			wantURL: "https://api.thecatapi.com/",
			wantLvl: "info",
		},
		{
			name:    "base url and level",
			env:     map[string]string{"CATDEX_API_BASE_URL": "http://mirror", "CATDEX_LOG_LEVEL": "debug"},
			wantKey: "file-key",
			wantURL: "http://mirror",
			wantLvl: "debug",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.APIKey = "file-key"
			lookup := noEnv
			if tt.env != nil {
				lookup = envMap(tt.env)
			}
			ApplyEnv(cfg, lookup)

			if cfg.APIKey != tt.wantKey {
				t.Errorf("APIKey = %q, want %q", cfg.APIKey, tt.wantKey)
			}
			if cfg.APIBaseURL != tt.wantURL {
				t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, tt.wantURL)
			}
			if cfg.LogLevel != tt.wantLvl {
				t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, tt.wantLvl)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := &Config{
		APIBaseURL:    "https://base",
		PageSize:      100,
		LogLevel:      "info",
		DisabledTools: []string{"a", "b"},
	}
	overlay := &Config{
		PageSize:      10,
		LogFile:       "catdex.log",
		DisabledTools: []string{"b", "c"},
	}

	got := Merge(base, overlay)

	if got.APIBaseURL != "https://base" {
		t.Errorf("APIBaseURL = %q, want base value", got.APIBaseURL)
	}
	if got.PageSize != 10 {
		t.Errorf("PageSize = %d, want overlay value 10", got.PageSize)
	}
	if got.LogFile != "catdex.log" {
		t.Errorf("LogFile = %q", got.LogFile)
	}
	if got.LogLevel != "info" {
		t.Errorf("LogLevel = %q", got.LogLevel)
	}
	want := []string{"a", "b", "c"}
	if len(got.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", got.DisabledTools, want)
	}
	for i := range want {
		if got.DisabledTools[i] != want[i] {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, got.DisabledTools[i], want[i])
		}
	}
}

func TestMergeStringSlice_Empty(t *testing.T) {
	if got := mergeStringSlice(nil, []string{"  "}); got != nil {
		t.Errorf("mergeStringSlice() = %v, want nil", got)
	}
}
