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
	// Model is the text-generation model identifier sent with every request.
	Model string `json:"model"`

	// BaseURL overrides the OpenAI-compatible endpoint (empty = provider default).
	BaseURL string `json:"base_url,omitempty"`

	// APIKey is the text-generation credential. Its presence gates draft generation.
	APIKey string `json:"api_key,omitempty"`

	// Temperature is the sampling temperature for generation requests.
	// A zero value in a config file means "use the default".
	Temperature float64 `json:"temperature,omitempty"`

	// DraftDebounceMS is the trailing-edge debounce window for draft regeneration.
	DraftDebounceMS int `json:"draft_debounce_ms,omitempty"`

	// DisableAutoDraft turns off automatic draft regeneration on message changes.
	DisableAutoDraft bool `json:"disable_auto_draft,omitempty"`

	// UnfencedDrafts disables request fencing: the draft shown is whichever
	// response resolves last, even if it was requested earlier.
	UnfencedDrafts bool `json:"unfenced_drafts,omitempty"`

	// PreviewChars is the maximum rune length of a conversation's lastMessage preview.
	PreviewChars int `json:"preview_chars,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// AllowedPaths is an allowlist of directories for report export.
	// Paths outside ~/.mahader/exports require either being in this list or AllowUnsafePaths=true.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for export.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool type names to disable entirely
	// (e.g. "report" disables every report_* tool).
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Model:           "gpt-4o-mini",
		Temperature:     0.3,
		DraftDebounceMS: 400,
		PreviewChars:    80,
		LogLevel:        "info",
	}
}

// DraftDebounce returns the debounce window as a duration.
func (c *Config) DraftDebounce() time.Duration {
	return time.Duration(c.DraftDebounceMS) * time.Millisecond
}

// HasCredential reports whether a text-generation credential is configured.
func (c *Config) HasCredential() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// ApplyEnv fills the credential from MAHADER_API_KEY or OPENAI_API_KEY when
// the config file does not set one.
func ApplyEnv(cfg *Config) {
	if cfg.HasCredential() {
		return
	}
	for _, key := range []string{"MAHADER_API_KEY", "OPENAI_API_KEY"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			cfg.APIKey = v
			return
		}
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
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

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.Model = firstString(overlay.Model, base.Model)
	result.BaseURL = firstString(overlay.BaseURL, base.BaseURL)
	result.APIKey = firstString(overlay.APIKey, base.APIKey)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)

	result.Temperature = overlay.Temperature
	if result.Temperature == 0 {
		result.Temperature = base.Temperature
	}

	result.DraftDebounceMS = firstInt(overlay.DraftDebounceMS, base.DraftDebounceMS)
	result.PreviewChars = firstInt(overlay.PreviewChars, base.PreviewChars)
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	// Booleans: overlay wins if true, else base
	result.DisableAutoDraft = base.DisableAutoDraft || overlay.DisableAutoDraft
	result.UnfencedDrafts = base.UnfencedDrafts || overlay.UnfencedDrafts
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

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

	for _, s := range append(append([]string{}, a...), b...) {
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
