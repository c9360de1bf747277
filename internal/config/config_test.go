package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.Model != def.Model {
		t.Errorf("Model = %q, want %q", cfg.Model, def.Model)
	}
	if cfg.DraftDebounceMS != 400 {
		t.Errorf("DraftDebounceMS = %d, want 400", cfg.DraftDebounceMS)
	}
	if cfg.DraftDebounce() != 400*time.Millisecond {
		t.Errorf("DraftDebounce() = %v", cfg.DraftDebounce())
	}
	if cfg.HasCredential() {
		t.Error("default config should have no credential")
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	data := `{"model": "gpt-4.1", "draft_debounce_ms": 50, "unfenced_drafts": true, "api_key": "sk-test"}`
	if err := os.WriteFile(configPath, []byte(data), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model != "gpt-4.1" {
		t.Errorf("Model = %q, want gpt-4.1", cfg.Model)
	}
	if cfg.DraftDebounceMS != 50 {
		t.Errorf("DraftDebounceMS = %d, want 50", cfg.DraftDebounceMS)
	}
	if !cfg.UnfencedDrafts {
		t.Error("UnfencedDrafts should be true")
	}
	if !cfg.HasCredential() {
		t.Error("expected credential from file")
	}
	// Untouched values keep defaults
	if cfg.PreviewChars != 80 {
		t.Errorf("PreviewChars = %d, want 80", cfg.PreviewChars)
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

func TestMerge_ArraysDeduplicated(t *testing.T) {
	base := &Config{DisabledTools: []string{"report_save", " draft_set "}}
	overlay := &Config{DisabledTools: []string{"draft_set", "message_send", ""}}

	result := Merge(base, overlay)

	want := []string{"report_save", "draft_set", "message_send"}
	if len(result.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", result.DisabledTools, want)
	}
	for i := range want {
		if result.DisabledTools[i] != want[i] {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, result.DisabledTools[i], want[i])
		}
	}
}

func TestMerge_EmptyArraysStayNil(t *testing.T) {
	result := Merge(&Config{}, &Config{})
	if result.AllowedPaths != nil {
		t.Errorf("AllowedPaths = %v, want nil", result.AllowedPaths)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MAHADER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg := DefaultConfig()
	ApplyEnv(cfg)
	if cfg.APIKey != "sk-env" {
		t.Errorf("APIKey = %q, want sk-env", cfg.APIKey)
	}

	// File value wins over env
	cfg = DefaultConfig()
	cfg.APIKey = "sk-file"
	ApplyEnv(cfg)
	if cfg.APIKey != "sk-file" {
		t.Errorf("APIKey = %q, want sk-file", cfg.APIKey)
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "loud")

	logger.Debug("dropped")
	logger.Info("kept")

	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
