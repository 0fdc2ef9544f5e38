package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope", "config.yaml")); err == nil {
		t.Fatal("explicit missing config file should be an error")
	}

	s, err := Load("")
	if err != nil {
		t.Fatalf("Load with no config file: %v", err)
	}
	if s.SeverityThreshold != 0.3 {
		t.Errorf("expected default threshold 0.3, got %v", s.SeverityThreshold)
	}
	if s.Provider != "openai" || s.DataDir != "data" || s.OutputDir != "outputs" {
		t.Errorf("unexpected defaults: %+v", s)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `severity_threshold: 0.5
provider: openai
model: gpt-4o
data_dir: /srv/corpora
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.SeverityThreshold != 0.5 {
		t.Errorf("expected threshold 0.5, got %v", s.SeverityThreshold)
	}
	if s.Model != "gpt-4o" || s.DataDir != "/srv/corpora" {
		t.Errorf("file values not applied: %+v", s)
	}
	// Unset keys keep defaults.
	if s.OutputDir != "outputs" {
		t.Errorf("expected default output dir, got %q", s.OutputDir)
	}
}

func TestLoadRejectsOutOfRangeThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("severity_threshold: 1.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for threshold out of range")
	}
}

func TestAPIKey(t *testing.T) {
	t.Setenv("LEXTIME_TEST_KEY", "secret")
	s := Settings{APIKeyEnv: "LEXTIME_TEST_KEY"}
	if s.APIKey() != "secret" {
		t.Errorf("expected key from env, got %q", s.APIKey())
	}
	if (Settings{}).APIKey() != "" {
		t.Error("empty env name should yield empty key")
	}
}
