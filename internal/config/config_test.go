package config

import (
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	want := &Config{
		DefaultSession: "work",
		CountryCode:    "49",
		PhoneNumber:    "1711234567",
		LegacyLogDir:   "/tmp/logs",
	}
	if err := Save(path, want); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.DefaultSession != "work" {
		t.Errorf("default_session = %q, want work", got.DefaultSession)
	}
	if got.OwnPhone() != "491711234567" {
		t.Errorf("OwnPhone() = %q, want 491711234567", got.OwnPhone())
	}
	if got.LegacyLogDir != "/tmp/logs" {
		t.Errorf("legacy_log_dir = %q, want /tmp/logs", got.LegacyLogDir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestOwnPhoneUnconfigured(t *testing.T) {
	cfg := &Config{CountryCode: "49"}
	if got := cfg.OwnPhone(); got != "" {
		t.Errorf("OwnPhone() = %q, want empty", got)
	}
}
