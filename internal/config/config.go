package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.wazapp/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`

	// Own identity used for directory lookups and echo detection.
	CountryCode string `toml:"country_code"`
	PhoneNumber string `toml:"phone_number"`

	// PictureCache is where downloaded avatar files live. Empty means
	// <session dir>/pictures.
	PictureCache string `toml:"picture_cache"`

	// Legacy flat-file import sources. Both empty means no import.
	LegacyContactsFile string `toml:"legacy_contacts_file"`
	LegacyLogDir       string `toml:"legacy_log_dir"`
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// OwnPhone returns the full international phone number (country code +
// national number) or empty string when unconfigured.
func (c *Config) OwnPhone() string {
	if c.CountryCode == "" || c.PhoneNumber == "" {
		return ""
	}
	return c.CountryCode + c.PhoneNumber
}
