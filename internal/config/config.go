// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; session material goes to the OS keychain.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"sessionctl/cli/internal/xdg"
)

// Provider kinds.
const (
	ProviderMock = "mock"
	ProviderHTTP = "http"
)

// Storage backends.
const (
	StorageKeyring = "keyring"
	StorageMemory  = "memory"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	LogLevel string         `json:"log_level"`
	Provider ProviderConfig `json:"provider"`
	Storage  StorageConfig  `json:"storage"`
	// AppURL is the application root users are sent to after sign-out or a failed refresh.
	AppURL string `json:"app_url"`
	// OpenBrowser opens AppURL in the default browser instead of only printing it.
	OpenBrowser bool `json:"open_browser"`
}

// ProviderConfig selects and configures the identity provider.
type ProviderConfig struct {
	Kind    string `json:"kind"`
	BaseURL string `json:"base_url"` // e.g. "https://<project>.supabase.co/auth/v1"
	APIKey  string `json:"api_key"`  // public anon key, sent as the apikey header
}

// StorageConfig selects the credential store backend.
type StorageConfig struct {
	Backend string `json:"backend"`
	// Service scopes every stored key, the way an origin scopes browser storage.
	Service string `json:"service"`
}

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		LogLevel: "info",
		Provider: ProviderConfig{Kind: ProviderMock},
		Storage:  StorageConfig{Backend: StorageKeyring, Service: xdg.AppName},
		AppURL:   "http://localhost:3000/",
	}
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; missing file returns defaults. Environment
// overrides are applied last.
func Load() (Config, error) {
	p, err := Path()
	if err != nil {
		return Config{}, err
	}
	return loadFile(p)
}

func loadFile(p string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(p)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return c, err
	}
	if err == nil {
		if err := json.Unmarshal(data, &c); err != nil {
			return c, err
		}
	}
	applyEnv(&c)
	c.fill()
	return c, nil
}

// applyEnv lets CI and scripts point at a provider without writing a file.
func applyEnv(c *Config) {
	if v := strings.TrimSpace(os.Getenv("SESSIONCTL_PROVIDER_URL")); v != "" {
		c.Provider.Kind = ProviderHTTP
		c.Provider.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SESSIONCTL_PROVIDER_KEY")); v != "" {
		c.Provider.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("SESSIONCTL_STORAGE")); v != "" {
		c.Storage.Backend = v
	}
}

// fill restores defaults for fields a partial config file left empty.
func (c *Config) fill() {
	d := Default()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Provider.Kind == "" {
		c.Provider.Kind = d.Provider.Kind
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.Service == "" {
		c.Storage.Service = d.Storage.Service
	}
	if c.AppURL == "" {
		c.AppURL = d.AppURL
	}
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
