// Package xdg resolves XDG Base Directory paths for sessionctl.
//
// Config (config.json) lives under XDG_CONFIG_HOME and the encrypted file
// keyring lives under XDG_STATE_HOME. Directories are created on demand with
// private permissions because both may hold session material.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used below each XDG base directory.
const AppName = "sessionctl"

// ConfigDir returns $XDG_CONFIG_HOME/sessionctl, falling back to
// ~/.config/sessionctl. The directory is created (0700) if missing.
func ConfigDir() (string, error) {
	return ensure("XDG_CONFIG_HOME", ".config")
}

// StateDir returns $XDG_STATE_HOME/sessionctl, falling back to
// ~/.local/state/sessionctl. The directory is created (0700) if missing.
func StateDir() (string, error) {
	return ensure("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func ensure(env, homeRel string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, homeRel)
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
