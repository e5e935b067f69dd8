// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides the thread-safe persistent key-value surface that
// session state is written to. It manages all interactions with the OS
// keychain/credential store, scoped by a service name the way a browser scopes
// storage by origin.
//
// The package supports macOS Keychain (through the native security command or
// the keyring library), Windows Credential Manager, the Linux Secret Service,
// KWallet, pass and an encrypted file fallback. An in-memory ring backs tests
// and ephemeral sessions.
package keychain

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog"

	apperrors "sessionctl/cli/internal/errors"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("key not found")

// Manager provides centralized, thread-safe operations for the credential store.
type Manager struct {
	mu      sync.RWMutex
	ring    keyring.Keyring
	backend keychainBackend
	log     zerolog.Logger
}

// keychainBackend defines the interface for native keychain operations.
type keychainBackend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// Options configures how the OS credential store is opened.
type Options struct {
	// Service namespaces every key.
	Service string
	// FileDir is where the encrypted file backend stores items (Linux fallback).
	FileDir string
	// FilePassword unlocks the file backend; nil disables that backend.
	FilePassword keyring.PromptFunc
	Logger       zerolog.Logger
}

// Open creates a manager over the OS credential store. Failure to reach any
// backend is reported as a persistence_unavailable error.
func Open(opts Options) (*Manager, error) {
	if opts.Service == "" {
		return nil, apperrors.New(apperrors.PersistenceUnavailable, "empty keychain service name")
	}

	// Try native security backend first on macOS
	if runtime.GOOS == "darwin" {
		backend, err := newSecurityBackend(opts.Service, opts.Logger)
		if err == nil {
			return &Manager{backend: backend, log: opts.Logger}, nil
		}
		opts.Logger.Debug().Err(err).Msg("native security backend unavailable, using keyring")
	}

	ring, err := openRing(opts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.PersistenceUnavailable, "open credential store", err)
	}
	return &Manager{ring: ring, log: opts.Logger}, nil
}

// NewWithRing wraps an already opened keyring.
func NewWithRing(ring keyring.Keyring, log zerolog.Logger) *Manager {
	return &Manager{ring: ring, log: log}
}

// NewMemory returns a manager over an in-memory ring. Nothing survives the process.
func NewMemory() *Manager {
	return NewWithRing(keyring.NewArrayKeyring(nil), zerolog.Nop())
}

// openRing opens the OS keyring using the backends native to the platform.
func openRing(opts Options) (keyring.Keyring, error) {
	var allowedBackends []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		// Pass requires 'pass' utility installed: brew install pass
		allowedBackends = []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.PassBackend,
		}
	case "windows":
		allowedBackends = []keyring.BackendType{keyring.WinCredBackend}
	default:
		allowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.PassBackend,
		}
		if opts.FileDir != "" && opts.FilePassword != nil {
			allowedBackends = append(allowedBackends, keyring.FileBackend)
		}
	}

	cfg := keyring.Config{
		ServiceName:             opts.Service,
		AllowedBackends:         allowedBackends,
		PassPrefix:              opts.Service,
		LibSecretCollectionName: opts.Service,
		KWalletAppID:            opts.Service,
		KWalletFolder:           opts.Service,
		FileDir:                 opts.FileDir,
		FilePasswordFunc:        opts.FilePassword,
	}
	if runtime.GOOS == "windows" {
		cfg.WinCredPrefix = opts.Service
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable. On macOS 26.0+, install 'pass': brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, err
	}
	return ring, nil
}

// Get returns the value stored under key, or ErrNotFound.
func (m *Manager) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.backend != nil {
		v, err := m.backend.Get(key)
		if errors.Is(err, errNativeNotFound) {
			return "", ErrNotFound
		}
		return v, err
	}

	it, err := m.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(it.Data), nil
}

// Set stores value under key, replacing any previous value.
func (m *Manager) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Debug().Str("key", key).Int("len", len(value)).Msg("keychain set")
	if m.backend != nil {
		return m.backend.Set(key, value)
	}
	return m.ring.Set(keyring.Item{Key: key, Data: []byte(value)})
}

// Remove deletes key. A missing key is not an error.
func (m *Manager) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remove(key)
}

func (m *Manager) remove(key string) error {
	if m.backend != nil {
		return m.backend.Delete(key)
	}
	if err := m.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}

// Clear removes every key. All removals are attempted; the first failure is returned.
func (m *Manager) Clear(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var first error
	for _, k := range keys {
		if err := m.remove(k); err != nil {
			m.log.Debug().Err(err).Str("key", k).Msg("keychain remove failed")
			if first == nil {
				first = fmt.Errorf("remove %q: %w", k, err)
			}
		}
	}
	return first
}
