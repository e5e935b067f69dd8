// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build darwin

package keychain

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

var errNativeNotFound = errors.New("key not found")

// securityBackend implements keychain operations using macOS security command.
// Items are stored as generic passwords with the service name as the account
// and the key as the keychain service.
type securityBackend struct {
	account string
	log     zerolog.Logger
}

// newSecurityBackend creates a new macOS security command backend.
func newSecurityBackend(service string, log zerolog.Logger) (*securityBackend, error) {
	if _, err := exec.LookPath("security"); err != nil {
		return nil, fmt.Errorf("security command not found: %w", err)
	}
	return &securityBackend{account: service, log: log}, nil
}

// Set stores a key-value pair in macOS keychain.
func (s *securityBackend) Set(key, value string) error {
	// Delete existing entry first (ignore errors if it doesn't exist)
	if err := s.Delete(key); err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("security: pre-set delete failed")
	}

	cmd := exec.Command("security", "add-generic-password",
		"-a", s.account,
		"-s", key,
		"-w", value,
		"-U", // update if exists
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to store '%s' in keychain: %s: %w", key, strings.TrimSpace(stderr.String()), err)
	}
	return nil
}

// Get retrieves a value from macOS keychain.
func (s *securityBackend) Get(key string) (string, error) {
	cmd := exec.Command("security", "find-generic-password",
		"-a", s.account,
		"-s", key,
		"-w", // output password only
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if strings.Contains(stderr.String(), "could not be found") {
			return "", errNativeNotFound
		}
		return "", fmt.Errorf("failed to retrieve from keychain: %s: %w", strings.TrimSpace(stderr.String()), err)
	}

	result := strings.TrimSpace(stdout.String())
	s.log.Debug().Str("key", key).Int("len", len(result)).Msg("security: get")
	return result, nil
}

// Delete removes a key from macOS keychain. Missing keys are ignored.
func (s *securityBackend) Delete(key string) error {
	cmd := exec.Command("security", "delete-generic-password",
		"-a", s.account,
		"-s", key,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if strings.Contains(stderr.String(), "could not be found") {
			return nil
		}
		return fmt.Errorf("failed to delete from keychain: %s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return nil
}
