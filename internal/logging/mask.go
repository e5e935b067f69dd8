// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package logging provides the structured logger and utilities for secure
// logging and error presentation. It includes functions for masking session
// material in log messages and formatting session faults for user-friendly
// display.
//
// The package helps ensure that passwords, access tokens and refresh tokens
// are not accidentally exposed in logs or error messages shown to users.
package logging

import (
	"regexp"
	"strings"
)

var (
	rePassword  = regexp.MustCompile(`(?i)(password=)([^\s;&]+)`)
	reToken     = regexp.MustCompile(`(?i)(token=|bearer\s+)([A-Za-z0-9._-]+)`)
	reJSONToken = regexp.MustCompile(`(?i)("(?:access_token|refresh_token|password)"\s*:\s*")([^"]*)(")`)
	reAPIKey    = regexp.MustCompile(`(?i)(apikey=|api_key=)([^\s;&]+)`)
)

// Mask replaces sensitive values in the input string with "*".
// Token fields inside JSON blobs are masked as well.
func Mask(s string) string {
	out := s
	out = rePassword.ReplaceAllString(out, "$1***")
	out = reToken.ReplaceAllString(out, "$1***")
	out = reJSONToken.ReplaceAllString(out, "$1***$3")
	out = reAPIKey.ReplaceAllString(out, "$1***")
	for _, k := range []string{"SESSIONCTL_PROVIDER_KEY", "ACCESS_TOKEN"} {
		out = strings.ReplaceAll(out, k+"=", k+"=***")
	}
	return out
}

// MaskToken keeps the first and last four characters of a token so users can
// tell tokens apart without revealing them.
func MaskToken(token string) string {
	if len(token) <= 12 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", 8) + token[len(token)-4:]
}
