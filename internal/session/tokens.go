// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"sessionctl/cli/internal/keychain"
)

// Well-known storage keys. The names match what browser clients of the same
// identity provider write, so a record copied from one rehydrates in the other.
const (
	KeyTokenBlob         = "supabase.auth.token"
	KeyLegacyToken       = "accessToken"
	KeyUser              = "user"
	KeyProfile           = "userProfile"
	KeyIntegrationStatus = "googleSheetStatus"
)

// sessionKeys lists every key a reset clears.
var sessionKeys = []string{KeyTokenBlob, KeyLegacyToken, KeyUser, KeyProfile, KeyIntegrationStatus}

// storedSession is the value written under currentSession in the token blob.
type storedSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"` // unix seconds
}

type tokenBlob struct {
	CurrentSession storedSession `json:"currentSession"`
}

// resolvedToken is what a token lookup found in storage.
type resolvedToken struct {
	access    string
	refresh   string
	expiresAt time.Time
}

func encodeTokenBlob(tok *oauth2.Token) (string, error) {
	s := storedSession{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		s.ExpiresAt = tok.Expiry.Unix()
	}
	b, err := json.Marshal(tokenBlob{CurrentSession: s})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// lookupToken resolves the access token by precedence: the blob's
// currentSession.access_token, the blob's flat access_token, then the legacy
// plain-string key. A blob that is not valid JSON, or is JSON null, ends the
// lookup with nothing found. Only storage faults other than a missing key are returned
// as errors.
func lookupToken(st Storage) (resolvedToken, error) {
	var rt resolvedToken

	raw, err := st.Get(KeyTokenBlob)
	switch {
	case errors.Is(err, keychain.ErrNotFound):
	case err != nil:
		return rt, err
	case raw != "":
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil || parsed == nil {
			return rt, nil
		}
		if obj, ok := parsed.(map[string]any); ok {
			if cs, ok := obj["currentSession"].(map[string]any); ok {
				if v := str(cs, "access_token"); v != "" {
					rt.access = v
					rt.refresh = str(cs, "refresh_token")
					if at, ok := cs["expires_at"].(float64); ok && at > 0 {
						rt.expiresAt = time.Unix(int64(at), 0)
					}
					return rt, nil
				}
			}
			if v := str(obj, "access_token"); v != "" {
				rt.access = v
				rt.refresh = str(obj, "refresh_token")
				return rt, nil
			}
		}
	}

	legacy, err := st.Get(KeyLegacyToken)
	if errors.Is(err, keychain.ErrNotFound) {
		return rt, nil
	}
	if err != nil {
		return rt, err
	}
	rt.access = strings.TrimSpace(legacy)
	return rt, nil
}

func str(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
