// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	apperrors "sessionctl/cli/internal/errors"
)

// Endpoint paths relative to the provider base URL (GoTrue layout).
const (
	pathToken  = "/token"
	pathSignUp = "/signup"
	pathLogout = "/logout"
	pathUser   = "/user"
)

// HTTP implements Provider over a GoTrue-compatible REST API
// (e.g. "https://<project>.supabase.co/auth/v1").
type HTTP struct {
	// baseURL is the auth API root, without trailing slash
	baseURL string
	// apiKey is the public client key sent as the apikey header
	apiKey string
	// client is the underlying HTTP client with configured timeout
	client *http.Client
	// now stamps token expiry
	now func() time.Time
}

// NewHTTP creates a provider client with a 10-second request timeout.
func NewHTTP(baseURL, apiKey string) *HTTP {
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}
}

// SignInWithCredentials calls POST /token?grant_type=password.
func (h *HTTP) SignInWithCredentials(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]any{"email": email, "password": password}
	raw, err := h.postJSON(ctx, pathToken+"?grant_type=password", "", body)
	if err != nil {
		return nil, err
	}
	return h.parseSession(raw, "sign-in")
}

// SignUpWithCredentials calls POST /signup with the full name as user metadata.
// Projects that require email confirmation answer without a session; that is
// reported as an upstream_auth_failure so the caller does not assume a sign-in.
func (h *HTTP) SignUpWithCredentials(ctx context.Context, email, password, fullName string) (*Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]any{"full_name": fullName},
	}
	raw, err := h.postJSON(ctx, pathSignUp, "", body)
	if err != nil {
		return nil, err
	}
	if extractAccessToken(raw) == "" {
		return nil, apperrors.New(apperrors.UpstreamAuthFailure, "sign-up requires email confirmation before signing in")
	}
	return h.parseSession(raw, "sign-up")
}

// RefreshSession calls POST /token?grant_type=refresh_token.
// The provider may rotate the refresh token or keep it the same.
func (h *HTTP) RefreshSession(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	raw, err := h.postJSON(ctx, pathToken+"?grant_type=refresh_token", "", map[string]any{"refresh_token": refreshToken})
	if err != nil {
		return nil, err
	}
	tok := h.parseToken(raw)
	if tok.AccessToken == "" {
		return nil, apperrors.New(apperrors.UpstreamAuthFailure, "no access_token in refresh response")
	}
	return tok, nil
}

// SignOut calls POST /logout with the access token.
func (h *HTTP) SignOut(ctx context.Context, accessToken string) error {
	_, err := h.do(ctx, http.MethodPost, pathLogout, accessToken, nil)
	return err
}

// FetchProfile calls GET /user and returns the raw user object.
func (h *HTTP) FetchProfile(ctx context.Context, accessToken string) (map[string]any, error) {
	return h.do(ctx, http.MethodGet, pathUser, accessToken, nil)
}

func (h *HTTP) postJSON(ctx context.Context, path, accessToken string, body map[string]any) (map[string]any, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return h.do(ctx, http.MethodPost, path, accessToken, b)
}

// do sends one request. Transport errors are returned as-is so the CLI can
// present them as network problems; provider rejections become
// upstream_auth_failure.
func (h *HTTP) do(ctx context.Context, method, path, accessToken string, body []byte) (map[string]any, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	h.setStandardHeaders(req, accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperrors.Wrap(apperrors.UpstreamAuthFailure,
			fmt.Sprintf("%s %s failed", method, strings.SplitN(path, "?", 2)[0]),
			fmt.Errorf("%d %s", resp.StatusCode, providerMessage(b)))
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return nil, apperrors.Wrap(apperrors.UpstreamAuthFailure, "decode provider response", err)
	}
	return out, nil
}

func (h *HTTP) setStandardHeaders(req *http.Request, accessToken string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "sessionctl-cli/1.0")
	if h.apiKey != "" {
		req.Header.Set("apikey", h.apiKey)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
}

// providerMessage picks the human-readable part of a GoTrue error body.
func providerMessage(b []byte) string {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err == nil {
		for _, k := range []string{"error_description", "msg", "message", "error"} {
			if v, ok := raw[k].(string); ok && v != "" {
				return v
			}
		}
	}
	return strings.TrimSpace(string(b))
}

func (h *HTTP) parseSession(raw map[string]any, op string) (*Session, error) {
	tok := h.parseToken(raw)
	if tok.AccessToken == "" {
		return nil, apperrors.New(apperrors.UpstreamAuthFailure, "no access_token in "+op+" response")
	}
	u := parseUser(raw["user"])
	if err := u.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.UpstreamAuthFailure, op+" response has an incomplete user", err)
	}
	return &Session{User: u, Token: tok}, nil
}

func (h *HTTP) parseToken(raw map[string]any) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  extractAccessToken(raw),
		RefreshToken: extractRefreshToken(raw),
		TokenType:    "bearer",
	}
	if v, ok := raw["token_type"].(string); ok && v != "" {
		tok.TokenType = v
	}
	if secs, ok := raw["expires_in"].(float64); ok && secs > 0 {
		tok.Expiry = h.now().Add(time.Duration(secs) * time.Second)
	} else if at, ok := raw["expires_at"].(float64); ok && at > 0 {
		tok.Expiry = time.Unix(int64(at), 0)
	}
	return tok
}

func parseUser(node any) UserIdentity {
	m, _ := node.(map[string]any)
	u := UserIdentity{
		ID:    stringField(m, "id"),
		Email: stringField(m, "email"),
	}
	meta, _ := m["user_metadata"].(map[string]any)
	u.DisplayName = stringField(meta, "full_name")
	u.AvatarURL = stringField(meta, "avatar_url")
	return u
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// extractAccessToken extracts the access token from the response payload.
// It tries multiple common field names to be resilient to different response formats.
func extractAccessToken(result map[string]any) string {
	for _, k := range []string{"access_token", "accessToken", "token"} {
		if v, ok := result[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// extractRefreshToken extracts the refresh token from the response payload.
// Returns empty string if no refresh token is present.
func extractRefreshToken(result map[string]any) string {
	for _, k := range []string{"refresh_token", "refreshToken"} {
		if v, ok := result[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
