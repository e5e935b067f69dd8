// Package identity describes the authenticated principal and the identity
// provider capability the session store delegates credential exchange to.
//
// Two providers are available: Mock, which synthesizes sessions locally, and
// HTTP, which talks to a GoTrue-compatible auth endpoint. Session tokens are
// carried as *oauth2.Token so expiry and refresh material travel together.
package identity

import (
	"strings"

	"golang.org/x/oauth2"

	apperrors "sessionctl/cli/internal/errors"
)

// UserIdentity is the authenticated principal as known to the client.
// JSON field names match the record other clients write under the user key.
type UserIdentity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"full_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Validate enforces that a held identity always has an ID and an email.
func (u UserIdentity) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return apperrors.New(apperrors.CorruptedPersistedData, "user record has no id")
	}
	if strings.TrimSpace(u.Email) == "" {
		return apperrors.New(apperrors.CorruptedPersistedData, "user record has no email")
	}
	return nil
}

// DisplayNameOrDefault returns DisplayName, or the local part of the email when unset.
func (u UserIdentity) DisplayNameOrDefault() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return LocalPart(u.Email)
}

// LocalPart returns everything before the first "@" in email.
func LocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// Session is what a provider hands back after a successful credential exchange.
type Session struct {
	User  UserIdentity
	Token *oauth2.Token
}
