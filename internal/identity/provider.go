package identity

import (
	"context"

	"golang.org/x/oauth2"
)

// Provider performs credential exchange with an identity provider.
// Implementations must return errors of kind upstream_auth_failure when the
// provider rejects a request.
type Provider interface {
	SignInWithCredentials(ctx context.Context, email, password string) (*Session, error)
	SignUpWithCredentials(ctx context.Context, email, password, fullName string) (*Session, error)
	// RefreshSession exchanges a refresh token for a renewed token. The
	// returned token may omit RefreshToken when the provider does not rotate it.
	RefreshSession(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	// SignOut revokes the session behind accessToken on the provider side.
	SignOut(ctx context.Context, accessToken string) error
	// FetchProfile returns the provider's view of the current user.
	FetchProfile(ctx context.Context, accessToken string) (map[string]any, error)
}
