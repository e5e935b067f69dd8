package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	apperrors "sessionctl/cli/internal/errors"
)

// mockNamespace seeds the deterministic principal IDs handed out by Mock.
var mockNamespace = uuid.MustParse("0b6c3a5e-52f1-4c1e-9a43-6f0f3bb0d7a1")

const (
	mockTokenPrefix   = "mock-token-"
	mockRefreshPrefix = "mock-refresh-"
	mockTokenTTL      = time.Hour
)

// Mock synthesizes sessions without contacting anything. Passwords are
// accepted and ignored. Principal IDs are stable per email address.
type Mock struct {
	mu    sync.Mutex
	now   func() time.Time
	last  int64
	users map[string]UserIdentity // access token -> user
}

// NewMock returns a Mock using the wall clock.
func NewMock() *Mock {
	return NewMockWithClock(time.Now)
}

// NewMockWithClock returns a Mock reading time from now.
func NewMockWithClock(now func() time.Time) *Mock {
	return &Mock{now: now, users: make(map[string]UserIdentity)}
}

// MockUserID returns the ID Mock assigns to email.
func MockUserID(email string) string {
	return uuid.NewSHA1(mockNamespace, []byte(strings.ToLower(strings.TrimSpace(email)))).String()
}

func (m *Mock) SignInWithCredentials(ctx context.Context, email, _ string) (*Session, error) {
	return m.issue(UserIdentity{ID: MockUserID(email), Email: email, DisplayName: LocalPart(email)}), nil
}

func (m *Mock) SignUpWithCredentials(ctx context.Context, email, _ string, fullName string) (*Session, error) {
	return m.issue(UserIdentity{ID: MockUserID(email), Email: email, DisplayName: fullName}), nil
}

func (m *Mock) RefreshSession(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if !strings.HasPrefix(refreshToken, mockRefreshPrefix) {
		return nil, apperrors.New(apperrors.UpstreamAuthFailure, "invalid refresh token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenLocked(), nil
}

func (m *Mock) SignOut(ctx context.Context, accessToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, accessToken)
	return nil
}

func (m *Mock) FetchProfile(ctx context.Context, accessToken string) (map[string]any, error) {
	m.mu.Lock()
	u, ok := m.users[accessToken]
	m.mu.Unlock()
	if !ok {
		return nil, apperrors.New(apperrors.UpstreamAuthFailure, "unknown access token")
	}
	return map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"full_name":  u.DisplayName,
		"avatar_url": u.AvatarURL,
	}, nil
}

func (m *Mock) issue(u UserIdentity) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok := m.tokenLocked()
	m.users[tok.AccessToken] = u
	return &Session{User: u, Token: tok}
}

// tokenLocked mints a token stamped with a strictly increasing millisecond
// value, so two tokens from one Mock never collide.
func (m *Mock) tokenLocked() *oauth2.Token {
	now := m.now()
	stamp := now.UnixMilli()
	if stamp <= m.last {
		stamp = m.last + 1
	}
	m.last = stamp
	return &oauth2.Token{
		AccessToken:  fmt.Sprintf("%s%d", mockTokenPrefix, stamp),
		RefreshToken: fmt.Sprintf("%s%d", mockRefreshPrefix, stamp),
		TokenType:    "bearer",
		Expiry:       now.Add(mockTokenTTL),
	}
}
