package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "sessionctl/cli/internal/errors"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestMockSignInDerivesDisplayName(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	m := NewMockWithClock(fixedClock(now))

	s, err := m.SignInWithCredentials(context.Background(), "a@example.com", "x")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", s.User.Email)
	assert.Equal(t, "a", s.User.DisplayName)
	assert.Equal(t, MockUserID("a@example.com"), s.User.ID)
	assert.Equal(t, "mock-token-1700000000000", s.Token.AccessToken)
	assert.Equal(t, now.Add(time.Hour), s.Token.Expiry)
}

func TestMockSignUpKeepsFullNameVerbatim(t *testing.T) {
	m := NewMock()
	s, err := m.SignUpWithCredentials(context.Background(), "b@example.com", "pw", "")
	require.NoError(t, err)
	assert.Equal(t, "", s.User.DisplayName)
	assert.Equal(t, MockUserID("B@Example.com "), s.User.ID, "ids are stable per principal")
}

func TestMockTokensNeverCollide(t *testing.T) {
	m := NewMockWithClock(fixedClock(time.UnixMilli(42)))
	first, err := m.SignInWithCredentials(context.Background(), "a@example.com", "")
	require.NoError(t, err)
	second, err := m.SignInWithCredentials(context.Background(), "a@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "mock-token-42", first.Token.AccessToken)
	assert.Equal(t, "mock-token-43", second.Token.AccessToken)
}

func TestMockRefresh(t *testing.T) {
	m := NewMockWithClock(fixedClock(time.UnixMilli(100)))
	s, err := m.SignInWithCredentials(context.Background(), "a@example.com", "")
	require.NoError(t, err)

	tok, err := m.RefreshSession(context.Background(), s.Token.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, s.Token.AccessToken, tok.AccessToken)

	_, err = m.RefreshSession(context.Background(), "")
	assert.True(t, apperrors.Is(err, apperrors.UpstreamAuthFailure))
}

func TestMockProfileFollowsSignOut(t *testing.T) {
	m := NewMock()
	ctx := context.Background()
	s, err := m.SignUpWithCredentials(ctx, "c@example.com", "", "Cee")
	require.NoError(t, err)

	p, err := m.FetchProfile(ctx, s.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "Cee", p["full_name"])

	require.NoError(t, m.SignOut(ctx, s.Token.AccessToken))
	_, err = m.FetchProfile(ctx, s.Token.AccessToken)
	assert.Error(t, err)
}
