package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	apperrors "sessionctl/cli/internal/errors"
	"sessionctl/cli/internal/identity"
	"sessionctl/cli/internal/keychain"
)

// stubProvider lets tests script provider answers.
type stubProvider struct {
	identity.Provider
	signInErr  error
	refreshErr error
	refreshed  *oauth2.Token
	profileErr error
	signOuts   []string
}

func (p *stubProvider) FetchProfile(ctx context.Context, accessToken string) (map[string]any, error) {
	if p.profileErr != nil {
		return nil, p.profileErr
	}
	return p.Provider.FetchProfile(ctx, accessToken)
}

func (p *stubProvider) SignInWithCredentials(ctx context.Context, email, password string) (*identity.Session, error) {
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	return p.Provider.SignInWithCredentials(ctx, email, password)
}

func (p *stubProvider) RefreshSession(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if p.refreshErr != nil {
		return nil, p.refreshErr
	}
	if p.refreshed != nil {
		return p.refreshed, nil
	}
	return p.Provider.RefreshSession(ctx, refreshToken)
}

func (p *stubProvider) SignOut(ctx context.Context, accessToken string) error {
	p.signOuts = append(p.signOuts, accessToken)
	return p.Provider.SignOut(ctx, accessToken)
}

// failingStorage fails every call except those it forwards.
type failingStorage struct {
	*keychain.Manager
	getErr   error
	setErr   error
	clearErr error
}

func (f *failingStorage) Get(key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.Manager.Get(key)
}

func (f *failingStorage) Clear(keys ...string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	return f.Manager.Clear(keys...)
}

func (f *failingStorage) Set(key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Manager.Set(key, value)
}

type navCounter struct{ n int }

func newStore(t *testing.T, st Storage, p identity.Provider) (*Store, *navCounter) {
	t.Helper()
	nav := &navCounter{}
	return New(st, p, WithNavigator(NavigatorFunc(func(context.Context) { nav.n++ }))), nav
}

func assertKeysAbsent(t *testing.T, st Storage, keys ...string) {
	t.Helper()
	for _, k := range keys {
		_, err := st.Get(k)
		assert.ErrorIs(t, err, keychain.ErrNotFound, "key %q should be absent", k)
	}
}

func TestNewStoreStartsLoading(t *testing.T) {
	s, _ := newStore(t, keychain.NewMemory(), nil)
	st := s.State()
	assert.True(t, st.IsLoading)
	assert.Nil(t, st.CurrentUser)
}

func TestInitializeEmptyStorage(t *testing.T) {
	s, _ := newStore(t, keychain.NewMemory(), nil)
	res := s.Initialize(context.Background())
	assert.NoError(t, res.Fault)
	assert.False(t, res.Reset)
	assert.Equal(t, State{}, s.State())
}

func TestInitializeRestoresUser(t *testing.T) {
	mem := keychain.NewMemory()
	require.NoError(t, mem.Set(KeyLegacyToken, "mock-token-1"))
	require.NoError(t, mem.Set(KeyUser, `{"id":"u1","email":"a@example.com","full_name":"a"}`))

	s, _ := newStore(t, mem, nil)
	res := s.Initialize(context.Background())
	require.NoError(t, res.Fault)
	st := s.State()
	require.NotNil(t, st.CurrentUser)
	assert.Equal(t, identity.UserIdentity{ID: "u1", Email: "a@example.com", DisplayName: "a"}, *st.CurrentUser)
	assert.False(t, st.IsLoading)
}

func TestInitializeTokenWithoutUserStaysAnonymous(t *testing.T) {
	mem := keychain.NewMemory()
	require.NoError(t, mem.Set(KeyLegacyToken, "mock-token-1"))

	s, _ := newStore(t, mem, nil)
	res := s.Initialize(context.Background())
	assert.NoError(t, res.Fault)
	assert.Nil(t, s.State().CurrentUser)
}

func TestInitializeDiscardsCorruptedUser(t *testing.T) {
	for _, record := range []string{"{", "not json", `{"id":`, `[1,2`, `{"email":"a@example.com"}`, `{"id":"u1"}`} {
		t.Run(record, func(t *testing.T) {
			mem := keychain.NewMemory()
			require.NoError(t, mem.Set(KeyTokenBlob, `{"currentSession":{"access_token":"t1"}}`))
			require.NoError(t, mem.Set(KeyUser, record))

			s, _ := newStore(t, mem, nil)
			res := s.Initialize(context.Background())

			assert.Equal(t, apperrors.CorruptedPersistedData, apperrors.KindOf(res.Fault))
			assert.True(t, res.Reset)
			assert.Nil(t, s.State().CurrentUser)
			assert.False(t, s.State().IsLoading)
			assertKeysAbsent(t, mem, KeyUser, KeyTokenBlob)
		})
	}
}

func TestInitializeStorageFaultResetsEverything(t *testing.T) {
	mem := keychain.NewMemory()
	require.NoError(t, mem.Set(KeyProfile, "{}"))
	st := &failingStorage{Manager: mem, getErr: errors.New("keyring locked")}

	s, _ := newStore(t, st, nil)
	res := s.Initialize(context.Background())

	assert.Equal(t, apperrors.PersistenceUnavailable, apperrors.KindOf(res.Fault))
	assert.True(t, res.Reset)
	assert.Nil(t, s.State().CurrentUser)
	assert.False(t, s.State().IsLoading)
	assertKeysAbsent(t, mem, KeyProfile)
}

func TestInitializeWithoutStorage(t *testing.T) {
	s, _ := newStore(t, nil, nil)
	res := s.Initialize(context.Background())
	assert.Equal(t, apperrors.PersistenceUnavailable, apperrors.KindOf(res.Fault))
	assert.Equal(t, State{}, s.State())
}

func TestGetAccessTokenPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		blob   string
		legacy string
		want   string
		found  bool
	}{
		{name: "nothing stored"},
		{name: "nested wins over flat", blob: `{"currentSession":{"access_token":"nested"},"access_token":"flat"}`, legacy: "legacy", want: "nested", found: true},
		{name: "flat", blob: `{"access_token":"flat"}`, legacy: "legacy", want: "flat", found: true},
		{name: "empty nested falls to flat", blob: `{"currentSession":{"access_token":""},"access_token":"flat"}`, want: "flat", found: true},
		{name: "blob without token falls to legacy", blob: `{"other":1}`, legacy: "legacy", want: "legacy", found: true},
		{name: "non-object blob falls to legacy", blob: `"just a string"`, legacy: "legacy", want: "legacy", found: true},
		{name: "unparsable blob ends the lookup", blob: `{broken`, legacy: "legacy"},
		{name: "null blob ends the lookup", blob: `null`, legacy: "legacy"},
		{name: "legacy only", legacy: "legacy", want: "legacy", found: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := keychain.NewMemory()
			if tt.blob != "" {
				require.NoError(t, mem.Set(KeyTokenBlob, tt.blob))
			}
			if tt.legacy != "" {
				require.NoError(t, mem.Set(KeyLegacyToken, tt.legacy))
			}
			s, _ := newStore(t, mem, nil)

			got, ok := s.GetAccessToken()
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetAccessTokenIsPure(t *testing.T) {
	mem := keychain.NewMemory()
	require.NoError(t, mem.Set(KeyTokenBlob, `{broken`))
	s, _ := newStore(t, mem, nil)
	before := s.State()

	_, ok := s.GetAccessToken()
	assert.False(t, ok)
	assert.Equal(t, before, s.State())
	v, err := mem.Get(KeyTokenBlob)
	require.NoError(t, err)
	assert.Equal(t, `{broken`, v)
}

func TestGetAccessTokenUnavailableStorage(t *testing.T) {
	s, _ := newStore(t, nil, nil)
	_, ok := s.GetAccessToken()
	assert.False(t, ok)

	st := &failingStorage{Manager: keychain.NewMemory(), getErr: errors.New("no dbus")}
	s, _ = newStore(t, st, nil)
	_, ok = s.GetAccessToken()
	assert.False(t, ok)
}

func TestSignIn(t *testing.T) {
	mem := keychain.NewMemory()
	clock := time.UnixMilli(1_700_000_000_000)
	s, _ := newStore(t, mem, identity.NewMockWithClock(func() time.Time { return clock }))
	s.Initialize(context.Background())

	require.NoError(t, s.SignIn(context.Background(), "a@example.com", "x"))

	st := s.State()
	require.NotNil(t, st.CurrentUser)
	assert.Equal(t, "a@example.com", st.CurrentUser.Email)
	assert.Equal(t, "a", st.CurrentUser.DisplayName)
	assert.NotEmpty(t, st.CurrentUser.ID)
	assert.False(t, st.IsLoading)

	tok, ok := s.GetAccessToken()
	require.True(t, ok)
	assert.Equal(t, "mock-token-1700000000000", tok)
	legacy, err := mem.Get(KeyLegacyToken)
	require.NoError(t, err)
	assert.Equal(t, tok, legacy)

	exp, ok := s.TokenExpiry()
	require.True(t, ok)
	assert.Equal(t, clock.Add(time.Hour).Unix(), exp.Unix())

	profile, ok := s.CachedProfile()
	require.True(t, ok)
	assert.Equal(t, "a@example.com", profile["email"])

	// A fresh store over the same storage rehydrates the user.
	again, _ := newStore(t, mem, nil)
	require.NoError(t, again.Initialize(context.Background()).Fault)
	assert.Equal(t, st.CurrentUser, again.State().CurrentUser)
}

func TestSignUpKeepsFullNameVerbatim(t *testing.T) {
	s, _ := newStore(t, keychain.NewMemory(), nil)
	require.NoError(t, s.SignUp(context.Background(), "b@example.com", "pw", ""))
	require.NotNil(t, s.State().CurrentUser)
	assert.Equal(t, "", s.State().CurrentUser.DisplayName)

	require.NoError(t, s.SignUp(context.Background(), "c@example.com", "pw", "  Cee  "))
	assert.Equal(t, "  Cee  ", s.State().CurrentUser.DisplayName)
}

func TestSignInNotifiesLoadingTransitions(t *testing.T) {
	s, _ := newStore(t, keychain.NewMemory(), nil)
	s.Initialize(context.Background())

	var seen []State
	unsubscribe := s.Subscribe(func(st State) { seen = append(seen, st) })
	require.NoError(t, s.SignIn(context.Background(), "a@example.com", "x"))
	unsubscribe()

	require.NotEmpty(t, seen)
	assert.True(t, seen[0].IsLoading)
	assert.Nil(t, seen[0].CurrentUser)
	last := seen[len(seen)-1]
	assert.False(t, last.IsLoading)
	require.NotNil(t, last.CurrentUser)
	assert.Equal(t, "a@example.com", last.CurrentUser.Email)

	n := len(seen)
	s.SignOut(context.Background())
	assert.Len(t, seen, n, "unsubscribed listener is not called")
}

func TestSignInProviderFailure(t *testing.T) {
	mem := keychain.NewMemory()
	p := &stubProvider{Provider: identity.NewMock(), signInErr: errors.New("invalid login credentials")}
	s, _ := newStore(t, mem, p)
	s.Initialize(context.Background())

	err := s.SignIn(context.Background(), "a@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, apperrors.UpstreamAuthFailure, apperrors.KindOf(err))
	assert.Equal(t, State{}, s.State())
	assertKeysAbsent(t, mem, KeyUser, KeyTokenBlob, KeyLegacyToken)
}

func TestSignInDropsPreviousProfileCache(t *testing.T) {
	mem := keychain.NewMemory()
	require.NoError(t, mem.Set(KeyUser, `{broken`))
	require.NoError(t, mem.Set(KeyLegacyToken, "old-token"))
	require.NoError(t, mem.Set(KeyProfile, `{"full_name":"Previous Person"}`))
	require.NoError(t, mem.Set(KeyIntegrationStatus, `{"connected":true}`))

	p := &stubProvider{Provider: identity.NewMock(), profileErr: errors.New("503 unavailable")}
	s, _ := newStore(t, mem, p)
	res := s.Initialize(context.Background())
	require.True(t, res.Reset)

	require.NoError(t, s.SignIn(context.Background(), "bob@example.com", "pw"))
	require.NotNil(t, s.State().CurrentUser)
	assert.Equal(t, "bob@example.com", s.State().CurrentUser.Email)

	_, ok := s.CachedProfile()
	assert.False(t, ok, "a profile cached for another user must not survive sign-in")
	assertKeysAbsent(t, mem, KeyProfile, KeyIntegrationStatus)
}

func TestSignInPersistenceFailure(t *testing.T) {
	st := &failingStorage{Manager: keychain.NewMemory(), setErr: errors.New("keyring locked")}
	s, _ := newStore(t, st, nil)
	s.Initialize(context.Background())

	err := s.SignIn(context.Background(), "a@example.com", "x")
	require.Error(t, err)
	assert.Equal(t, apperrors.PersistenceUnavailable, apperrors.KindOf(err))
	assert.False(t, s.State().IsLoading)
	assert.Nil(t, s.State().CurrentUser)
}

func TestSignInRejectsEmptyEmail(t *testing.T) {
	s, _ := newStore(t, keychain.NewMemory(), nil)
	err := s.SignIn(context.Background(), "", "x")
	assert.Equal(t, apperrors.UpstreamAuthFailure, apperrors.KindOf(err))
	assert.Nil(t, s.State().CurrentUser)
}

func TestSignOutClearsEverything(t *testing.T) {
	mem := keychain.NewMemory()
	p := &stubProvider{Provider: identity.NewMock()}
	s, nav := newStore(t, mem, p)
	require.NoError(t, s.SignIn(context.Background(), "a@example.com", "x"))
	require.NoError(t, mem.Set(KeyIntegrationStatus, "connected"))
	token, _ := s.GetAccessToken()

	res := s.SignOut(context.Background())
	assert.NoError(t, res.Fault)
	assert.True(t, res.Reset)
	assertKeysAbsent(t, mem, sessionKeys...)
	assert.Equal(t, State{}, s.State())
	assert.Equal(t, 1, nav.n)
	assert.Equal(t, []string{token}, p.signOuts)
}

func TestSignOutTwiceMatchesOnce(t *testing.T) {
	mem := keychain.NewMemory()
	s, nav := newStore(t, mem, nil)
	require.NoError(t, s.SignIn(context.Background(), "a@example.com", "x"))

	first := s.SignOut(context.Background())
	stateAfterOne := s.State()
	second := s.SignOut(context.Background())

	assert.Equal(t, first, second)
	assert.Equal(t, stateAfterOne, s.State())
	assertKeysAbsent(t, mem, sessionKeys...)
	assert.Equal(t, 2, nav.n)
}

func TestSignOutSwallowsStorageFault(t *testing.T) {
	st := &failingStorage{Manager: keychain.NewMemory()}
	require.NoError(t, st.Set(KeyUser, `{"id":"u1","email":"a@example.com"}`))
	require.NoError(t, st.Set(KeyLegacyToken, "t"))
	s, nav := newStore(t, st, nil)
	s.Initialize(context.Background())
	require.NotNil(t, s.State().CurrentUser)

	st.getErr = errors.New("keyring locked")
	st.clearErr = errors.New("keyring locked")
	res := s.SignOut(context.Background())

	assert.Equal(t, apperrors.PersistenceUnavailable, apperrors.KindOf(res.Fault))
	assert.True(t, res.Reset)
	assert.Nil(t, s.State().CurrentUser)
	assert.Equal(t, 1, nav.n, "navigation still happens")
}

func TestRefreshWithoutToken(t *testing.T) {
	mem := keychain.NewMemory()
	require.NoError(t, mem.Set(KeyUser, `{"id":"u1","email":"a@example.com"}`))
	s, nav := newStore(t, mem, nil)

	res := s.RefreshToken(context.Background())

	assert.Equal(t, apperrors.NoActiveToken, apperrors.KindOf(res.Fault))
	assert.True(t, res.Reset)
	assert.Nil(t, s.State().CurrentUser)
	assert.False(t, s.State().IsLoading)
	assertKeysAbsent(t, mem, KeyUser)
	assert.Equal(t, 1, nav.n)
}

func TestRefreshRenewsToken(t *testing.T) {
	mem := keychain.NewMemory()
	p := &stubProvider{
		Provider:  identity.NewMock(),
		refreshed: &oauth2.Token{AccessToken: "renewed", Expiry: time.Unix(2_000_000_000, 0)},
	}
	s, nav := newStore(t, mem, p)
	require.NoError(t, s.SignIn(context.Background(), "a@example.com", "x"))
	user := s.State().CurrentUser

	res := s.RefreshToken(context.Background())
	require.NoError(t, res.Fault)
	assert.False(t, res.Reset)

	tok, ok := s.GetAccessToken()
	require.True(t, ok)
	assert.Equal(t, "renewed", tok)
	legacy, err := mem.Get(KeyLegacyToken)
	require.NoError(t, err)
	assert.Equal(t, "renewed", legacy)
	assert.Equal(t, user, s.State().CurrentUser)
	assert.Equal(t, 0, nav.n)

	rt, err := lookupToken(mem)
	require.NoError(t, err)
	assert.NotEmpty(t, rt.refresh, "refresh token kept when the provider does not rotate it")
}

func TestRefreshKeepsTokenWithoutRefreshToken(t *testing.T) {
	mem := keychain.NewMemory()
	require.NoError(t, mem.Set(KeyLegacyToken, "legacy-only"))
	s, _ := newStore(t, mem, nil)

	res := s.RefreshToken(context.Background())
	assert.NoError(t, res.Fault)
	tok, ok := s.GetAccessToken()
	assert.True(t, ok)
	assert.Equal(t, "legacy-only", tok)
}

func TestRefreshProviderRejection(t *testing.T) {
	mem := keychain.NewMemory()
	p := &stubProvider{Provider: identity.NewMock(), refreshErr: errors.New("refresh token revoked")}
	s, nav := newStore(t, mem, p)
	require.NoError(t, s.SignIn(context.Background(), "a@example.com", "x"))

	res := s.RefreshToken(context.Background())

	assert.Equal(t, apperrors.UpstreamAuthFailure, apperrors.KindOf(res.Fault))
	assert.True(t, res.Reset)
	assert.Nil(t, s.State().CurrentUser)
	assertKeysAbsent(t, mem, sessionKeys...)
	assert.Equal(t, 1, nav.n)
}

func TestCloseStopsNotifications(t *testing.T) {
	s, _ := newStore(t, keychain.NewMemory(), nil)
	calls := 0
	s.Subscribe(func(State) { calls++ })
	s.Close()

	s.Initialize(context.Background())
	assert.Equal(t, 0, calls)
	unsubscribe := s.Subscribe(func(State) { calls++ })
	unsubscribe()
	assert.False(t, s.State().IsLoading, "store stays usable after Close")
}

func TestStateSnapshotsAreIsolated(t *testing.T) {
	s, _ := newStore(t, keychain.NewMemory(), nil)
	require.NoError(t, s.SignIn(context.Background(), "a@example.com", "x"))

	snap := s.State()
	snap.CurrentUser.Email = "mallory@example.com"
	assert.Equal(t, "a@example.com", s.State().CurrentUser.Email)
}
