// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session holds the client-side session: who is signed in, the access
// token for authenticated requests, and the operations that change them.
//
// A Store mediates between persisted storage (the OS keychain) and the rest
// of the CLI. Consumers read snapshots and subscribe to changes; only the
// Store writes session keys. Credential exchange is delegated to an
// identity.Provider, and trust decisions stay with that provider.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	apperrors "sessionctl/cli/internal/errors"
	"sessionctl/cli/internal/identity"
	"sessionctl/cli/internal/keychain"
	"sessionctl/cli/internal/logging"
)

// Storage is the persistent key-value surface. Get must report a missing
// key with an error matching keychain.ErrNotFound.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
	Clear(keys ...string) error
}

// State is a snapshot of the session.
type State struct {
	CurrentUser *identity.UserIdentity
	// IsLoading is true only while an operation is changing the session.
	IsLoading bool
}

// Authenticated reports whether a user is present.
func (s State) Authenticated() bool { return s.CurrentUser != nil }

// Result describes how an operation that never returns an error finished.
// Fault is the recovered fault (an *errors.E), nil when nothing went wrong.
type Result struct {
	Fault error
	// Reset is true when persisted session data was discarded.
	Reset bool
}

// Store is the single source of truth for who is signed in.
//
// Mutating operations are serialized by one pending-operation lock, so a call
// made while another is in flight waits for it instead of interleaving.
// Listeners run synchronously after each change and must not call mutating
// Store methods.
type Store struct {
	storage  Storage
	provider identity.Provider
	nav      Navigator
	log      zerolog.Logger

	op sync.Mutex

	mu        sync.RWMutex
	state     State
	listeners []listener
	nextID    int
	closed    bool
}

type listener struct {
	id int
	fn func(State)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger faults and transitions are reported to.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithNavigator sets where users are sent after sign-out or a failed refresh.
func WithNavigator(n Navigator) Option {
	return func(s *Store) {
		if n != nil {
			s.nav = n
		}
	}
}

// New creates a Store in the loading state with no user. A nil storage
// behaves as an unavailable one; a nil provider defaults to identity.Mock.
func New(storage Storage, provider identity.Provider, opts ...Option) *Store {
	if provider == nil {
		provider = identity.NewMock()
	}
	s := &Store{
		storage:  storage,
		provider: provider,
		nav:      NopNavigator{},
		log:      zerolog.Nop(),
		state:    State{IsLoading: true},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns a snapshot of the current session.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Subscribe registers fn to receive every new state. The returned function
// removes the registration; calling it more than once is harmless.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Close drops all listeners. The Store stays readable; later changes notify nobody.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.listeners = nil
}

// update applies fn to the state and notifies listeners outside the lock.
func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.state.clone()
	ls := append([]listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range ls {
		l.fn(snap)
	}
}

func (s *Store) setLoading(v bool) {
	s.update(func(st *State) { st.IsLoading = v })
}

func (st State) clone() State {
	if st.CurrentUser != nil {
		u := *st.CurrentUser
		st.CurrentUser = &u
	}
	return st
}

// Initialize restores the session persisted by an earlier process. It never
// fails: a corrupted user record is discarded together with the token blob,
// and any other storage fault clears every session key. IsLoading is false
// when it returns.
func (s *Store) Initialize(ctx context.Context) Result {
	s.op.Lock()
	defer s.op.Unlock()

	s.setLoading(true)
	user, res := s.checkAuthState()
	s.update(func(st *State) {
		st.CurrentUser = user
		st.IsLoading = false
	})
	if res.Fault != nil {
		s.log.Warn().Str("kind", string(apperrors.KindOf(res.Fault))).Str("error", logging.Mask(res.Fault.Error())).Bool("reset", res.Reset).Msg("session check recovered")
	} else {
		s.log.Debug().Bool("authenticated", user != nil).Msg("session check complete")
	}
	return res
}

func (s *Store) checkAuthState() (*identity.UserIdentity, Result) {
	if s.storage == nil {
		return nil, Result{Fault: apperrors.New(apperrors.PersistenceUnavailable, "no credential store")}
	}

	tok, err := lookupToken(s.storage)
	if err != nil {
		return nil, s.resetAll(apperrors.Wrap(apperrors.PersistenceUnavailable, "read token", err))
	}
	if tok.access == "" {
		return nil, Result{}
	}

	raw, err := s.storage.Get(KeyUser)
	if errors.Is(err, keychain.ErrNotFound) {
		return nil, Result{}
	}
	if err != nil {
		return nil, s.resetAll(apperrors.Wrap(apperrors.PersistenceUnavailable, "read user record", err))
	}

	var u identity.UserIdentity
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, s.discardCorrupted(apperrors.Wrap(apperrors.CorruptedPersistedData, "parse user record", err))
	}
	if err := u.Validate(); err != nil {
		return nil, s.discardCorrupted(err)
	}
	return &u, Result{}
}

// discardCorrupted removes the user record and the token blob. The legacy
// token key is left alone.
func (s *Store) discardCorrupted(fault error) Result {
	for _, k := range []string{KeyUser, KeyTokenBlob} {
		if err := s.storage.Remove(k); err != nil {
			s.log.Warn().Err(err).Str("key", k).Msg("discard corrupted session data")
		}
	}
	return Result{Fault: fault, Reset: true}
}

// resetAll clears every session key. Clearing is best-effort.
func (s *Store) resetAll(fault error) Result {
	if s.storage != nil {
		if err := s.storage.Clear(sessionKeys...); err != nil {
			s.log.Warn().Err(err).Msg("clear session data")
		}
	}
	return Result{Fault: fault, Reset: true}
}

// GetAccessToken returns the stored access token, if any. It has no side
// effects; storage faults and unparsable data read as "no token".
func (s *Store) GetAccessToken() (string, bool) {
	if s.storage == nil {
		return "", false
	}
	tok, err := lookupToken(s.storage)
	if err != nil {
		s.log.Debug().Err(err).Msg("access token lookup failed")
		return "", false
	}
	return tok.access, tok.access != ""
}

// TokenExpiry reports when the stored access token expires: the expiry
// recorded at sign-in, else the exp claim of a JWT access token.
func (s *Store) TokenExpiry() (time.Time, bool) {
	if s.storage == nil {
		return time.Time{}, false
	}
	tok, err := lookupToken(s.storage)
	if err != nil || tok.access == "" {
		return time.Time{}, false
	}
	if !tok.expiresAt.IsZero() {
		return tok.expiresAt, true
	}
	return identity.ExpiresAt(tok.access)
}

// CachedProfile returns the provider profile cached at sign-in.
func (s *Store) CachedProfile() (map[string]any, bool) {
	if s.storage == nil {
		return nil, false
	}
	raw, err := s.storage.Get(KeyProfile)
	if err != nil {
		return nil, false
	}
	var p map[string]any
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p == nil {
		return nil, false
	}
	return p, true
}

// SignIn exchanges credentials with the provider and persists the session.
// Provider and storage faults are returned after IsLoading is reset; the
// previous session, if any, stays in memory.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	return s.establish(ctx, "sign in", func(ctx context.Context) (*identity.Session, error) {
		return s.provider.SignInWithCredentials(ctx, email, password)
	})
}

// SignUp registers a new principal. fullName becomes the display name verbatim.
func (s *Store) SignUp(ctx context.Context, email, password, fullName string) error {
	return s.establish(ctx, "sign up", func(ctx context.Context) (*identity.Session, error) {
		return s.provider.SignUpWithCredentials(ctx, email, password, fullName)
	})
}

func (s *Store) establish(ctx context.Context, op string, exchange func(context.Context) (*identity.Session, error)) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.setLoading(true)
	defer s.setLoading(false)

	sess, err := exchange(ctx)
	if err != nil {
		s.log.Error().Str("op", op).Str("error", logging.Mask(err.Error())).Msg("credential exchange failed")
		if apperrors.KindOf(err) == "" {
			return apperrors.Wrap(apperrors.UpstreamAuthFailure, op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if sess == nil || sess.Token == nil || sess.Token.AccessToken == "" {
		return apperrors.New(apperrors.UpstreamAuthFailure, op+": provider returned no session")
	}
	if err := sess.User.Validate(); err != nil {
		return apperrors.Wrap(apperrors.UpstreamAuthFailure, op+": provider returned an incomplete user", err)
	}

	// Cached profile data belongs to whoever signed in before.
	if s.storage != nil {
		if err := s.storage.Clear(KeyProfile, KeyIntegrationStatus); err != nil {
			s.log.Debug().Err(err).Msg("clear previous profile cache")
		}
	}
	if err := s.persist(sess); err != nil {
		s.log.Error().Str("op", op).Err(err).Msg("persist session failed")
		return apperrors.Wrap(apperrors.PersistenceUnavailable, op+": persist session", err)
	}

	user := sess.User
	s.update(func(st *State) { st.CurrentUser = &user })
	s.warmProfile(ctx, sess.Token.AccessToken)
	s.log.Info().Str("op", op).Str("user_id", user.ID).Msg("signed in")
	return nil
}

func (s *Store) persist(sess *identity.Session) error {
	if s.storage == nil {
		return errors.New("no credential store")
	}
	b, err := json.Marshal(sess.User)
	if err != nil {
		return err
	}
	if err := s.storage.Set(KeyUser, string(b)); err != nil {
		return err
	}
	return s.persistToken(sess.Token)
}

func (s *Store) persistToken(tok *oauth2.Token) error {
	blob, err := encodeTokenBlob(tok)
	if err != nil {
		return err
	}
	if err := s.storage.Set(KeyTokenBlob, blob); err != nil {
		return err
	}
	return s.storage.Set(KeyLegacyToken, tok.AccessToken)
}

// warmProfile caches the provider's profile so whoami works offline.
func (s *Store) warmProfile(ctx context.Context, accessToken string) {
	p, err := s.provider.FetchProfile(ctx, accessToken)
	if err != nil {
		s.log.Debug().Str("error", logging.Mask(err.Error())).Msg("profile warm-up skipped")
		return
	}
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.storage.Set(KeyProfile, string(b)); err != nil {
		s.log.Debug().Err(err).Msg("profile cache write failed")
	}
}

// SignOut revokes the session at the provider (best-effort), clears every
// session key, forgets the user and navigates to the application root.
// Faults are reported in the Result, never returned; calling it again is
// harmless.
func (s *Store) SignOut(ctx context.Context) Result {
	s.op.Lock()
	defer s.op.Unlock()

	s.setLoading(true)
	if token, ok := s.GetAccessToken(); ok {
		if err := s.provider.SignOut(ctx, token); err != nil {
			s.log.Warn().Str("error", logging.Mask(err.Error())).Msg("provider sign-out failed")
		}
	}

	res := Result{Reset: true}
	if s.storage == nil {
		res.Fault = apperrors.New(apperrors.PersistenceUnavailable, "no credential store")
	} else if err := s.storage.Clear(sessionKeys...); err != nil {
		res.Fault = apperrors.Wrap(apperrors.PersistenceUnavailable, "clear session data", err)
		s.log.Error().Err(err).Msg("sign out: clear session data")
	}
	s.update(func(st *State) {
		st.CurrentUser = nil
		st.IsLoading = false
	})
	s.nav.ToRoot(ctx)
	return res
}

// RefreshToken renews the stored access token with the provider. With no
// stored token the session is reset. A token without a stored refresh token
// is kept unchanged. On any fault the session is reset and the user is sent
// to the application root; the fault is reported in the Result.
func (s *Store) RefreshToken(ctx context.Context) Result {
	s.op.Lock()
	defer s.op.Unlock()

	s.setLoading(true)
	fault := s.refresh(ctx)
	if fault == nil {
		s.setLoading(false)
		return Result{}
	}

	s.log.Warn().Str("kind", string(apperrors.KindOf(fault))).Str("error", logging.Mask(fault.Error())).Msg("token refresh failed")
	res := s.resetAll(fault)
	s.update(func(st *State) {
		st.CurrentUser = nil
		st.IsLoading = false
	})
	s.nav.ToRoot(ctx)
	return res
}

func (s *Store) refresh(ctx context.Context) error {
	if s.storage == nil {
		return apperrors.New(apperrors.NoActiveToken, "no token to refresh")
	}
	tok, err := lookupToken(s.storage)
	if err != nil {
		return apperrors.Wrap(apperrors.PersistenceUnavailable, "read token", err)
	}
	if tok.access == "" {
		return apperrors.New(apperrors.NoActiveToken, "no token to refresh")
	}
	if tok.refresh == "" {
		s.log.Debug().Msg("no refresh token stored; keeping current access token")
		return nil
	}

	renewed, err := s.provider.RefreshSession(ctx, tok.refresh)
	if err != nil {
		if apperrors.KindOf(err) == "" {
			return apperrors.Wrap(apperrors.UpstreamAuthFailure, "refresh session", err)
		}
		return err
	}
	if renewed == nil || renewed.AccessToken == "" {
		return apperrors.New(apperrors.UpstreamAuthFailure, "provider returned no token")
	}
	next := *renewed
	if next.RefreshToken == "" {
		next.RefreshToken = tok.refresh
	}
	if err := s.persistToken(&next); err != nil {
		return apperrors.Wrap(apperrors.PersistenceUnavailable, "persist refreshed token", err)
	}
	s.log.Info().Msg("token refreshed")
	return nil
}
