package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionctl/cli/internal/config"
	"sessionctl/cli/internal/identity"
	"sessionctl/cli/internal/keychain"
	"sessionctl/cli/internal/session"
)

func TestDescribeExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Contains(t, describeExpiry(now.Add(42*time.Minute), now), "(in 42m)")
	assert.Contains(t, describeExpiry(now.Add(-3*time.Minute), now), "(expired 3m ago)")
	assert.Contains(t, describeExpiry(now.Add(90*time.Minute), now), "(in 1h30m)")
	assert.Contains(t, describeExpiry(now.Add(10*time.Second), now), "(now)")
}

func TestGetRandomLoginGreetingMentionsUser(t *testing.T) {
	for i := 0; i < 20; i++ {
		assert.Contains(t, getRandomLoginGreeting("ada"), "ada")
	}
}

func TestWhoAmIPhrase(t *testing.T) {
	assert.Equal(t, "👤 Current user: ada@example.com", whoAmIPhrase("ada@example.com"))
}

func TestNewProvider(t *testing.T) {
	p, err := newProvider(config.Config{Provider: config.ProviderConfig{Kind: config.ProviderMock}})
	require.NoError(t, err)
	assert.IsType(t, &identity.Mock{}, p)

	p, err = newProvider(config.Config{Provider: config.ProviderConfig{Kind: config.ProviderHTTP, BaseURL: "https://auth.example.com/auth/v1"}})
	require.NoError(t, err)
	assert.IsType(t, &identity.HTTP{}, p)

	_, err = newProvider(config.Config{Provider: config.ProviderConfig{Kind: config.ProviderHTTP}})
	assert.Error(t, err)

	_, err = newProvider(config.Config{Provider: config.ProviderConfig{Kind: "ldap"}})
	assert.Error(t, err)
}

func TestOpenStorageMemoryBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = config.StorageMemory
	km, err := openStorage(cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, km.Set("k", "v"))

	cfg.Storage.Backend = "floppy"
	_, err = openStorage(cfg, testLogger())
	assert.Error(t, err)
}

func TestStatusDetails(t *testing.T) {
	store := session.New(keychain.NewMemory(), identity.NewMock())
	a := &app{cfg: config.Default(), store: store}
	store.Initialize(context.Background())

	out := a.statusDetails(time.Now())
	assert.True(t, strings.HasPrefix(out, "Signed out"))
	assert.Contains(t, out, "Token:    none")

	require.NoError(t, store.SignIn(context.Background(), "ada@example.com", "pw"))
	out = a.statusDetails(time.Now())
	assert.Contains(t, out, "User:     ada")
	assert.Contains(t, out, "Email:    ada@example.com")
	assert.Contains(t, out, "Expires:")
	assert.NotContains(t, out, "mock-token-", "token must be masked")
}

func TestRootNavigatorWithoutURLIsSilent(t *testing.T) {
	rootNavigator{}.ToRoot(context.Background())
}

func testLogger() zerolog.Logger { return zerolog.Nop() }

func TestInitialConfig(t *testing.T) {
	assert.Equal(t, config.Default(), initialConfig("", "ignored"))

	cfg := initialConfig("https://auth.example.com/auth/v1", "anon")
	assert.Equal(t, config.ProviderHTTP, cfg.Provider.Kind)
	assert.Equal(t, "https://auth.example.com/auth/v1", cfg.Provider.BaseURL)
	assert.Equal(t, "anon", cfg.Provider.APIKey)
}

func TestProviderLine(t *testing.T) {
	assert.Equal(t, "provider unknown", providerLine(config.Config{}, errors.New("invalid character")))
	assert.Equal(t, "provider mock", providerLine(config.Default(), nil))

	cfg := config.Default()
	cfg.Provider = config.ProviderConfig{Kind: config.ProviderHTTP, BaseURL: "https://auth.example.com/auth/v1"}
	assert.Equal(t, "provider http (https://auth.example.com/auth/v1)", providerLine(cfg, nil))
}
