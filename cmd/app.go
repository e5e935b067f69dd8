package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/99designs/keyring"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"

	"sessionctl/cli/internal/config"
	"sessionctl/cli/internal/httperrors"
	"sessionctl/cli/internal/identity"
	"sessionctl/cli/internal/keychain"
	"sessionctl/cli/internal/logging"
	"sessionctl/cli/internal/session"
	"sessionctl/cli/internal/xdg"
)

// app bundles what every command needs: settings, a logger and the session store.
type app struct {
	cfg   config.Config
	log   zerolog.Logger
	store *session.Store
}

// newApp loads settings and opens the session store. An unreachable
// credential store is not fatal here: the store then behaves as signed out
// and reports the fault from Initialize.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logging.New(os.Stderr, cfg.LogLevel, verbose)

	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	var storage session.Storage
	km, err := openStorage(cfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("credential store unavailable")
	} else {
		storage = km
	}

	store := session.New(storage, provider,
		session.WithLogger(log),
		session.WithNavigator(rootNavigator{url: cfg.AppURL, open: cfg.OpenBrowser}),
	)
	return &app{cfg: cfg, log: log, store: store}, nil
}

func (a *app) close() { a.store.Close() }

// providerHost names the identity provider in network error messages.
func (a *app) providerHost() string {
	if a.cfg.Provider.Kind != config.ProviderHTTP {
		return "the identity provider"
	}
	return httperrors.ExtractHostFromURL(a.cfg.Provider.BaseURL)
}

// authError turns a failed sign-in or sign-up into the error the command returns.
func (a *app) authError(context string, err error) error {
	if nerr := httperrors.FormatNetworkError(err, context, a.providerHost()); nerr != err {
		return nerr
	}
	return fmt.Errorf("%s", logging.PresentError(context, err))
}

func newProvider(cfg config.Config) (identity.Provider, error) {
	switch cfg.Provider.Kind {
	case config.ProviderMock:
		return identity.NewMock(), nil
	case config.ProviderHTTP:
		if cfg.Provider.BaseURL == "" {
			return nil, fmt.Errorf("provider.base_url is required for the %q provider", config.ProviderHTTP)
		}
		return identity.NewHTTP(cfg.Provider.BaseURL, cfg.Provider.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
	}
}

func openStorage(cfg config.Config, log zerolog.Logger) (*keychain.Manager, error) {
	if ephemeral || cfg.Storage.Backend == config.StorageMemory {
		log.Debug().Msg("using in-memory session storage")
		return keychain.NewMemory(), nil
	}
	if cfg.Storage.Backend != config.StorageKeyring {
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	dir, err := xdg.StateDir()
	if err != nil {
		log.Debug().Err(err).Msg("no state directory, file keyring disabled")
		dir = ""
	}
	opts := keychain.Options{
		Service: cfg.Storage.Service,
		FileDir: dir,
		Logger:  log,
	}
	if dir != "" {
		opts.FilePassword = keyring.TerminalPrompt
	}
	return keychain.Open(opts)
}

// rootNavigator sends the user back to the application root after the
// session ends.
type rootNavigator struct {
	url  string
	open bool
}

func (n rootNavigator) ToRoot(_ context.Context) {
	if n.url == "" {
		return
	}
	pterm.Println(pterm.FgGray.Sprint("→ " + n.url))
	if n.open {
		openBrowser(n.url)
	}
}

// openBrowser attempts to open the provided URL in the user's default browser.
// It uses platform-specific commands to launch the default browser:
//   - Windows: rundll32 url.dll,FileProtocolHandler
//   - macOS: open command
//   - Linux: xdg-open command
//
// The function starts the browser process but does not wait for it to complete.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
