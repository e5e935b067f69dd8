package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sessionctl/cli/internal/logging"
)

// statusCmd summarises the stored session in a box.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session, token and expiry",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		res := a.store.Initialize(cmd.Context())
		if res.Reset {
			logging.PresentFault(res.Fault)
		}

		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Session")).
			WithPadding(1).
			Println(a.statusDetails(time.Now()))
		pterm.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func (a *app) statusDetails(now time.Time) string {
	var b strings.Builder
	st := a.store.State()
	if st.CurrentUser == nil {
		b.WriteString("Signed out\n")
	} else {
		fmt.Fprintf(&b, "User:     %s\n", st.CurrentUser.DisplayNameOrDefault())
		fmt.Fprintf(&b, "Email:    %s\n", st.CurrentUser.Email)
	}

	if tok, ok := a.store.GetAccessToken(); ok {
		fmt.Fprintf(&b, "Token:    %s\n", logging.MaskToken(tok))
		if exp, ok := a.store.TokenExpiry(); ok {
			fmt.Fprintf(&b, "Expires:  %s\n", describeExpiry(exp, now))
		}
	} else {
		b.WriteString("Token:    none\n")
	}

	backend := a.cfg.Storage.Backend
	if ephemeral {
		backend = "memory"
	}
	fmt.Fprintf(&b, "Provider: %s\n", a.cfg.Provider.Kind)
	fmt.Fprintf(&b, "Storage:  %s (%s)", backend, a.cfg.Storage.Service)
	return b.String()
}

// describeExpiry renders exp relative to now, e.g. "in 42m" or "expired 3m ago".
func describeExpiry(exp, now time.Time) string {
	d := exp.Sub(now).Round(time.Minute)
	stamp := exp.Local().Format(time.Kitchen)
	switch {
	case d < 0:
		return fmt.Sprintf("%s (expired %s ago)", stamp, shortDuration(-d))
	case d == 0:
		return fmt.Sprintf("%s (now)", stamp)
	}
	return fmt.Sprintf("%s (in %s)", stamp, shortDuration(d))
}

func shortDuration(d time.Duration) string {
	return strings.TrimSuffix(d.String(), "0s")
}
