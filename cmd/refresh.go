package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sessionctl/cli/internal/logging"
)

// refreshCmd renews the stored tokens with the identity provider.
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Renew the stored access token",
	Long: `The refresh command exchanges the stored refresh token for a new access token.
If there is nothing to refresh, or the provider rejects the refresh token, the
whole session is cleared and you need to sign in again.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if res := a.store.Initialize(ctx); res.Reset {
			logging.PresentFault(res.Fault)
			return nil
		}

		stop := startSessionSpinner(a.store, "Refreshing session")
		res := a.store.RefreshToken(ctx)
		stop()
		if res.Fault != nil {
			logging.PresentFault(res.Fault)
			return nil
		}

		fmt.Println("✅ Session refreshed")
		if exp, ok := a.store.TokenExpiry(); ok {
			fmt.Printf("   Access token valid until %s\n", exp.Local().Format(time.RFC1123))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
