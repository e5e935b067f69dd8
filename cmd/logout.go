// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sessionctl/cli/internal/logging"
)

// logoutCmd represents the logout command for clearing the session.
// It removes every stored session key from the keychain and tells the
// identity provider (best-effort) to revoke the session.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove all saved credentials and tokens",
	Long: `The logout command clears the session from the local system. It also attempts to
notify the identity provider to invalidate the current session (best-effort).

This command removes:
- The token blob and legacy access token from the OS keychain
- The stored user record
- The cached user profile and integration status`,

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		res := a.store.SignOut(cmd.Context())
		if res.Fault != nil {
			// The in-memory session is gone; some keychain entries may remain.
			fmt.Println(logging.PresentError("⚠️  Could not clear the keychain", res.Fault))
			return nil
		}
		fmt.Println("✅ All credentials and tokens have been removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
