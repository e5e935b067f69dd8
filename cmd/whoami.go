package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sessionctl/cli/internal/logging"
)

// whoamiCmd represents the whoami command for displaying the signed-in user.
// It restores the session from the keychain and prints the stored user,
// preferring the cached provider profile for the display name.
var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Aliases: []string{"me"},
	Short:   "Show the signed-in user",
	Long: `The whoami command displays the user of the stored session. It works offline:
the user record and the profile cached at sign-in are read from the keychain.

If the stored session is unreadable it is discarded and you are asked to sign in again.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		res := a.store.Initialize(cmd.Context())
		if res.Reset {
			logging.PresentFault(res.Fault)
			return nil
		}

		u := a.store.State().CurrentUser
		if u == nil {
			fmt.Println("🔒 You're not logged in yet!")
			fmt.Println("   Run 'sessionctl login' to get started.")
			return nil
		}

		name := u.DisplayNameOrDefault()
		if p, ok := a.store.CachedProfile(); ok {
			if full, ok := p["full_name"].(string); ok && full != "" {
				name = full
			}
		}
		if name == u.Email {
			fmt.Println(whoAmIPhrase(u.Email))
		} else {
			fmt.Println(whoAmIPhrase(fmt.Sprintf("%s <%s>", name, u.Email)))
		}
		if verbose {
			fmt.Printf("   id: %s\n", u.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

// whoAmIPhrase returns a friendly phrase with the user's identifier
func whoAmIPhrase(identifier string) string {
	return fmt.Sprintf("👤 Current user: %s", identifier)
}
