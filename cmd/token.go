package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sessionctl/cli/internal/logging"
)

var tokenRaw bool

// tokenCmd prints the stored access token for use in authenticated requests.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the stored access token",
	Long: `The token command prints the access token of the stored session. By default the
token is masked; pass --raw to print it in full, for example:

  curl -H "Authorization: Bearer $(sessionctl token --raw)" https://api.example.com/me

The command exits with an error when no token is stored.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		tok, ok := a.store.GetAccessToken()
		if !ok {
			return errors.New("not logged in: no access token stored")
		}
		if tokenRaw {
			fmt.Println(tok)
			return nil
		}
		fmt.Println(logging.MaskToken(tok))
		return nil
	},
}

func init() {
	tokenCmd.Flags().BoolVar(&tokenRaw, "raw", false, "Print the token unmasked")
	rootCmd.AddCommand(tokenCmd)
}
