package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sessionctl/cli/internal/terminal"
)

var (
	signupEmail string
	signupName  string
)

// signupCmd registers a new account and signs in as it.
var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	Long: `The signup command registers a new account with the identity provider and
signs in as it. The full name is optional; when left empty the part of the
email before the @ is shown instead.

Providers that require email confirmation before issuing a session will
reject the request; confirm the address and run 'sessionctl login'.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		a.store.Initialize(ctx)
		if u := a.store.State().CurrentUser; u != nil {
			fmt.Printf("Already logged in as %s\n", u.Email)
			fmt.Println("   Run 'sessionctl logout' first to create another account.")
			return nil
		}

		p := terminal.NewPrompter(os.Stdout)
		email, password, answered, err := askCredentials(p, signupEmail)
		if err != nil {
			return err
		}
		if p.Interactive() {
			confirm, err := p.Secret("Confirm password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			answered = append(answered, "Confirm password: ")
			if confirm != password {
				return errors.New("passwords do not match")
			}
		}
		name := signupName
		if name == "" && p.Interactive() {
			name, err = p.Line("Full name (optional): ")
			if err != nil && !errors.Is(err, terminal.ErrEmptyInput) {
				return fmt.Errorf("read name: %w", err)
			}
			answered = append(answered, "Full name (optional): "+name)
		}
		if p.Interactive() {
			terminal.ClearLines(os.Stdout, terminal.LinesFor(terminal.Width(), answered...))
		}

		stop := startSessionSpinner(a.store, "Creating account")
		err = a.store.SignUp(ctx, email, password, name)
		stop()
		if err != nil {
			return a.authError("creating the account", err)
		}

		if u := a.store.State().CurrentUser; u != nil {
			fmt.Printf("🎉 Account created. Welcome, %s!\n", u.DisplayNameOrDefault())
		}
		return nil
	},
}

func init() {
	signupCmd.Flags().StringVar(&signupEmail, "email", "", "Account email (prompted when omitted)")
	signupCmd.Flags().StringVar(&signupName, "name", "", "Full name shown for the account")
	rootCmd.AddCommand(signupCmd)
}
