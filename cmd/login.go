// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sessionctl/cli/internal/terminal"
)

var loginEmail string

// loginCmd represents the login command for password authentication.
// It asks for email and password, exchanges them with the identity provider
// and stores the resulting session in the OS keychain.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Sign in with email and password",
	Long: `The login command signs in to the configured identity provider with an email
and password. On success the user record and tokens are stored in the OS keychain
so later commands (and other tools reading the keychain) can act as that user.

If a valid session already exists, the command reports it and does nothing.
The password is read without echo when stdin is a terminal, or as a single line
from stdin otherwise.`,

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
			return nil
		}

		p := terminal.NewPrompter(os.Stdout)
		email, password, answered, err := askCredentials(p, loginEmail)
		if err != nil {
			return err
		}
		if p.Interactive() {
			terminal.ClearLines(os.Stdout, terminal.LinesFor(terminal.Width(), answered...))
		}

		stop := startSessionSpinner(a.store, "Signing in")
		err = a.store.SignIn(ctx, email, password)
		stop()
		if err != nil {
			return a.authError("signing in", err)
		}

		showLoginGreeting(a)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (prompted when omitted)")
	rootCmd.AddCommand(loginCmd)
}

// askCredentials prompts for whatever is missing and returns the prompts as
// they were answered on screen, so the caller can clear them.
func askCredentials(p *terminal.Prompter, email string) (string, string, []string, error) {
	var answered []string
	if email == "" {
		var err error
		email, err = p.Line("Email: ")
		if err != nil {
			return "", "", nil, fmt.Errorf("read email: %w", err)
		}
		answered = append(answered, "Email: "+email)
	}
	password, err := p.Secret("Password: ")
	if err != nil {
		return "", "", nil, fmt.Errorf("read password: %w", err)
	}
	answered = append(answered, "Password: ")
	return email, password, answered, nil
}

// showLoginGreeting displays a friendly greeting for the user now signed in.
func showLoginGreeting(a *app) {
	if u := a.store.State().CurrentUser; u != nil {
		fmt.Println(getRandomLoginGreeting(u.DisplayNameOrDefault()))
		return
	}
	fmt.Println("✅ Login successful!")
}

// getRandomLoginGreeting returns a random greeting phrase with the user's identifier
func getRandomLoginGreeting(identifier string) string {
	greetings := []string{
		"🎉 Welcome back, %s!",
		"✨ Great to see you, %s!",
		"🚀 You're all set, %s!",
		"💫 Successfully authenticated as %s",
		"🌟 Welcome aboard, %s!",
		"⚡ Logged in as %s - let's go!",
		"✅ Authentication complete! Hi %s!",
		"🎯 You're in, %s!",
		"🔓 Access granted! Welcome %s!",
	}
	return fmt.Sprintf(greetings[rand.IntN(len(greetings))], identifier)
}
