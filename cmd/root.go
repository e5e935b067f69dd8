// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for sessionctl.
// It implements subcommands for signing in and out, inspecting the current
// session and printing access tokens, using the Cobra CLI framework. Every
// command builds one session.Store and drives it through its operations.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	showVersion bool
	verbose     bool
	ephemeral   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "sessionctl",
	Short:         "Sign in to your identity provider and manage the local session",
	Long:          `sessionctl keeps the signed-in user and access token in the OS keychain so scripts and tools can make authenticated requests.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("sessionctl %s\n", Version)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application.
// It executes the root command and handles any errors that occur during execution.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI version information")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Keep the session in memory only (nothing is written to the keychain)")
}
