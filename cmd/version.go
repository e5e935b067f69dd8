// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sessionctl/cli/internal/config"
	"sessionctl/cli/internal/logging"
)

var (
	// Version holds the CLI version information.
	// This value is typically set at build time using -ldflags.
	Version = "0.0.0-dev"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI version and the configured identity provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("sessionctl %s\n", Version)
		cfg, err := config.Load()
		if err != nil {
			logger := logging.New(os.Stderr, "info", verbose)
			logger.Warn().Err(err).Msg("load config")
		}
		fmt.Println(providerLine(cfg, err))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// providerLine describes the configured identity provider for version output.
func providerLine(cfg config.Config, loadErr error) string {
	switch {
	case loadErr != nil:
		return "provider unknown"
	case cfg.Provider.Kind == config.ProviderHTTP:
		return fmt.Sprintf("provider %s (%s)", cfg.Provider.Kind, cfg.Provider.BaseURL)
	}
	return fmt.Sprintf("provider %s", cfg.Provider.Kind)
}
