package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sessionctl/cli/internal/config"
)

var (
	configProviderURL string
	configAPIKey      string
	configForce       bool
)

// configCmd shows the effective settings.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if p, err := config.Path(); err == nil {
			fmt.Printf("# %s\n", p)
		}
		cfg.Provider.APIKey = maskedKey(cfg.Provider.APIKey)
		b, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	},
}

// configInitCmd writes a config file, optionally pointing at an HTTP provider.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with defaults",
	Long: `The init command writes config.json to the sessionctl config directory.
With --provider-url the HTTP identity provider is selected; otherwise the
mock provider is kept. An existing file is only replaced with --force.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.Path()
		if err != nil {
			return err
		}
		if _, err := os.Stat(p); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to replace it)", p)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		if err := config.Save(initialConfig(configProviderURL, configAPIKey)); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Printf("✅ Wrote %s\n", p)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configProviderURL, "provider-url", "", "Identity provider base URL, e.g. https://<project>.supabase.co/auth/v1")
	configInitCmd.Flags().StringVar(&configAPIKey, "api-key", "", "Public API key sent with every provider request")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Replace an existing config file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func initialConfig(providerURL, apiKey string) config.Config {
	cfg := config.Default()
	if providerURL != "" {
		cfg.Provider.Kind = config.ProviderHTTP
		cfg.Provider.BaseURL = providerURL
		cfg.Provider.APIKey = apiKey
	}
	return cfg
}

func maskedKey(k string) string {
	if k == "" {
		return ""
	}
	return "********"
}
