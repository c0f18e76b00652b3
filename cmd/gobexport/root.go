package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/gobexport/catalogue"
	"github.com/kbukum/gobexport/config"
	"github.com/kbukum/gobexport/version"
)

var (
	// Global flags
	cfgFile       string
	envFile       string
	catalogueFile string
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "gobexport",
	Short: "Gobexport - declarative export of registry datasets",
	Long: `Gobexport exports registry datasets from the GOB API to flat files.

Sources are queried over REST, paged GraphQL or streaming GraphQL. Every
product of the catalogue maps the entities of one source to the columns
of a CSV or NDJSON file, optionally filtered, history expanded and with
ambiguous relations resolved.

Configuration is read from config.yml and .env files and environment
variables such as API_HOST, AUTH_CLIENT_ID and BATCH_STREAMING.`,
	Version:       version.Get().Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (searched when empty)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", ".env file path (searched when empty)")
	rootCmd.PersistentFlags().StringVar(&catalogueFile, "catalogue", "", "catalogue file path (overrides the config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig loads the export configuration honoring the global flags.
func loadConfig() (*config.ExportConfig, error) {
	var opts []config.LoaderOption
	if cfgFile != "" {
		opts = append(opts, config.WithConfigFile(cfgFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}
	if catalogueFile != "" {
		cfg.Catalogue = catalogueFile
	}
	if verbose {
		cfg.Debug = true
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// loadCatalogue reads the catalogue named by the flag or the config.
func loadCatalogue(cfg *config.ExportConfig) (*catalogue.Catalogue, error) {
	path := catalogueFile
	if path == "" && cfg != nil {
		path = cfg.Catalogue
	}
	if path == "" {
		path = "catalogue.yml"
	}
	return catalogue.Load(path)
}
