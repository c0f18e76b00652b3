package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and catalogue",
	Long: `Validate the configuration, the catalogue and every product format
without contacting the API.

It checks:
  - Required configuration such as the API host and output directory
  - Source and product definitions of the catalogue
  - Column paths and formatter names of every format`,
	Args: cobra.NoArgs,
	RunE: validateAll,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateAll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cat, err := loadCatalogue(cfg)
	if err != nil {
		return fmt.Errorf("catalogue: %w", err)
	}
	if err := cat.CheckFormats(nil); err != nil {
		return fmt.Errorf("formats: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ %d sources and %d products are valid\n", len(cat.Sources), len(cat.Products))
	return nil
}
