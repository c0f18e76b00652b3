package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/gobexport/bootstrap"
)

var runCmd = &cobra.Command{
	Use:   "run [product...]",
	Short: "Export products",
	Long: `Export the named products, or every product of the catalogue.

Products run one after the other in catalogue order and the run stops at
the first failure. A source shared by several selected products is
fetched once and replayed from the buffer directory.

Examples:
  # Export everything
  gobexport run

  # Export two products
  gobexport run meetbouten_csv meetbouten_json`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := loadCatalogue(cfg)
	if err != nil {
		return err
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	products, err := cat.Build(app.Deps(), args...)
	if err != nil {
		return err
	}
	names := make([]string, len(products))
	for i, p := range products {
		names[i] = p.Name
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	err = app.RunTask(ctx, func(ctx context.Context) error {
		results, err := app.Runner().Run(ctx, products...)
		app.Summary.TrackRun(names, results, err)
		return err
	})
	app.Summary.DisplaySummary(cmd.OutOrStdout())
	return err
}
