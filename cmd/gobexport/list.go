package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/gobexport/catalogue"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogue products",
	Long: `List the products of the catalogue in export order, with their
source, sink and output path. Only the catalogue is read.`,
	Args: cobra.NoArgs,
	RunE: listProducts,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func listProducts(cmd *cobra.Command, args []string) error {
	var cat *catalogue.Catalogue
	var err error
	if catalogueFile != "" {
		cat, err = catalogue.Load(catalogueFile)
	} else {
		cfg, cfgErr := loadConfig()
		if cfgErr != nil {
			return cfgErr
		}
		cat, err = loadCatalogue(cfg)
	}
	if err != nil {
		return err
	}

	width := 0
	for _, p := range cat.Products {
		width = max(width, len(p.Name))
	}

	out := cmd.OutOrStdout()
	for _, p := range cat.Products {
		src, _ := cat.Source(p.Source)
		sink := p.Sink
		if sink == "" {
			sink = catalogue.SinkCSV
		}
		mode := ""
		if p.Append {
			mode = " (append)"
		}
		fmt.Fprintf(out, "%-*s  %s/%s  %s → %s%s\n", width, p.Name, src.Name, src.Type, sink, p.Output, mode)
	}
	return nil
}
