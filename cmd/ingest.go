package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	ingestMonth string
	ingestOut   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Harvest links from all sources into a deduplicated CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestMonth != "" {
			cfg.Ingest.MonthFilter = ingestMonth
		}
		if ingestOut != "" {
			cfg.Ingest.OutputDir = ingestOut
		}

		runner, err := newRunner()
		if err != nil {
			return err
		}

		res, err := runner.Run(cmd.Context())
		if err != nil {
			return err
		}

		for _, sr := range res.Sources {
			status := "ok"
			if sr.Err != nil {
				status = sr.Err.Error()
			}
			fmt.Printf("%-40s %5d rows  %s\n", sr.Source.Name, sr.Rows, status)
		}
		fmt.Printf("\n%d links harvested, %d after dedup\n%s\n", res.Harvested, len(res.Rows), res.CSVPath)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestMonth, "month", "", "month substring for tab selection (default from config)")
	ingestCmd.Flags().StringVar(&ingestOut, "out", "", "output directory for the CSV (default from config)")
	rootCmd.AddCommand(ingestCmd)
}
