package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/linkpipe/internal/ingest"
)

var upsertSkipBackup bool

var upsertCmd = &cobra.Command{
	Use:   "upsert <csv>",
	Short: "Bulk load an ingestion CSV into the link store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := ingest.ReadCSV(args[0])
		if err != nil {
			return err
		}

		e := &env{}
		defer e.Close()
		if err := e.initStore(cmd.Context()); err != nil {
			return err
		}

		sum, err := e.Store.UpsertLinks(cmd.Context(), rows)
		if err != nil {
			return err
		}
		fmt.Printf("%d rows loaded, %d upserted\n", sum.RowsLoaded, sum.Upserted)

		if !upsertSkipBackup {
			window := time.Duration(cfg.Ingest.WindowMinutes) * time.Minute
			path, err := e.Store.BackupRecent(cmd.Context(), cfg.Ingest.BackupDir, window)
			if err != nil {
				return err
			}
			fmt.Printf("backup: %s\n", path)
		}
		return nil
	},
}

func init() {
	upsertCmd.Flags().BoolVar(&upsertSkipBackup, "skip-backup", false, "skip the post-upsert backup export")
	rootCmd.AddCommand(upsertCmd)
}
