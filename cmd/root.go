package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/linkpipe/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "linkpipe",
	Short: "LinkedIn link collection and scraping pipeline",
	Long:  "Harvests job and post links from Google Sheets, Notion, and spreadsheet exports, loads them into Postgres, and dispatches them to headless-browser scrape workers.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
