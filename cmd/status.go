package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/linkpipe/internal/monitoring"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a snapshot of pipeline health",
	RunE: func(cmd *cobra.Command, args []string) error {
		e := &env{}
		defer e.Close()
		if err := e.initStore(cmd.Context()); err != nil {
			return err
		}
		// Queue depths degrade to -1 if Redis is unreachable; the store
		// counts are still worth printing.
		if err := e.initBroker(cmd.Context()); err != nil {
			e.Broker = nil
		}

		snap, err := monitoring.NewCollector(e.Store, e.Broker).Collect(cmd.Context())
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
