package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/linkpipe/internal/pipeline"
)

var routeBatchSize int

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Dispatch routable links to the scrape queues",
	RunE: func(cmd *cobra.Command, args []string) error {
		e := &env{}
		defer e.Close()
		if err := e.initStore(cmd.Context()); err != nil {
			return err
		}
		if err := e.initBroker(cmd.Context()); err != nil {
			return err
		}

		batch := routeBatchSize
		if batch == 0 {
			batch = cfg.Router.BatchSize
		}
		router := pipeline.NewRouter(e.Store, e.Broker, batch)

		sum, err := router.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%d candidates: %d jobs, %d posts, %d failed\n",
			sum.Candidates, sum.Jobs, sum.Posts, sum.Failed)
		return nil
	},
}

func init() {
	routeCmd.Flags().IntVar(&routeBatchSize, "batch", 0, "sweep batch size (default from config)")
	rootCmd.AddCommand(routeCmd)
}
