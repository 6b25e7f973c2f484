package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify new links and promote them to the queue",
	Long:  "Classifies links still in status new by URL category, emits lifecycle events, and promotes them to queued. Safe to run repeatedly; already-processed links are untouched.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e := &env{}
		defer e.Close()
		if err := e.initStore(cmd.Context()); err != nil {
			return err
		}

		sum, err := e.Store.ClassifyAndQueue(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%d newly classified, %d queued total, %d events\n",
			sum.NewClassified, sum.QueuedTotal, sum.EventsTotal)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
