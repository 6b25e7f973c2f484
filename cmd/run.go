package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one full pipeline pass: ingest, upsert, backup, classify, route",
	RunE: func(cmd *cobra.Command, args []string) error {
		e := &env{}
		defer e.Close()
		if err := e.initStore(cmd.Context()); err != nil {
			return err
		}
		if err := e.initBroker(cmd.Context()); err != nil {
			return err
		}

		p, err := newPipeline(e)
		if err != nil {
			return err
		}

		res, runErr := p.Run(cmd.Context())
		if res != nil {
			out, err := json.MarshalIndent(res, "", "  ")
			if err == nil {
				fmt.Println(string(out))
			}
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
