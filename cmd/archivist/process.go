package main

import (
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

func processCmd(a *app) *cobra.Command {
	var out string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "process <preset> <dataset.csv>",
		Short: "Run a preset once per row and write the processed text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readRowsFile(args[1])
			if err != nil {
				return err
			}
			runner, err := a.runner(nil)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			start := time.Now()
			results, runErr := runner.RunRows(ctx, rows, args[0], concurrency)

			w, closeOut, err := openOutput(out, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := writeResults(w, results); err != nil {
				closeOut()
				return err
			}
			if err := closeOut(); err != nil {
				return err
			}

			failed := 0
			for _, res := range results {
				if res.Failed() {
					failed++
				}
			}
			summary{
				Title:    "archivist process",
				Preset:   args[0],
				Rows:     len(rows),
				Produced: len(results) - failed,
				Failed:   failed,
				Elapsed:  time.Since(start),
			}.print(cmd.ErrOrStderr())
			return runErr
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output CSV file (default: stdout)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "maximum jobs in flight")
	return cmd
}
