package main

import (
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/martinemde/archivist/pipeline"
)

func analyzeCmd(a *app) *cobra.Command {
	var out string
	var chunkSize int

	cmd := &cobra.Command{
		Use:   "analyze <preset> <dataset.csv>",
		Short: "Run a preset over the dataset chunk by chunk and write the extracted table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readRowsFile(args[1])
			if err != nil {
				return err
			}

			events := pipeline.NewEventEmitter(0)
			runner, err := a.runner(events)
			if err != nil {
				return err
			}
			progress := logProgress(a.logger, events)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			start := time.Now()
			table, stats, runErr := runner.RunSequentialStats(ctx, rows, args[0], chunkSize)
			events.Close()
			<-progress

			w, closeOut, err := openOutput(out, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := writeTable(w, table); err != nil {
				closeOut()
				return err
			}
			if err := closeOut(); err != nil {
				return err
			}

			summary{
				Title:    "archivist analyze",
				Preset:   args[0],
				Rows:     len(rows),
				Produced: len(table),
				Failed:   stats.Failed + stats.Empty,
				Elapsed:  time.Since(start),
			}.print(cmd.ErrOrStderr())
			return runErr
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output CSV file (default: stdout)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "rows per chunk (default: the preset's, else 25)")
	return cmd
}

// logProgress writes chunk events to the debug log until the emitter
// closes. Events may be dropped under load, so nothing is counted here.
func logProgress(logger *slog.Logger, events *pipeline.EventEmitter) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events.Events() {
			logger.Debug("run event", "kind", ev.Kind, "run_id", ev.RunID, "chunk", ev.Chunk, "data", ev.Data)
		}
	}()
	return done
}

