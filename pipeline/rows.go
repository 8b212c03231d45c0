package pipeline

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/martinemde/archivist/unifiedllm"
)

// DefaultConcurrency bounds RunRows when the caller passes no limit.
const DefaultConcurrency = 4

// RunRows executes presetName once per row with at most limit jobs in
// flight. Results are returned in the order of rows; a failed row carries
// its error sentinel. A configuration error cancels the remaining jobs and
// is returned with whatever results completed.
func (r *Runner) RunRows(ctx context.Context, rows []Row, presetName string, limit int) ([]unifiedllm.JobResult, error) {
	p, err := r.catalog.Lookup(presetName)
	if err != nil {
		return nil, &unifiedllm.ConfigurationError{SDKError: unifiedllm.SDKError{Message: "row run", Cause: err}}
	}
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	runID := uuid.New().String()
	log := r.logger.With("run_id", runID, "preset", p.Name)
	log.Info("row run started", "rows", len(rows), "concurrency", limit)
	r.events.Emit(Event{Kind: EventRunStart, RunID: runID, Data: map[string]any{
		"preset": p.Name, "rows": len(rows), "concurrency": limit,
	}})

	results := make([]unifiedllm.JobResult, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, row := range rows {
		g.Go(func() error {
			res, err := r.exec.Execute(gctx, p.Request(row.Index, row.Text, row.Images))
			results[i] = res
			if err != nil {
				return err
			}
			data := map[string]any{"row": row.Index, "attempts": res.Attempts}
			if res.Failed() {
				data["error"] = res.Err.Error()
			}
			r.events.Emit(Event{Kind: EventRowDone, RunID: runID, Data: data})
			return nil
		})
	}
	err = g.Wait()

	failed := 0
	for _, res := range results {
		if res.Failed() {
			failed++
		}
	}
	log.Info("row run finished", "rows", len(rows), "failed", failed)
	r.events.Emit(Event{Kind: EventRunEnd, RunID: runID, Data: map[string]any{"rows": len(rows), "failed": failed}})
	if err == nil {
		err = ctx.Err()
	}
	return results, err
}
