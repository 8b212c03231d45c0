// Package pipeline runs presets over datasets: strictly ordered chunked
// analysis with context carried between chunks, and bounded concurrent
// single-row jobs.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/martinemde/archivist/extract"
	"github.com/martinemde/archivist/preset"
	"github.com/martinemde/archivist/unifiedllm"
)

// DefaultChunkSize is used when neither the caller nor the preset sets one.
const DefaultChunkSize = 25

// Runner drives presets through an Executor.
type Runner struct {
	exec     unifiedllm.Executor
	catalog  *preset.Catalog
	logger   *slog.Logger
	events   *EventEmitter
	resolver extract.Resolver
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithEvents attaches an emitter that receives run events.
func WithEvents(e *EventEmitter) Option {
	return func(r *Runner) { r.events = e }
}

// NewRunner creates a Runner over an executor and a preset catalog.
func NewRunner(exec unifiedllm.Executor, catalog *preset.Catalog, opts ...Option) *Runner {
	r := &Runner{
		exec:    exec,
		catalog: catalog,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.resolver = extract.Resolver{Logger: r.logger}
	return r
}

// chunkRow is the wire shape of one row inside a chunk payload.
type chunkRow struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// carry is the context handed from one chunk to the next.
type carry map[string]any

// chunkOutcome is how a single chunk ended.
type chunkOutcome int

const (
	chunkRows chunkOutcome = iota
	chunkFailed
	chunkEmpty
)

// RunStats counts how the chunks of a sequential run ended.
type RunStats struct {
	Chunks    int // chunks attempted
	Succeeded int // chunks that contributed rows
	Failed    int // chunks whose job failed
	Empty     int // chunks that yielded no usable items
}

func (s *RunStats) record(o chunkOutcome) {
	s.Chunks++
	switch o {
	case chunkRows:
		s.Succeeded++
	case chunkFailed:
		s.Failed++
	case chunkEmpty:
		s.Empty++
	}
}

// RunSequential splits dataset into chunks and analyses them in order,
// feeding each chunk the fields of the previous chunk's last result. A chunk
// that fails or yields nothing contributes no rows and resets the context.
// Only a configuration error or cancellation stops the run early; the rows
// gathered so far are returned with the error.
func (r *Runner) RunSequential(ctx context.Context, dataset []Row, presetName string, chunkSize int) (Table, error) {
	table, _, err := r.RunSequentialStats(ctx, dataset, presetName, chunkSize)
	return table, err
}

// RunSequentialStats is RunSequential that also reports how each chunk
// ended. The stats cover every chunk run before an early stop.
func (r *Runner) RunSequentialStats(ctx context.Context, dataset []Row, presetName string, chunkSize int) (Table, RunStats, error) {
	var stats RunStats
	p, err := r.catalog.Lookup(presetName)
	if err != nil {
		return Table{}, stats, &unifiedllm.ConfigurationError{SDKError: unifiedllm.SDKError{Message: "sequential run", Cause: err}}
	}

	size := chunkSize
	if size <= 0 {
		size = p.ChunkSize
	}
	if size <= 0 {
		r.logger.Warn("chunk size must be positive, using default", "chunk_size", chunkSize, "default", DefaultChunkSize)
		size = DefaultChunkSize
	}

	runID := uuid.New().String()
	chunks := split(dataset, size)
	log := r.logger.With("run_id", runID, "preset", p.Name)
	log.Info("sequential run started", "rows", len(dataset), "chunks", len(chunks), "chunk_size", size)
	r.events.Emit(Event{Kind: EventRunStart, RunID: runID, Data: map[string]any{
		"preset": p.Name, "rows": len(dataset), "chunks": len(chunks),
	}})

	var (
		rows []ResultRow
		prev carry
	)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return r.finish(runID, log, rows), stats, err
		}

		var (
			produced []ResultRow
			outcome  chunkOutcome
		)
		produced, prev, outcome, err = r.runChunk(ctx, log, runID, p, i, chunk, prev)
		if err != nil {
			return r.finish(runID, log, rows), stats, err
		}
		stats.record(outcome)
		rows = append(rows, produced...)
	}
	return r.finish(runID, log, rows), stats, nil
}

func (r *Runner) finish(runID string, log *slog.Logger, rows []ResultRow) Table {
	table := combine(rows)
	log.Info("sequential run finished", "rows", len(table))
	r.events.Emit(Event{Kind: EventRunEnd, RunID: runID, Data: map[string]any{"rows": len(table)}})
	return table
}

// runChunk executes one chunk and returns its rows and the context for the
// next chunk. The error is non-nil only for failures that end the run.
func (r *Runner) runChunk(ctx context.Context, log *slog.Logger, runID string, p preset.Preset, n int, chunk []Row, prev carry) ([]ResultRow, carry, chunkOutcome, error) {
	log = log.With("chunk", n)
	r.events.Emit(Event{Kind: EventChunkStart, RunID: runID, Chunk: n, Data: map[string]any{
		"first": chunk[0].Index, "last": chunk[len(chunk)-1].Index,
	}})

	payload, err := serialize(chunk)
	if err != nil {
		return nil, nil, chunkFailed, fmt.Errorf("serialize chunk %d: %w", n, err)
	}
	req := p.Request(chunk[0].Index, payload, unifiedllm.NoImages())
	if len(prev) > 0 {
		req.UserPrompt = req.UserPrompt + "\n\n" + contextSentence(prev)
	}

	result, err := r.exec.Execute(ctx, req)
	if err != nil {
		return nil, nil, chunkFailed, err
	}
	if result.Failed() {
		log.Error("chunk failed", "err", result.Err)
		r.events.Emit(Event{Kind: EventChunkFailed, RunID: runID, Chunk: n, Data: map[string]any{"error": result.Err.Error()}})
		return nil, nil, chunkFailed, nil
	}

	items, err := extract.DecodeItems(result.Text)
	if err != nil || len(items) == 0 {
		reason := "no items"
		if err != nil {
			reason = err.Error()
		}
		log.Warn("chunk yielded no structured data", "reason", reason)
		r.events.Emit(Event{Kind: EventChunkEmpty, RunID: runID, Chunk: n, Data: map[string]any{"reason": reason}})
		return nil, nil, chunkEmpty, nil
	}

	var (
		rows []ResultRow
		last *extract.ParsedItem
	)
	for i := range items {
		item := &items[i]
		indices := r.resolver.Resolve(item.IndexSpecifier)
		if len(indices) == 0 {
			log.Warn("skipping item without a usable index", "key", item.IndexKey, "specifier", item.IndexSpecifier)
			continue
		}
		for _, idx := range indices {
			rows = append(rows, ResultRow{Index: idx, Fields: maps.Clone(item.Fields)})
		}
		last = item
	}
	if last == nil {
		log.Warn("chunk resolved no rows")
		r.events.Emit(Event{Kind: EventChunkEmpty, RunID: runID, Chunk: n, Data: map[string]any{"reason": "no indices resolved"}})
		return nil, nil, chunkEmpty, nil
	}

	log.Debug("chunk produced rows", "rows", len(rows))
	r.events.Emit(Event{Kind: EventChunkRows, RunID: runID, Chunk: n, Data: map[string]any{"rows": len(rows)}})
	return rows, carry(maps.Clone(last.Fields)), chunkRows, nil
}

func split(dataset []Row, size int) [][]Row {
	var chunks [][]Row
	for start := 0; start < len(dataset); start += size {
		end := min(start+size, len(dataset))
		chunks = append(chunks, dataset[start:end])
	}
	return chunks
}

func serialize(chunk []Row) (string, error) {
	out := make([]chunkRow, len(chunk))
	for i, row := range chunk {
		out[i] = chunkRow{Index: row.Index, Text: row.Text}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// contextSentence summarises the previous chunk's last result in sorted
// field order.
func contextSentence(c carry) string {
	keys := slices.Sorted(maps.Keys(c))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, FormatValue(c[k])))
	}
	return "Context from the previous section of the document, which these rows continue: " + strings.Join(parts, "; ") + "."
}
