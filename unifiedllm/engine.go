package unifiedllm

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a single provider call when the request sets none.
const DefaultTimeout = 120 * time.Second

// Resolver turns an engine name into the client that serves it.
type Resolver interface {
	Route(engine string) (ProviderClient, error)
}

// Executor runs one job to completion.
type Executor interface {
	Execute(ctx context.Context, req JobRequest) (JobResult, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Engine executes a JobRequest against its provider, validating every
// response and retrying with escalation until it succeeds or gives up.
type Engine struct {
	resolver Resolver
	policy   RetryPolicy
	timeout  time.Duration
	sleep    Sleeper
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) EngineOption {
	return func(e *Engine) { e.policy = p }
}

// WithDefaultTimeout sets the per-call timeout for requests that set none.
func WithDefaultTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.timeout = d }
}

// WithSleeper replaces the backoff sleep, mainly for tests.
func WithSleeper(s Sleeper) EngineOption {
	return func(e *Engine) { e.sleep = s }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an Engine that resolves clients through r.
func NewEngine(r Resolver, opts ...EngineOption) *Engine {
	e := &Engine{
		resolver: r,
		policy:   DefaultRetryPolicy(),
		timeout:  DefaultTimeout,
		sleep:    sleepContext,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type attemptState int

const (
	stateCalling attemptState = iota
	stateValidating
	stateRetrying
	stateSucceeded
	stateExhausted
)

// Execute runs req until a response passes validation. A row that cannot
// be completed yields a JobResult whose Err is a *JobError; the returned
// error is reserved for configuration failures that must stop the caller.
func (e *Engine) Execute(ctx context.Context, req JobRequest) (JobResult, error) {
	id := uuid.New().String()
	result := JobResult{RowIndex: req.RowIndex, RequestID: id}

	client, err := e.resolver.Route(req.Engine)
	if err != nil {
		result.Err = &JobError{RowIndex: req.RowIndex, Cause: err}
		return result, err
	}

	family := client.Family()
	class := req.Classify()
	cur := req
	cur.Classification = class
	if cur.MaxTokens <= 0 {
		cur.MaxTokens = TokenCeiling(family, class)
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}
	maxAttempts := e.policy.AttemptsFor(class)
	log := e.logger.With("request_id", id, "row", req.RowIndex, "engine", req.Engine)

	var (
		attempt   int
		raw       string
		payload   string
		lastErr   error
		transport bool
	)
	state := stateCalling
	for {
		switch state {
		case stateCalling:
			attempt++
			raw, lastErr = client.Call(ctx, cur, timeout)
			switch {
			case lastErr == nil:
				state = stateValidating
			case IsConfigurationError(lastErr):
				result.Attempts = attempt
				result.Err = &JobError{RowIndex: req.RowIndex, Attempts: attempt, Cause: lastErr}
				return result, lastErr
			case !IsRetryable(lastErr) || ctx.Err() != nil || attempt >= maxAttempts:
				state = stateExhausted
			default:
				transport = true
				state = stateRetrying
			}

		case stateValidating:
			payload, lastErr = Validate(raw, cur.ValidationMarker, class, cur.RequiredFields)
			switch {
			case lastErr == nil:
				state = stateSucceeded
			case attempt >= maxAttempts:
				state = stateExhausted
			default:
				transport = false
				state = stateRetrying
			}

		case stateRetrying:
			log.Warn("retrying job", "attempt", attempt, "max_attempts", maxAttempts, "error", lastErr)
			if transport {
				if err := e.sleep(ctx, e.policy.Delay(attempt-1)); err != nil {
					lastErr = err
					state = stateExhausted
					continue
				}
			} else {
				cur = e.escalate(cur, family, attempt)
			}
			state = stateCalling

		case stateSucceeded:
			if attempt > 1 {
				log.Info("job succeeded after retry", "attempts", attempt)
			}
			result.Text = payload
			result.Attempts = attempt
			return result, nil

		case stateExhausted:
			log.Error("job failed", "attempts", attempt, "error", lastErr)
			result.Attempts = attempt
			result.Err = &JobError{RowIndex: req.RowIndex, Attempts: attempt, Cause: lastErr}
			return result, nil
		}
	}
}

// escalate prepares the request for retry number retry after a validation
// failure: the temperature rises one step and complex jobs may get a larger
// token ceiling.
func (e *Engine) escalate(req JobRequest, family Family, retry int) JobRequest {
	req.Temperature = e.policy.NextTemperature(req.Temperature)
	req.MaxTokens = e.policy.NextTokenCeiling(req.MaxTokens, retry, TokenCap(family), req.Classification)
	return req
}
