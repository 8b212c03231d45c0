package unifiedllm

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRetryPolicyDelay(t *testing.T) {
	policy := DefaultRetryPolicy()

	delays := []time.Duration{
		1000 * time.Millisecond,
		1500 * time.Millisecond,
		2250 * time.Millisecond,
		3375 * time.Millisecond,
	}

	for i, expected := range delays {
		got := policy.Delay(i)
		if got != expected {
			t.Errorf("attempt %d: expected %v, got %v", i, expected, got)
		}
	}
}

func TestRetryPolicyDelayWithMaxCap(t *testing.T) {
	policy := DefaultRetryPolicy()
	policy.MaxDelay = 5 * time.Second

	got := policy.Delay(20)
	if got != 5*time.Second {
		t.Errorf("expected 5s (capped), got %v", got)
	}
}

func TestRetryPolicyAttempts(t *testing.T) {
	policy := DefaultRetryPolicy()
	if got := policy.AttemptsFor(ClassificationMetadata); got != 5 {
		t.Errorf("metadata attempts = %d, want 5", got)
	}
	for _, class := range []string{ClassificationDefault, ClassificationPagination, ClassificationAnalysis} {
		if got := policy.AttemptsFor(class); got != 3 {
			t.Errorf("%q attempts = %d, want 3", class, got)
		}
	}
}

func TestRetryPolicyNextTemperature(t *testing.T) {
	policy := DefaultRetryPolicy()

	tests := []struct {
		in, want float64
	}{
		{0, 0.1},
		{0.2, 0.3},
		{0.85, 0.9},
		{0.9, 0.9},
		{1.2, 1.2},
	}
	for _, tt := range tests {
		if got := policy.NextTemperature(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NextTemperature(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRetryPolicyNextTokenCeiling(t *testing.T) {
	policy := DefaultRetryPolicy()

	if got := policy.NextTokenCeiling(4000, 1, 16000, ClassificationMetadata); got != 4000 {
		t.Errorf("first retry should not escalate, got %d", got)
	}
	if got := policy.NextTokenCeiling(4000, 2, 16000, ClassificationMetadata); got != 6000 {
		t.Errorf("second retry should escalate to 6000, got %d", got)
	}
	if got := policy.NextTokenCeiling(12000, 4, 16000, ClassificationAnalysis); got != 16000 {
		t.Errorf("escalation should stop at the cap, got %d", got)
	}
	if got := policy.NextTokenCeiling(2000, 4, 16000, ClassificationPagination); got != 2000 {
		t.Errorf("simple jobs never escalate, got %d", got)
	}
}

// stubClient replays a scripted sequence of replies.
type stubClient struct {
	mu      sync.Mutex
	family  Family
	replies []stubReply
	calls   []JobRequest
}

type stubReply struct {
	text string
	err  error
}

func (s *stubClient) Family() Family { return s.family }

func (s *stubClient) Call(ctx context.Context, req JobRequest, timeout time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	i := len(s.calls) - 1
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return s.replies[i].text, s.replies[i].err
}

type stubResolver struct {
	client ProviderClient
	err    error
}

func (r stubResolver) Route(engine string) (ProviderClient, error) {
	return r.client, r.err
}

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestEngine(client ProviderClient, sleeper *recordingSleeper) *Engine {
	return NewEngine(stubResolver{client: client}, WithSleeper(sleeper.sleep), WithLogger(discardLogger()))
}

func TestEngineEscalatesOnValidationFailure(t *testing.T) {
	client := &stubClient{family: FamilyOpenAI, replies: []stubReply{
		{text: "no marker here"},
		{text: "still nothing"},
		{text: "TRANSCRIPTION: the page"},
	}}
	sleeper := &recordingSleeper{}
	engine := newTestEngine(client, sleeper)

	result, err := engine.Execute(context.Background(), JobRequest{
		Engine:           "gpt-4o",
		UserPrompt:       "Transcribe: " + TextPlaceholder,
		Text:             "x",
		Temperature:      0.2,
		ValidationMarker: "TRANSCRIPTION:",
		RowIndex:         4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Failed() {
		t.Fatalf("expected success, got %v", result.Err)
	}
	if result.Text != "the page" {
		t.Errorf("expected payload %q, got %q", "the page", result.Text)
	}
	if result.RowIndex != 4 || result.Attempts != 3 {
		t.Errorf("row=%d attempts=%d", result.RowIndex, result.Attempts)
	}
	if len(client.calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(client.calls))
	}
	for i := 1; i < len(client.calls); i++ {
		if client.calls[i].Temperature <= client.calls[i-1].Temperature {
			t.Errorf("temperature did not rise on retry %d: %v -> %v", i, client.calls[i-1].Temperature, client.calls[i].Temperature)
		}
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("validation retries must not sleep, slept %v", sleeper.delays)
	}
	if result.RequestID == "" {
		t.Error("expected a request id")
	}
}

func TestEngineBacksOffOnTransportError(t *testing.T) {
	netErr := &NetworkError{SDKError: SDKError{Message: "connection reset"}}
	client := &stubClient{family: FamilyAnthropic, replies: []stubReply{
		{err: netErr},
		{err: netErr},
		{text: "done"},
	}}
	sleeper := &recordingSleeper{}
	engine := newTestEngine(client, sleeper)

	result, err := engine.Execute(context.Background(), JobRequest{Engine: "claude-sonnet-4-5", UserPrompt: "hi", Temperature: 0.3})
	if err != nil || result.Failed() {
		t.Fatalf("unexpected failure: %v %v", err, result.Err)
	}
	want := []time.Duration{time.Second, 1500 * time.Millisecond}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, sleeper.delays)
	}
	for i := range want {
		if sleeper.delays[i] != want[i] {
			t.Errorf("delay %d: expected %v, got %v", i, want[i], sleeper.delays[i])
		}
	}
	for _, call := range client.calls {
		if call.Temperature != 0.3 {
			t.Errorf("transport retries must keep temperature, got %v", call.Temperature)
		}
	}
}

func TestEngineExhaustsAttempts(t *testing.T) {
	client := &stubClient{family: FamilyOpenAI, replies: []stubReply{{text: "   "}}}
	engine := newTestEngine(client, &recordingSleeper{})

	result, err := engine.Execute(context.Background(), JobRequest{Engine: "gpt-4o", UserPrompt: "hi", RowIndex: 9})
	if err != nil {
		t.Fatalf("row failures must not surface as errors: %v", err)
	}
	if !result.Failed() {
		t.Fatal("expected an error sentinel")
	}
	if !errors.Is(result.Err, ErrJobFailed) {
		t.Errorf("expected ErrJobFailed, got %v", result.Err)
	}
	var je *JobError
	if !errors.As(result.Err, &je) || je.RowIndex != 9 || je.Attempts != 3 {
		t.Errorf("unexpected job error: %#v", result.Err)
	}
	if len(client.calls) != 3 {
		t.Errorf("expected 3 calls, got %d", len(client.calls))
	}
}

func TestEngineMetadataGetsFiveAttempts(t *testing.T) {
	client := &stubClient{family: FamilyAnthropic, replies: []stubReply{{text: "Date: 1850"}}}
	engine := newTestEngine(client, &recordingSleeper{})

	result, _ := engine.Execute(context.Background(), JobRequest{
		Engine:         "claude-sonnet-4-5",
		UserPrompt:     "Produce metadata",
		Classification: ClassificationMetadata,
		RequiredFields: []string{"Date", "Place"},
	})
	if !result.Failed() {
		t.Fatal("expected failure when a heading is missing")
	}
	if len(client.calls) != 5 {
		t.Fatalf("expected 5 calls, got %d", len(client.calls))
	}
	if client.calls[0].MaxTokens != TokenCeiling(FamilyAnthropic, ClassificationMetadata) {
		t.Errorf("initial ceiling = %d", client.calls[0].MaxTokens)
	}
	if client.calls[1].MaxTokens != client.calls[0].MaxTokens {
		t.Errorf("first retry must keep the ceiling: %d -> %d", client.calls[0].MaxTokens, client.calls[1].MaxTokens)
	}
	if client.calls[2].MaxTokens <= client.calls[1].MaxTokens {
		t.Errorf("expected the ceiling to grow on the second retry: %d -> %d", client.calls[1].MaxTokens, client.calls[2].MaxTokens)
	}
	for _, call := range client.calls {
		if call.MaxTokens > TokenCap(FamilyAnthropic) {
			t.Errorf("ceiling %d exceeds cap", call.MaxTokens)
		}
	}
}

func TestEngineAnalysisEscalatesTokensWithinThreeAttempts(t *testing.T) {
	client := &stubClient{family: FamilyAnthropic, replies: []stubReply{{text: "no marker"}}}
	engine := newTestEngine(client, &recordingSleeper{})

	result, _ := engine.Execute(context.Background(), JobRequest{
		Engine:           "claude-sonnet-4-5",
		UserPrompt:       "Assess relevance",
		Classification:   ClassificationAnalysis,
		ValidationMarker: "Relevance:",
	})
	if !result.Failed() {
		t.Fatal("expected failure when the marker never appears")
	}
	if len(client.calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(client.calls))
	}
	base := TokenCeiling(FamilyAnthropic, ClassificationAnalysis)
	if client.calls[0].MaxTokens != base || client.calls[1].MaxTokens != base {
		t.Errorf("first two calls should use %d, got %d and %d", base, client.calls[0].MaxTokens, client.calls[1].MaxTokens)
	}
	if got := client.calls[2].MaxTokens; got != 12000 {
		t.Errorf("third call ceiling = %d, want 12000", got)
	}
}

func TestEngineStopsOnNonRetryableError(t *testing.T) {
	client := &stubClient{family: FamilyOpenAI, replies: []stubReply{
		{err: ErrorFromStatusCode(401, "bad key", "openai", nil)},
	}}
	engine := newTestEngine(client, &recordingSleeper{})

	result, err := engine.Execute(context.Background(), JobRequest{Engine: "gpt-4o", UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.calls) != 1 {
		t.Errorf("expected a single call, got %d", len(client.calls))
	}
	var ae *AuthenticationError
	if !errors.As(result.Err, &ae) {
		t.Errorf("expected AuthenticationError cause, got %v", result.Err)
	}
}

func TestEngineConfigurationErrorAborts(t *testing.T) {
	engine := NewEngine(NewRouter(Credentials{}), WithLogger(discardLogger()))

	_, err := engine.Execute(context.Background(), JobRequest{Engine: "llama-3", UserPrompt: "hi"})
	if !IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	_, err = engine.Execute(context.Background(), JobRequest{Engine: "gpt-4o", UserPrompt: "hi"})
	if !IsConfigurationError(err) || !strings.Contains(err.Error(), "OpenAI") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestEngineCancelledContext(t *testing.T) {
	client := &stubClient{family: FamilyOpenAI, replies: []stubReply{{text: "ok"}}}
	engine := newTestEngine(client, &recordingSleeper{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Execute(ctx, JobRequest{Engine: "gpt-4o", UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Failed() || !errors.Is(result.Err, context.Canceled) {
		t.Fatalf("expected cancelled sentinel, got %v", result.Err)
	}
	if len(client.calls) != 1 {
		t.Errorf("expected no retries after cancel, got %d calls", len(client.calls))
	}
}

func TestEngineUsesRequestTimeout(t *testing.T) {
	var got time.Duration
	client := &funcClient{family: FamilyOpenAI, fn: func(ctx context.Context, req JobRequest, timeout time.Duration) (string, error) {
		got = timeout
		return "ok", nil
	}}
	engine := NewEngine(stubResolver{client: client}, WithDefaultTimeout(time.Minute), WithLogger(discardLogger()))

	if _, err := engine.Execute(context.Background(), JobRequest{Engine: "gpt-4o", UserPrompt: "hi"}); err != nil {
		t.Fatal(err)
	}
	if got != time.Minute {
		t.Errorf("expected default timeout, got %v", got)
	}
	if _, err := engine.Execute(context.Background(), JobRequest{Engine: "gpt-4o", UserPrompt: "hi", Timeout: time.Second}); err != nil {
		t.Fatal(err)
	}
	if got != time.Second {
		t.Errorf("expected request timeout, got %v", got)
	}
}

type funcClient struct {
	family Family
	fn     func(ctx context.Context, req JobRequest, timeout time.Duration) (string, error)
}

func (f *funcClient) Family() Family { return f.family }

func (f *funcClient) Call(ctx context.Context, req JobRequest, timeout time.Duration) (string, error) {
	return f.fn(ctx, req, timeout)
}
