package unifiedllm

import (
	"context"
	"time"
)

// Family identifies one of the three provider request/response shapes.
type Family string

const (
	FamilyOpenAI    Family = "openai"
	FamilyGemini    Family = "gemini"
	FamilyAnthropic Family = "anthropic"
)

// ProviderClient is the interface every provider backend must implement.
// Call builds the provider-specific body from a JobRequest, performs the
// network call and returns the raw text. It must abort the call once
// timeout elapses and report every failure as an error value.
type ProviderClient interface {
	// Family returns the provider family the client speaks.
	Family() Family

	Call(ctx context.Context, req JobRequest, timeout time.Duration) (string, error)
}

// withTimeout derives the per-call context. A zero timeout leaves ctx as is.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
