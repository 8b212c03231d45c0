package unifiedllm

import (
	"context"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy configures attempt caps, backoff and escalation.
type RetryPolicy struct {
	MaxAttempts        int           // total attempts for ordinary jobs
	MetadataAttempts   int           // total attempts for the metadata classification
	BaseDelay          time.Duration // first backoff delay
	BackoffMultiplier  float64
	MaxDelay           time.Duration
	TemperatureStep    float64
	TemperatureCeiling float64
	TokenEscalateAfter int     // first retry that grows the token ceiling
	TokenGrowthFactor  float64 // ceiling multiplier per escalated retry
}

// DefaultRetryPolicy returns the default retry policy: 3 attempts, 5 for
// metadata jobs, backoff of 1s * 1.5^attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:        3,
		MetadataAttempts:   5,
		BaseDelay:          time.Second,
		BackoffMultiplier:  1.5,
		MaxDelay:           60 * time.Second,
		TemperatureStep:    0.1,
		TemperatureCeiling: 0.9,
		TokenEscalateAfter: 2,
		TokenGrowthFactor:  1.5,
	}
}

// AttemptsFor returns the attempt cap of a classification.
func (p RetryPolicy) AttemptsFor(classification string) int {
	n := p.MaxAttempts
	if classification == ClassificationMetadata {
		n = p.MetadataAttempts
	}
	if n < 1 {
		n = 1
	}
	return n
}

// schedule returns a deterministic exponential backoff seeded at BaseDelay.
func (p RetryPolicy) schedule() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.BackoffMultiplier
	b.RandomizationFactor = 0
	b.MaxInterval = p.MaxDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Delay returns the sleep before retrying after attempt n (0-indexed):
// BaseDelay * BackoffMultiplier^n, capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	b := p.schedule()
	d := b.NextBackOff()
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// NextTemperature raises t by one step without passing the ceiling. A
// temperature already at or above the ceiling is left unchanged.
func (p RetryPolicy) NextTemperature(t float64) float64 {
	if t >= p.TemperatureCeiling {
		return t
	}
	next := math.Min(t+p.TemperatureStep, p.TemperatureCeiling)
	return math.Round(next*100) / 100
}

// NextTokenCeiling grows the ceiling of a complex job from retry number
// TokenEscalateAfter onward, never past limit. With the default policy the
// third attempt is the first to run with a larger ceiling.
func (p RetryPolicy) NextTokenCeiling(current, retry, limit int, classification string) int {
	if !IsComplex(classification) || retry < p.TokenEscalateAfter {
		return current
	}
	next := int(float64(current) * p.TokenGrowthFactor)
	if next > limit {
		next = limit
	}
	if next < current {
		return current
	}
	return next
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
