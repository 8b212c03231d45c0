package unifiedllm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/teilomillet/gollm"
)

// GollmClient serves image-free requests through gollm. It is registered
// with WithTextClient; requests with images are refused.
type GollmClient struct {
	family    Family
	provider  string
	mu        sync.Mutex
	setOption func(key string, value interface{})
	generate  func(ctx context.Context, prompt *gollm.Prompt) (string, error)
}

var gollmProviders = map[Family]string{
	FamilyOpenAI:    "openai",
	FamilyAnthropic: "anthropic",
}

// NewGollmClient creates a text-only client for a family gollm supports.
func NewGollmClient(family Family, apiKey string, opts ...gollm.ConfigOption) (*GollmClient, error) {
	provider, ok := gollmProviders[family]
	if !ok {
		return nil, configErrorf("gollm has no provider for family %q", family)
	}
	if apiKey == "" {
		return nil, configErrorf("no API key for gollm provider %s", provider)
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetAPIKey(apiKey),
		gollm.SetMaxRetries(0),
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	gollmOpts = append(gollmOpts, opts...)

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gollm LLM for provider %s: %w", provider, err)
	}

	return &GollmClient{
		family:    family,
		provider:  provider,
		setOption: func(key string, value interface{}) {
			llm.SetOption(key, value)
		},
		generate: func(ctx context.Context, prompt *gollm.Prompt) (string, error) {
			return llm.Generate(ctx, prompt)
		},
	}, nil
}

func (c *GollmClient) Family() Family { return c.family }

// Call renders the request into a gollm prompt. The model, temperature and
// ceiling are set on the shared LLM, so calls are serialized.
func (c *GollmClient) Call(ctx context.Context, req JobRequest, timeout time.Duration) (string, error) {
	if !req.Images.Empty() {
		return "", &InvalidRequestError{ProviderError: ProviderError{
			SDKError: SDKError{Message: "gollm client does not accept images"},
			Provider: c.provider,
		}}
	}

	maxTokens := maxTokensFor(c.family, req)
	var promptOpts []gollm.PromptOption
	if strings.TrimSpace(req.SystemPrompt) != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(req.SystemPrompt, gollm.CacheTypeEphemeral))
	}
	promptOpts = append(promptOpts, gollm.WithMaxLength(maxTokens))
	prompt := gollm.NewPrompt(req.Prompt(), promptOpts...)

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.setOption("model", req.Engine)
	if !(c.family == FamilyOpenAI && IsReasoningEngine(req.Engine)) {
		c.setOption("temperature", req.Temperature)
	}
	c.setOption("max_tokens", maxTokens)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return "", c.translateError(ctx, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", emptyResponse(c.provider)
	}
	return text, nil
}

// translateError classifies gollm errors, which only carry a message.
func (c *GollmClient) translateError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return transportError(ctx, c.provider, err)
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		return ErrorFromStatusCode(401, msg, c.provider, err)
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return ErrorFromStatusCode(429, msg, c.provider, err)
	case strings.Contains(lower, "400") || strings.Contains(lower, "invalid request"):
		return ErrorFromStatusCode(400, msg, c.provider, err)
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") || strings.Contains(lower, "503") || strings.Contains(lower, "internal server"):
		return ErrorFromStatusCode(500, msg, c.provider, err)
	case strings.Contains(lower, "timeout"):
		return &RequestTimeoutError{SDKError: SDKError{Message: msg, Cause: err}}
	default:
		return &NetworkError{SDKError: SDKError{Message: msg, Cause: err}}
	}
}
