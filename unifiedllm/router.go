package unifiedllm

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	antoption "github.com/anthropics/anthropic-sdk-go/option"
	oaioption "github.com/openai/openai-go/v3/option"
)

// familyPatterns are checked in order; the first family with a matching
// substring wins. Named families are matched before the short OpenAI patterns.
var familyPatterns = []struct {
	family   Family
	patterns []string
}{
	{FamilyAnthropic, []string{"claude"}},
	{FamilyGemini, []string{"gemini"}},
	{FamilyOpenAI, []string{"gpt", "o1", "o3", "o4"}},
}

// FamilyOf maps an engine identifier to its provider family by
// case-insensitive substring match.
func FamilyOf(engine string) (Family, error) {
	lower := strings.ToLower(strings.TrimSpace(engine))
	if lower == "" {
		return "", configErrorf("no engine specified")
	}
	for _, fp := range familyPatterns {
		for _, p := range fp.patterns {
			if strings.Contains(lower, p) {
				return fp.family, nil
			}
		}
	}
	return "", configErrorf("engine %q does not match any provider family", engine)
}

// Router resolves engine identifiers to provider clients. Clients are built
// lazily from the credentials the first time their family is requested.
type Router struct {
	creds         Credentials
	clients       map[Family]ProviderClient
	textClients   map[Family]ProviderClient
	openaiOpts    []oaioption.RequestOption
	anthropicOpts []antoption.RequestOption
	geminiBaseURL string
	logger        *slog.Logger
	mu            sync.Mutex
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithClient registers the client used for every request of a family.
func WithClient(family Family, client ProviderClient) RouterOption {
	return func(r *Router) {
		r.clients[family] = client
	}
}

// WithTextClient registers an alternate client for requests of a family
// that carry no images. Image requests keep using the native client.
func WithTextClient(family Family, client ProviderClient) RouterOption {
	return func(r *Router) {
		r.textClients[family] = client
	}
}

// WithOpenAIOptions adds request options to the lazily built OpenAI client.
func WithOpenAIOptions(opts ...oaioption.RequestOption) RouterOption {
	return func(r *Router) {
		r.openaiOpts = append(r.openaiOpts, opts...)
	}
}

// WithAnthropicOptions adds request options to the lazily built Anthropic client.
func WithAnthropicOptions(opts ...antoption.RequestOption) RouterOption {
	return func(r *Router) {
		r.anthropicOpts = append(r.anthropicOpts, opts...)
	}
}

// WithGeminiBaseURL overrides the Gemini API endpoint.
func WithGeminiBaseURL(url string) RouterOption {
	return func(r *Router) {
		r.geminiBaseURL = url
	}
}

// WithRouterLogger sets the router's logger.
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter creates a Router over the given credentials.
func NewRouter(creds Credentials, opts ...RouterOption) *Router {
	r := &Router{
		creds:       creds,
		clients:     make(map[Family]ProviderClient),
		textClients: make(map[Family]ProviderClient),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route returns the provider client for an engine identifier. An engine
// that matches no family is a configuration error.
func (r *Router) Route(engine string) (ProviderClient, error) {
	family, err := FamilyOf(engine)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	native, ok := r.clients[family]
	if !ok {
		native, err = r.build(family)
		if err != nil {
			return nil, err
		}
		r.clients[family] = native
		r.logger.Debug("provider client ready", "family", string(family), "creds", r.creds)
	}

	if text, ok := r.textClients[family]; ok {
		return &splitClient{native: native, text: text}, nil
	}
	return native, nil
}

func (r *Router) build(family Family) (ProviderClient, error) {
	switch family {
	case FamilyOpenAI:
		if r.creds.OpenAI == "" {
			return nil, configErrorf("no OpenAI API key configured")
		}
		return NewOpenAIClient(r.creds.OpenAI, r.openaiOpts...), nil
	case FamilyAnthropic:
		if r.creds.Anthropic == "" {
			return nil, configErrorf("no Anthropic API key configured")
		}
		return NewAnthropicClient(r.creds.Anthropic, r.anthropicOpts...), nil
	case FamilyGemini:
		if r.creds.Gemini == "" {
			return nil, configErrorf("no Gemini API key configured")
		}
		c, err := NewGeminiClient(context.Background(), r.creds.Gemini, r.geminiBaseURL)
		if err != nil {
			return nil, &ConfigurationError{SDKError: SDKError{Message: "gemini client", Cause: err}}
		}
		return c, nil
	default:
		return nil, configErrorf("unsupported provider family %q", family)
	}
}

// splitClient sends image-free requests to text and the rest to native.
type splitClient struct {
	native ProviderClient
	text   ProviderClient
}

func (s *splitClient) Family() Family { return s.native.Family() }

func (s *splitClient) Call(ctx context.Context, req JobRequest, timeout time.Duration) (string, error) {
	if req.Images.Empty() {
		return s.text.Call(ctx, req, timeout)
	}
	return s.native.Call(ctx, req, timeout)
}
