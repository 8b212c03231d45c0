package unifiedllm

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	oaioption "github.com/openai/openai-go/v3/option"
)

// OpenAIClient speaks the family A chat-completions protocol.
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient creates a family A client. SDK-level retries are disabled;
// the Engine owns the retry policy.
func NewOpenAIClient(apiKey string, opts ...oaioption.RequestOption) *OpenAIClient {
	all := append([]oaioption.RequestOption{
		oaioption.WithAPIKey(apiKey),
		oaioption.WithMaxRetries(0),
	}, opts...)
	return &OpenAIClient{client: openai.NewClient(all...)}
}

func (c *OpenAIClient) Family() Family { return FamilyOpenAI }

// reasoningEngine matches an o1/o3/o4 segment anywhere in the engine name,
// so deployment prefixes such as "openai/o3-mini" are recognised too.
var reasoningEngine = regexp.MustCompile(`(?:^|[^a-z0-9])o[134](?:[^0-9]|$)`)

// IsReasoningEngine reports whether an engine belongs to the sub-family that
// has no temperature knob and takes a reasoning effort instead.
func IsReasoningEngine(engine string) bool {
	return reasoningEngine.MatchString(strings.ToLower(engine))
}

// buildParams translates a JobRequest into a two-message exchange: the
// instructions and one user message of prompt text followed by each image,
// each image preceded by its caption when it has one.
func (c *OpenAIClient) buildParams(req JobRequest) (openai.ChatCompletionNewParams, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Prompt()),
	}
	for _, img := range req.Images.Images {
		if req.Images.Kind == ImagesList && img.Caption != "" {
			parts = append(parts, openai.TextContentPart(img.Caption))
		}
		encoded, mediaType, err := img.Base64()
		if err != nil {
			return openai.ChatCompletionNewParams{}, imageError(img, err)
		}
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:" + mediaType + ";base64," + encoded,
		}))
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Engine),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: parts,
					},
				},
			},
		},
		MaxCompletionTokens: openai.Int(int64(maxTokensFor(FamilyOpenAI, req))),
	}
	if IsReasoningEngine(req.Engine) {
		params.ReasoningEffort = openai.ReasoningEffortLow
	} else {
		params.Temperature = openai.Float(req.Temperature)
	}
	return params, nil
}

// Call sends the request and returns the first choice's text.
func (c *OpenAIClient) Call(ctx context.Context, req JobRequest, timeout time.Duration) (string, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return "", err
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", c.translateError(ctx, err)
	}
	if len(completion.Choices) == 0 {
		return "", emptyResponse("openai")
	}
	text := completion.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", emptyResponse("openai")
	}
	return text, nil
}

func (c *OpenAIClient) translateError(ctx context.Context, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return ErrorFromStatusCode(apiErr.StatusCode, apiErr.Message, "openai", err)
	}
	return transportError(ctx, "openai", err)
}
