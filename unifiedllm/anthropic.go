package unifiedllm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	antoption "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient speaks the family C messages protocol.
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropicClient creates a family C client with SDK retries disabled.
func NewAnthropicClient(apiKey string, opts ...antoption.RequestOption) *AnthropicClient {
	all := append([]antoption.RequestOption{
		antoption.WithAPIKey(apiKey),
		antoption.WithMaxRetries(0),
	}, opts...)
	return &AnthropicClient{client: anthropic.NewClient(all...)}
}

func (c *AnthropicClient) Family() Family { return FamilyAnthropic }

// buildParams lays out a single content list: every caption and image in
// payload order, then the prompt text last.
func (c *AnthropicClient) buildParams(req JobRequest) (anthropic.MessageNewParams, error) {
	var blocks []anthropic.ContentBlockParamUnion
	for _, img := range req.Images.Images {
		if req.Images.Kind == ImagesList && img.Caption != "" {
			blocks = append(blocks, anthropic.NewTextBlock(img.Caption))
		}
		encoded, mediaType, err := img.Base64()
		if err != nil {
			return anthropic.MessageNewParams{}, imageError(img, err)
		}
		blocks = append(blocks, anthropic.NewImageBlockBase64(mediaType, encoded))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.Prompt()))

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Engine),
		MaxTokens:   int64(maxTokensFor(FamilyAnthropic, req)),
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	return params, nil
}

// Call sends the request and concatenates the text blocks of the reply.
func (c *AnthropicClient) Call(ctx context.Context, req JobRequest, timeout time.Duration) (string, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return "", err
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", c.translateError(ctx, err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", emptyResponse("anthropic")
	}
	return sb.String(), nil
}

func (c *AnthropicClient) translateError(ctx context.Context, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return ErrorFromStatusCode(apiErr.StatusCode, apiErr.Error(), "anthropic", err)
	}
	return transportError(ctx, "anthropic", err)
}
