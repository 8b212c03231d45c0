package unifiedllm

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Sampling parameters attached to every family B call.
const (
	geminiTopP = 0.95
	geminiTopK = 40
)

// geminiBackend is the slice of the genai client the family B client uses.
type geminiBackend interface {
	upload(ctx context.Context, img *Image) (*genai.Part, error)
	stream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

type genaiBackend struct {
	client *genai.Client
}

func (b *genaiBackend) upload(ctx context.Context, img *Image) (*genai.Part, error) {
	data, mediaType, err := img.Bytes()
	if err != nil {
		return nil, err
	}
	cfg := &genai.UploadFileConfig{MIMEType: mediaType}
	if img.Path != "" {
		cfg.DisplayName = filepath.Base(img.Path)
	}
	file, err := b.client.Files.Upload(ctx, bytes.NewReader(data), cfg)
	if err != nil {
		return nil, err
	}
	return genai.NewPartFromURI(file.URI, file.MIMEType), nil
}

func (b *genaiBackend) stream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	return b.client.Models.GenerateContentStream(ctx, model, contents, config)
}

// GeminiClient speaks the family B protocol: images are uploaded and
// referenced by handle, and the reply is streamed.
type GeminiClient struct {
	backend geminiBackend
}

// NewGeminiClient creates a family B client. An empty baseURL keeps the
// SDK's default endpoint.
func NewGeminiClient(ctx context.Context, apiKey, baseURL string) (*GeminiClient, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &GeminiClient{backend: &genaiBackend{client: client}}, nil
}

func (c *GeminiClient) Family() Family { return FamilyGemini }

func (c *GeminiClient) buildConfig(req JobRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		TopP:            genai.Ptr(float32(geminiTopP)),
		TopK:            genai.Ptr(float32(geminiTopK)),
		MaxOutputTokens: int32(maxTokensFor(FamilyGemini, req)),
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(req.SystemPrompt)}}
	}
	return cfg
}

func (c *GeminiClient) buildContents(ctx context.Context, req JobRequest) ([]*genai.Content, error) {
	var parts []*genai.Part
	for _, img := range req.Images.Images {
		if req.Images.Kind == ImagesList && img.Caption != "" {
			parts = append(parts, genai.NewPartFromText(img.Caption))
		}
		if _, _, err := img.Bytes(); err != nil {
			return nil, imageError(img, err)
		}
		part, err := c.backend.upload(ctx, img)
		if err != nil {
			return nil, c.translateError(ctx, err)
		}
		parts = append(parts, part)
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt()))
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil
}

// Call uploads the images, then concatenates streamed chunks until the
// stream ends.
func (c *GeminiClient) Call(ctx context.Context, req JobRequest, timeout time.Duration) (string, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	contents, err := c.buildContents(ctx, req)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for resp, err := range c.backend.stream(ctx, req.Engine, contents, c.buildConfig(req)) {
		if err != nil {
			return "", c.translateError(ctx, err)
		}
		if resp != nil {
			sb.WriteString(resp.Text())
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", emptyResponse("gemini")
	}
	return sb.String(), nil
}

// translateError maps a genai API error onto the status-code taxonomy.
// Failures that carry no status are transport errors.
func (c *GeminiClient) translateError(ctx context.Context, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return ErrorFromStatusCode(apiErr.Code, apiErr.Message, "gemini", err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && apiErrPtr.Code != 0 {
		return ErrorFromStatusCode(apiErrPtr.Code, apiErrPtr.Message, "gemini", err)
	}
	return transportError(ctx, "gemini", err)
}
