package unifiedllm

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TextPlaceholder is replaced by the row text when a user template is rendered.
const TextPlaceholder = "{text_to_process}"

// Job classifications select the retry cap and the token ceiling of a request.
const (
	ClassificationDefault     = ""
	ClassificationMetadata    = "metadata"
	ClassificationPagination  = "pagination"
	ClassificationExtraction  = "extraction"
	ClassificationShortAnswer = "short_answer"
	ClassificationAnalysis    = "analysis"
)

// ImageKind is the shape of the image payload attached to a request.
type ImageKind int

const (
	ImagesNone ImageKind = iota
	ImagesSingle
	ImagesList
)

func (k ImageKind) String() string {
	switch k {
	case ImagesSingle:
		return "single"
	case ImagesList:
		return "list"
	default:
		return "none"
	}
}

// Image references a page scan. Its bytes are read and encoded at most once,
// so the same *Image can be reused across every retry of a request.
type Image struct {
	Path      string
	Caption   string
	MediaType string

	once    sync.Once
	data    []byte
	encoded string
	err     error
}

// NewImage returns an image backed by a file on disk.
func NewImage(path, caption string) *Image {
	return &Image{Path: path, Caption: caption}
}

// NewImageFromBytes returns an image whose bytes are already in memory.
func NewImageFromBytes(data []byte, mediaType, caption string) *Image {
	img := &Image{Caption: caption, MediaType: mediaType}
	img.once.Do(func() {
		img.data = data
		img.encoded = base64.StdEncoding.EncodeToString(data)
		if img.MediaType == "" {
			img.MediaType = "image/jpeg"
		}
	})
	return img
}

func (img *Image) load() {
	img.once.Do(func() {
		data, err := os.ReadFile(img.Path)
		if err != nil {
			img.err = err
			return
		}
		if len(data) == 0 {
			img.err = errors.New("image is empty: " + img.Path)
			return
		}
		img.data = data
		img.encoded = base64.StdEncoding.EncodeToString(data)
		if img.MediaType == "" {
			img.MediaType = mediaTypeFor(img.Path)
		}
	})
}

// Bytes returns the raw image bytes and media type.
func (img *Image) Bytes() ([]byte, string, error) {
	img.load()
	return img.data, img.MediaType, img.err
}

// Base64 returns the standard base64 encoding of the image and its media type.
func (img *Image) Base64() (string, string, error) {
	img.load()
	return img.encoded, img.MediaType, img.err
}

func mediaTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	}
	if mt := mime.TypeByExtension(ext); strings.HasPrefix(mt, "image/") {
		return mt
	}
	return "image/jpeg"
}

// ImagePayload is the image attachment of one request: none, a single
// uncaptioned image, or an ordered list of captioned images.
type ImagePayload struct {
	Kind   ImageKind
	Images []*Image
}

// NoImages returns an empty payload.
func NoImages() ImagePayload { return ImagePayload{Kind: ImagesNone} }

// SingleImage returns a payload holding exactly one image.
func SingleImage(img *Image) ImagePayload {
	if img == nil {
		return NoImages()
	}
	return ImagePayload{Kind: ImagesSingle, Images: []*Image{img}}
}

// ImageList returns a payload of captioned images in order.
func ImageList(imgs ...*Image) ImagePayload {
	if len(imgs) == 0 {
		return NoImages()
	}
	return ImagePayload{Kind: ImagesList, Images: imgs}
}

// Empty reports whether the payload carries no images.
func (p ImagePayload) Empty() bool {
	return p.Kind == ImagesNone || len(p.Images) == 0
}

// JobRequest is the provider-independent description of one LLM call.
type JobRequest struct {
	Engine           string        `json:"engine"`
	SystemPrompt     string        `json:"system_prompt"`
	UserPrompt       string        `json:"user_prompt"`
	Temperature      float64       `json:"temperature"`
	Images           ImagePayload  `json:"-"`
	Text             string        `json:"text"`
	ValidationMarker string        `json:"validation_marker,omitempty"`
	RowIndex         int           `json:"row_index"`
	Classification   string        `json:"classification,omitempty"`
	RequiredFields   []string      `json:"required_fields,omitempty"`
	MaxTokens        int           `json:"max_tokens,omitempty"` // 0 = family default
	Timeout          time.Duration `json:"timeout,omitempty"`
}

// Prompt renders the user template with the request text substituted.
func (r JobRequest) Prompt() string {
	if strings.Contains(r.UserPrompt, TextPlaceholder) {
		return strings.ReplaceAll(r.UserPrompt, TextPlaceholder, r.Text)
	}
	if r.Text == "" {
		return r.UserPrompt
	}
	if r.UserPrompt == "" {
		return r.Text
	}
	return r.UserPrompt + "\n\n" + r.Text
}

// Classify returns the explicit classification or one inferred from the prompt.
func (r JobRequest) Classify() string {
	if r.Classification != "" {
		return r.Classification
	}
	return InferClassification(r.UserPrompt)
}

// JobResult is the outcome of Execute. Exactly one of Text or Err is set.
type JobResult struct {
	Text      string `json:"text,omitempty"`
	RowIndex  int    `json:"row_index"`
	Err       error  `json:"-"`
	Attempts  int    `json:"attempts"`
	RequestID string `json:"request_id"`
}

// Failed reports whether the result is an error sentinel.
func (r JobResult) Failed() bool { return r.Err != nil }

// Credentials are the provider API keys. They are read-only after a
// client is built and never appear in logs.
type Credentials struct {
	OpenAI    string
	Gemini    string
	Anthropic string
}

func (c Credentials) String() string { return "Credentials{redacted}" }

// LogValue keeps keys out of structured logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("openai", c.OpenAI != ""),
		slog.Bool("gemini", c.Gemini != ""),
		slog.Bool("anthropic", c.Anthropic != ""),
	)
}
