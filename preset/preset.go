// Package preset holds the named prompt and parameter bundles that turn a
// row of a dataset into a job request.
package preset

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/martinemde/archivist/unifiedllm"
)

// Preset is an immutable bundle of engine, prompts and job parameters.
// Methods take it by value so a Preset can be shared between goroutines.
type Preset struct {
	Name             string        `yaml:"name"`
	Description      string        `yaml:"description,omitempty"`
	Engine           string        `yaml:"engine"`
	SystemPrompt     string        `yaml:"system_prompt"`
	UserPrompt       string        `yaml:"user_prompt"`
	Temperature      float64       `yaml:"temperature"`
	UseImages        bool          `yaml:"use_images"`
	ValidationMarker string        `yaml:"validation_marker,omitempty"`
	Classification   string        `yaml:"classification,omitempty"`
	RequiredFields   []string      `yaml:"required_fields,omitempty"`
	ChunkSize        int           `yaml:"chunk_size,omitempty"`
	MaxTokens        int           `yaml:"max_tokens,omitempty"`
	Timeout          time.Duration `yaml:"timeout,omitempty"`
}

// Validate reports the first problem that would make the preset unusable.
// Problems are configuration errors.
func (p Preset) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return invalid(p, "name is required")
	case strings.TrimSpace(p.UserPrompt) == "":
		return invalid(p, "user_prompt is required")
	case p.Temperature < 0 || p.Temperature > 2:
		return invalid(p, fmt.Sprintf("temperature %.2f out of range [0, 2]", p.Temperature))
	case p.ChunkSize < 0:
		return invalid(p, "chunk_size must not be negative")
	case p.MaxTokens < 0:
		return invalid(p, "max_tokens must not be negative")
	case p.Timeout < 0:
		return invalid(p, "timeout must not be negative")
	}
	if _, err := unifiedllm.FamilyOf(p.Engine); err != nil {
		return invalid(p, err.Error())
	}
	if p.Classification == unifiedllm.ClassificationMetadata && len(p.RequiredFields) == 0 {
		return invalid(p, "metadata presets need required_fields")
	}
	return nil
}

// Request builds the job request for one row. Images are attached only
// when the preset uses them.
func (p Preset) Request(rowIndex int, text string, images unifiedllm.ImagePayload) unifiedllm.JobRequest {
	if !p.UseImages {
		images = unifiedllm.NoImages()
	}
	return unifiedllm.JobRequest{
		Engine:           p.Engine,
		SystemPrompt:     p.SystemPrompt,
		UserPrompt:       p.UserPrompt,
		Temperature:      p.Temperature,
		Images:           images,
		Text:             text,
		ValidationMarker: p.ValidationMarker,
		RowIndex:         rowIndex,
		Classification:   p.Classification,
		RequiredFields:   slices.Clone(p.RequiredFields),
		MaxTokens:        p.MaxTokens,
		Timeout:          p.Timeout,
	}
}

func invalid(p Preset, reason string) error {
	name := p.Name
	if name == "" {
		name = "<unnamed>"
	}
	return &unifiedllm.ConfigurationError{SDKError: unifiedllm.SDKError{
		Message: fmt.Sprintf("preset %s: %s", name, reason),
	}}
}
