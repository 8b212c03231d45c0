package preset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/martinemde/archivist/unifiedllm"
)

// ErrUnknownPreset is returned by Lookup for a name the catalog lacks.
var ErrUnknownPreset = errors.New("unknown preset")

// Catalog is a set of presets keyed by name.
type Catalog struct {
	presets map[string]Preset
}

// file is the on-disk layout of a presets file.
type file struct {
	Presets []Preset `yaml:"presets"`
}

// NewCatalog returns a catalog holding the given presets. Later presets
// replace earlier ones with the same name.
func NewCatalog(presets ...Preset) (*Catalog, error) {
	c := &Catalog{presets: make(map[string]Preset, len(presets))}
	for _, p := range presets {
		if err := c.Add(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Builtin returns a catalog of the default presets.
func Builtin() *Catalog {
	c, err := NewCatalog(defaults...)
	if err != nil {
		panic(err)
	}
	return c
}

// Load returns the built-in catalog overlaid with the presets in path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open presets: %w", err)
	}
	defer f.Close()

	presets, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c := Builtin()
	for _, p := range presets {
		if err := c.Add(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Parse decodes a presets document. Unknown keys are rejected.
func Parse(r io.Reader) ([]Preset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc file
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, &unifiedllm.ConfigurationError{SDKError: unifiedllm.SDKError{
			Message: "decode presets",
			Cause:   err,
		}}
	}
	return doc.Presets, nil
}

// Add validates p and stores it, replacing any preset of the same name.
func (c *Catalog) Add(p Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.presets[p.Name] = p
	return nil
}

// Lookup returns the preset called name.
func (c *Catalog) Lookup(name string) (Preset, error) {
	p, ok := c.presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w %q", ErrUnknownPreset, name)
	}
	return p, nil
}

// Names returns the preset names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.presets))
	for name := range c.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Marshal encodes the catalog as a presets document.
func (c *Catalog) Marshal() ([]byte, error) {
	doc := file{}
	for _, name := range c.Names() {
		doc.Presets = append(doc.Presets, c.presets[name])
	}
	return yaml.Marshal(doc)
}
