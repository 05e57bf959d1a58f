package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/clinical-rosetta/internal/model"
)

// FileSource reads a catalog from a YAML file. JSON files are accepted as
// the YAML subset they are.
//
//	concepts:
//	  - identifier: 1558-6
//	    names: [Fasting glucose [Mass/volume] in Serum or Plasma]
//	    synonyms: [fasting glucose, glucose fasting]
//	mappings:
//	  - source_text: GLUF
//	    identifier: 1558-6
//	    source_system: Epic
type FileSource struct {
	Path string
}

// NewFileSource creates a file catalog source
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load reads and parses the file
func (s *FileSource) Load(ctx context.Context) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, model.Unavailable("reading catalog "+s.Path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML or JSON catalog document
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	c.Mappings = normalizeMappings(c.Mappings)
	return &c, nil
}
