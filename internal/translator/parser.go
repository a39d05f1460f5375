package translator

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/kstack-dev/kstack/internal/utils/logger"
)

// Parser turns raw descriptor bytes into a yaml.Node tree. Decoding into the
// typed model is the validator's job so that shape errors can be collected
// with document paths instead of failing on the first bad field.
type Parser interface {
	Parse(data []byte) (*yaml.Node, error)
	ParseReader(r io.Reader) (*yaml.Node, error)
}

// YAMLParser parses YAML stack files. JSON files go through the same path
// since YAML is a superset of JSON.
type YAMLParser struct{}

// Parse parses the input into the document's root mapping node.
func (p *YAMLParser) Parse(data []byte) (*yaml.Node, error) {
	logger.Debug("Parsing stack file")

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse stack file: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("stack file is empty")
	}
	return doc.Content[0], nil
}

// ParseReader parses a stack file from an io.Reader.
func (p *YAMLParser) ParseReader(r io.Reader) (*yaml.Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return p.Parse(data)
}
