package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks YAML for .yaml and .yml files and JSON otherwise.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and validates the specification document at path.
func Load(path string) (*TableSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read specification: %w", err)
	}
	spec, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// Parse decodes a document strictly, rejecting unknown fields, and validates it.
func Parse(data []byte, format Format) (*TableSpec, error) {
	var spec TableSpec
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&spec); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, &ValidationError{Field: "schema", Rule: "required"}
			}
			return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
		}
		if dec.More() {
			return nil, fmt.Errorf("%w: trailing data after document", ErrInvalidSpec)
		}
	default:
		return nil, fmt.Errorf("unsupported specification format %q", format)
	}
	if err := Validate(&spec); err != nil {
		return nil, err
	}
	return &spec, nil
}
