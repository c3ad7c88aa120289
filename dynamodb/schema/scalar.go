package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/acksell/ddbmold/dynamodb/record"
	"gopkg.in/yaml.v3"
)

// Scalar is a translation value or default: a JSON string or number.
// Text holds the value exactly as written for numbers, so no precision is lost.
type Scalar struct {
	Text    string
	Numeric bool
}

func (s Scalar) String() string {
	return s.Text
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	if s.Numeric {
		return []byte(s.Text), nil
	}
	return json.Marshal(s.Text)
}

func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*s = Scalar{Text: text}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	n, ok := v.(json.Number)
	if !ok {
		return fmt.Errorf("expected a string or number, got %s", data)
	}
	*s = Scalar{Text: n.String(), Numeric: true}
	return nil
}

func (s *Scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a string or number", node.Line)
	}
	switch node.ShortTag() {
	case "!!int":
		text, err := yamlInt(node)
		if err != nil {
			return err
		}
		*s = Scalar{Text: text, Numeric: true}
	case "!!float":
		text, ok := record.CanonicalNumber(node.Value)
		if !ok {
			return fmt.Errorf("line %d: %s is not a decimal number", node.Line, node.Value)
		}
		*s = Scalar{Text: text, Numeric: true}
	case "!!str":
		*s = Scalar{Text: node.Value}
	default:
		return fmt.Errorf("line %d: expected a string or number, got %s", node.Line, node.ShortTag())
	}
	return nil
}

// yamlInt renders a YAML integer, which may be written in hex, octal or
// binary, as a decimal literal.
func yamlInt(node *yaml.Node) (string, error) {
	var i int64
	if err := node.Decode(&i); err == nil {
		return record.FormatNumber(i), nil
	}
	var u uint64
	if err := node.Decode(&u); err != nil {
		return "", fmt.Errorf("line %d: %w", node.Line, err)
	}
	return record.FormatNumber(u), nil
}

// keyFields mirrors Key without its decoding methods.
type keyFields Key

func (k *Key) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*k = Key{Name: name, Type: String}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var kf keyFields
	if err := dec.Decode(&kf); err != nil {
		return err
	}
	*k = Key(kf)
	return nil
}

func (k *Key) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*k = Key{Name: node.Value, Type: String}
		return nil
	case yaml.MappingNode:
		for i := 0; i < len(node.Content); i += 2 {
			switch name := node.Content[i].Value; name {
			case "name", "type":
			default:
				return fmt.Errorf("line %d: field %s not found in type schema.Key", node.Content[i].Line, name)
			}
		}
		var kf keyFields
		if err := node.Decode(&kf); err != nil {
			return err
		}
		*k = Key(kf)
		return nil
	default:
		return fmt.Errorf("line %d: expected a key name or {name, type}", node.Line)
	}
}
