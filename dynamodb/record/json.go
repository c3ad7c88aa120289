package record

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MarshalJSON renders r as a JSON object. Sets become sorted arrays, numbers
// keep their exact decimal text, binary values become base64 strings.
func MarshalJSON(r Record) ([]byte, error) {
	doc, err := toJSONValue(&types.AttributeValueMemberM{Value: r})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func toJSONValue(av types.AttributeValue) (any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value, nil
	case *types.AttributeValueMemberN:
		n, ok := CanonicalNumber(v.Value)
		if !ok {
			return nil, fmt.Errorf("invalid number %q", v.Value)
		}
		return json.Number(n), nil
	case *types.AttributeValueMemberB:
		return base64.StdEncoding.EncodeToString(v.Value), nil
	case *types.AttributeValueMemberBOOL:
		return v.Value, nil
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberSS:
		return SortedStrings(v.Value), nil
	case *types.AttributeValueMemberNS:
		out := make([]json.Number, 0, len(v.Value))
		for _, n := range SortedNumbers(v.Value) {
			c, ok := CanonicalNumber(n)
			if !ok {
				return nil, fmt.Errorf("invalid number %q", n)
			}
			out = append(out, json.Number(c))
		}
		return out, nil
	case *types.AttributeValueMemberBS:
		out := make([]string, 0, len(v.Value))
		for _, b := range SortedBinaries(v.Value) {
			out = append(out, base64.StdEncoding.EncodeToString(b))
		}
		return out, nil
	case *types.AttributeValueMemberL:
		out := make([]any, 0, len(v.Value))
		for i, el := range v.Value {
			j, err := toJSONValue(el)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out = append(out, j)
		}
		return out, nil
	case *types.AttributeValueMemberM:
		out := make(map[string]any, len(v.Value))
		for k, el := range v.Value {
			j, err := toJSONValue(el)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = j
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported attribute value %T", av)
	}
}

// ErrNotObject is returned when a line does not hold a JSON object.
var ErrNotObject = errors.New("record is not a JSON object")

// UnmarshalJSON decodes one JSON object into a record. Numbers keep their
// exact text; arrays become lists, which molding turns into sets.
func UnmarshalJSON(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after record")
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	rec, err := attributevalue.MarshalMap(fromJSONValue(obj))
	if err != nil {
		return nil, fmt.Errorf("convert record: %w", err)
	}
	return rec, nil
}

// fromJSONValue swaps json.Number for attributevalue.Number so numbers are
// marshaled as N rather than S.
func fromJSONValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		return attributevalue.Number(x)
	case []any:
		out := make([]any, len(x))
		for i, el := range x {
			out[i] = fromJSONValue(el)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, el := range x {
			out[k] = fromJSONValue(el)
		}
		return out
	default:
		return v
	}
}
