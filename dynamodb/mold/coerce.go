package mold

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/acksell/ddbmold/dynamodb/record"
	"github.com/acksell/ddbmold/dynamodb/schema"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	errNotScalar = errors.New("value is not a scalar")
	errNotNumber = errors.New("value is not a decimal number")
)

// CoercionError is returned when a value cannot take the declared type and
// no default is declared to stand in for it.
type CoercionError struct {
	Field string
	Want  schema.AttrType
	Value types.AttributeValue
	Err   error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("field %q: cannot coerce %s to %s: %v", e.Field, describe(e.Value), e.Want, e.Err)
}

func (e *CoercionError) Unwrap() error {
	return e.Err
}

type coerceFunc func(types.AttributeValue) (types.AttributeValue, error)

// transformFunc converts a value to a declared type. A nil result removes
// the field.
type transformFunc func(types.AttributeValue) (types.AttributeValue, error)

var scalarCoercions = map[schema.AttrType]coerceFunc{
	schema.Number: toNumber,
	schema.String: toString,
}

var transformations = map[schema.AttrType]transformFunc{
	schema.Number:    toNumber,
	schema.String:    toString,
	schema.NumberSet: toSet(schema.Number),
	schema.StringSet: toSet(schema.String),
	schema.Obsolete: func(types.AttributeValue) (types.AttributeValue, error) {
		return nil, nil
	},
}

// toNumber returns numbers in JSON number form so they always archive.
func toNumber(av types.AttributeValue) (types.AttributeValue, error) {
	var text string
	switch v := av.(type) {
	case *types.AttributeValueMemberN:
		text = v.Value
	case *types.AttributeValueMemberS:
		text = v.Value
	default:
		return nil, errNotNumber
	}
	n, ok := record.CanonicalNumber(text)
	if !ok {
		return nil, errNotNumber
	}
	return record.N(n), nil
}

func toString(av types.AttributeValue) (types.AttributeValue, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v, nil
	case *types.AttributeValueMemberN:
		return record.S(v.Value), nil
	case *types.AttributeValueMemberBOOL:
		return record.S(strconv.FormatBool(v.Value)), nil
	default:
		return nil, errNotScalar
	}
}

// toSet coerces every element of a collection to elem and returns the
// matching set type. A string holding a JSON array is parsed first; any
// other scalar is a collection of one.
func toSet(elem schema.AttrType) transformFunc {
	coerce := scalarCoercions[elem]
	return func(av types.AttributeValue) (types.AttributeValue, error) {
		elems, err := elements(av)
		if err != nil {
			return nil, err
		}
		values := make([]string, 0, len(elems))
		for i, el := range elems {
			c, err := coerce(el)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			values = append(values, scalarText(c))
		}
		if len(values) == 0 {
			return nil, nil
		}
		if elem == schema.Number {
			return record.NS(record.SortedNumbers(values)...), nil
		}
		return record.SS(record.SortedStrings(values)...), nil
	}
}

func elements(av types.AttributeValue) ([]types.AttributeValue, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberL:
		return v.Value, nil
	case *types.AttributeValueMemberSS:
		return wrap(v.Value, record.S), nil
	case *types.AttributeValueMemberNS:
		return wrap(v.Value, record.N), nil
	case *types.AttributeValueMemberS:
		if parsed, ok := parseJSONArray(v.Value); ok {
			return parsed, nil
		}
		return []types.AttributeValue{v}, nil
	case *types.AttributeValueMemberN, *types.AttributeValueMemberBOOL:
		return []types.AttributeValue{v}, nil
	default:
		return nil, errNotScalar
	}
}

func wrap(values []string, f func(string) types.AttributeValue) []types.AttributeValue {
	out := make([]types.AttributeValue, len(values))
	for i, v := range values {
		out[i] = f(v)
	}
	return out
}

// parseJSONArray decodes s when it holds a JSON array of scalars.
func parseJSONArray(s string) ([]types.AttributeValue, bool) {
	trimmed := bytes.TrimSpace([]byte(s))
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var arr []any
	if err := dec.Decode(&arr); err != nil || dec.More() {
		return nil, false
	}
	out := make([]types.AttributeValue, 0, len(arr))
	for _, el := range arr {
		switch x := el.(type) {
		case string:
			out = append(out, record.S(x))
		case json.Number:
			out = append(out, record.N(x.String()))
		case bool:
			out = append(out, record.Bool(x))
		default:
			return nil, false
		}
	}
	return out, true
}

// scalarText returns the text of a string or number value.
func scalarText(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}

// fromScalar converts a translation value or default into the declared type.
func fromScalar(t schema.AttrType, s schema.Scalar) types.AttributeValue {
	if t == schema.Number {
		if n, ok := record.CanonicalNumber(s.Text); ok {
			return record.N(n)
		}
		return record.N(s.Text)
	}
	return record.S(s.Text)
}

// sameValue reports whether two values of type t are equal, comparing
// numbers by value.
func sameValue(t schema.AttrType, a, b types.AttributeValue) bool {
	switch t {
	case schema.Number:
		na, okA := a.(*types.AttributeValueMemberN)
		nb, okB := b.(*types.AttributeValueMemberN)
		return okA && okB && record.CompareNumbers(na.Value, nb.Value) == 0
	default:
		sa, okA := a.(*types.AttributeValueMemberS)
		sb, okB := b.(*types.AttributeValueMemberS)
		return okA && okB && sa.Value == sb.Value
	}
}

func describe(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return strconv.Quote(v.Value)
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberBOOL:
		return strconv.FormatBool(v.Value)
	case *types.AttributeValueMemberNULL:
		return "null"
	case *types.AttributeValueMemberB:
		return "binary"
	case *types.AttributeValueMemberSS, *types.AttributeValueMemberNS, *types.AttributeValueMemberBS:
		return "set"
	case *types.AttributeValueMemberL:
		return "list"
	case *types.AttributeValueMemberM:
		return "map"
	}
	return fmt.Sprintf("%T", av)
}
