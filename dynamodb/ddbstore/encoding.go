package ddbstore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/acksell/ddbmold/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Key encoding for BadgerDB that supports lexicographic ordering.
// Item key format: [tableName][separator][partitionKey][separator][sortKey]
// Table metadata lives under [separator]meta[separator][tableName], which
// cannot collide with item keys since table names never contain 0x00.

const keySeparator byte = 0x00

var metaPrefix = []byte{keySeparator, 'm', 'e', 't', 'a', keySeparator}

// Key type markers for encoding
const (
	keyTypeString byte = 'S'
	keyTypeNumber byte = 'N'
	keyTypeBinary byte = 'B'
)

func metaKey(tableName string) []byte {
	return append(bytes.Clone(metaPrefix), tableName...)
}

// keyEncoder encodes the primary keys of one table.
type keyEncoder struct {
	tableName string
	keyDefs   table.PrimaryKeyDefinition
}

// tablePrefix returns the prefix shared by every item key in the table.
func (e *keyEncoder) tablePrefix() []byte {
	var buf bytes.Buffer
	buf.WriteString(e.tableName)
	buf.WriteByte(keySeparator)
	return buf.Bytes()
}

// encodeKey encodes a primary key into a BadgerDB key.
func (e *keyEncoder) encodeKey(pk table.PrimaryKey) ([]byte, error) {
	buf := bytes.NewBuffer(e.tablePrefix())

	pkBytes, err := encodeKeyValue(pk.Values.PartitionKey, pk.Definition.PartitionKey.Kind)
	if err != nil {
		return nil, fmt.Errorf("encode partition key: %w", err)
	}
	buf.Write(pkBytes)
	buf.WriteByte(keySeparator)

	if pk.Definition.HasSortKey() {
		skBytes, err := encodeKeyValue(pk.Values.SortKey, pk.Definition.SortKey.Kind)
		if err != nil {
			return nil, fmt.Errorf("encode sort key: %w", err)
		}
		buf.Write(skBytes)
	}
	return buf.Bytes(), nil
}

// encodeItemKey extracts and encodes the primary key of an item.
func (e *keyEncoder) encodeItemKey(item map[string]types.AttributeValue) ([]byte, error) {
	pk, err := e.keyDefs.ExtractPrimaryKey(item)
	if err != nil {
		return nil, fmt.Errorf("extract primary key: %w", err)
	}
	return e.encodeKey(pk)
}

// encodeKeyValue encodes a key value with proper ordering based on key kind.
func encodeKeyValue(value any, kind table.KeyKind) ([]byte, error) {
	var buf bytes.Buffer

	switch kind {
	case table.KeyKindS:
		buf.WriteByte(keyTypeString)
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string for S key, got %T", value)
		}
		buf.Write(escapeBytes([]byte(s)))

	case table.KeyKindN:
		buf.WriteByte(keyTypeNumber)
		numStr, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected number for N key, got %T", value)
		}
		encoded, err := encodeNumber(numStr)
		if err != nil {
			return nil, err
		}
		buf.Write(encoded)

	case table.KeyKindB:
		buf.WriteByte(keyTypeBinary)
		b, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("expected binary for B key, got %T", value)
		}
		buf.Write(escapeBytes(b))

	default:
		return nil, fmt.Errorf("unsupported key kind: %s", kind)
	}

	return buf.Bytes(), nil
}

// encodeNumber encodes a number string for lexicographic ordering.
// Format: [sign byte][float64 bytes][canonical decimal]
// The float64 part orders keys; the exact decimal keeps numbers that round to
// the same float distinct, while equal values such as 1 and 1.0 share a key.
func encodeNumber(numStr string) ([]byte, error) {
	r, ok := new(big.Rat).SetString(numStr)
	if !ok {
		return nil, fmt.Errorf("parse number %q", numStr)
	}
	f, err := strconv.ParseFloat(numStr, 64)
	if err != nil && !math.IsInf(f, 0) {
		return nil, fmt.Errorf("parse number %q: %w", numStr, err)
	}

	bits := math.Float64bits(f)
	buf := make([]byte, 9)

	if f >= 0 {
		buf[0] = 0x80
		bits ^= (1 << 63)
	} else {
		buf[0] = 0x7F
		bits = ^bits
	}

	binary.BigEndian.PutUint64(buf[1:], bits)
	return append(buf, escapeBytes([]byte(r.RatString()))...), nil
}

// escapeBytes escapes null bytes (0x00) in the input to preserve separator integrity.
// Uses 0x01 0x01 for literal 0x00, and 0x01 0x02 for literal 0x01.
func escapeBytes(b []byte) []byte {
	var buf bytes.Buffer
	for _, c := range b {
		switch c {
		case 0x00:
			buf.WriteByte(0x01)
			buf.WriteByte(0x01)
		case 0x01:
			buf.WriteByte(0x01)
			buf.WriteByte(0x02)
		default:
			buf.WriteByte(c)
		}
	}
	return buf.Bytes()
}

// Item serialization for BadgerDB values

// SerializeItem serializes a DynamoDB item to bytes for storage.
func SerializeItem(item map[string]types.AttributeValue) ([]byte, error) {
	serializable := make(map[string]serializableAV, len(item))
	for k, v := range item {
		sav, err := toSerializable(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		serializable[k] = sav
	}

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(serializable); err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeItem deserializes bytes back to a DynamoDB item.
func DeserializeItem(data []byte) (map[string]types.AttributeValue, error) {
	var serializable map[string]serializableAV
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&serializable); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}

	result := make(map[string]types.AttributeValue, len(serializable))
	for k, v := range serializable {
		av, err := fromSerializable(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		result[k] = av
	}
	return result, nil
}

// serializableAV is a gob-encodable representation of AttributeValue
type serializableAV struct {
	Type  string
	Value any
}

func init() {
	gob.Register(map[string]serializableAV{})
	gob.Register([]serializableAV{})
	gob.Register([]string{})
	gob.Register([][]byte{})
}

func toSerializable(av types.AttributeValue) (serializableAV, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return serializableAV{Type: "S", Value: v.Value}, nil
	case *types.AttributeValueMemberN:
		return serializableAV{Type: "N", Value: v.Value}, nil
	case *types.AttributeValueMemberB:
		return serializableAV{Type: "B", Value: v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return serializableAV{Type: "BOOL", Value: v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return serializableAV{Type: "NULL", Value: v.Value}, nil
	case *types.AttributeValueMemberSS:
		return serializableAV{Type: "SS", Value: v.Value}, nil
	case *types.AttributeValueMemberNS:
		return serializableAV{Type: "NS", Value: v.Value}, nil
	case *types.AttributeValueMemberBS:
		return serializableAV{Type: "BS", Value: v.Value}, nil
	case *types.AttributeValueMemberM:
		m := make(map[string]serializableAV, len(v.Value))
		for k, val := range v.Value {
			sav, err := toSerializable(val)
			if err != nil {
				return serializableAV{}, err
			}
			m[k] = sav
		}
		return serializableAV{Type: "M", Value: m}, nil
	case *types.AttributeValueMemberL:
		l := make([]serializableAV, len(v.Value))
		for i, val := range v.Value {
			sav, err := toSerializable(val)
			if err != nil {
				return serializableAV{}, err
			}
			l[i] = sav
		}
		return serializableAV{Type: "L", Value: l}, nil
	default:
		return serializableAV{}, fmt.Errorf("unsupported attribute value type: %T", av)
	}
}

func fromSerializable(sav serializableAV) (types.AttributeValue, error) {
	switch sav.Type {
	case "S":
		return &types.AttributeValueMemberS{Value: mustCast[string](sav.Value)}, nil
	case "N":
		return &types.AttributeValueMemberN{Value: mustCast[string](sav.Value)}, nil
	case "B":
		return &types.AttributeValueMemberB{Value: mustCast[[]byte](sav.Value)}, nil
	case "BOOL":
		return &types.AttributeValueMemberBOOL{Value: mustCast[bool](sav.Value)}, nil
	case "NULL":
		return &types.AttributeValueMemberNULL{Value: mustCast[bool](sav.Value)}, nil
	case "SS":
		return &types.AttributeValueMemberSS{Value: mustCast[[]string](sav.Value)}, nil
	case "NS":
		return &types.AttributeValueMemberNS{Value: mustCast[[]string](sav.Value)}, nil
	case "BS":
		return &types.AttributeValueMemberBS{Value: mustCast[[][]byte](sav.Value)}, nil
	case "M":
		src := mustCast[map[string]serializableAV](sav.Value)
		m := make(map[string]types.AttributeValue, len(src))
		for k, v := range src {
			av, err := fromSerializable(v)
			if err != nil {
				return nil, err
			}
			m[k] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case "L":
		src := mustCast[[]serializableAV](sav.Value)
		l := make([]types.AttributeValue, len(src))
		for i, v := range src {
			av, err := fromSerializable(v)
			if err != nil {
				return nil, err
			}
			l[i] = av
		}
		return &types.AttributeValueMemberL{Value: l}, nil
	default:
		return nil, fmt.Errorf("unsupported serializable type: %s", sav.Type)
	}
}
