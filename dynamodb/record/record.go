// Package record holds the item type that flows between tables, and the
// line-delimited JSON form items take in archives.
package record

import (
	"maps"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Record is one item. Numbers stay decimal strings end to end.
type Record = map[string]types.AttributeValue

// Clone returns a shallow copy of r. Attribute values are treated as
// immutable, so sharing them is safe.
func Clone(r Record) Record {
	if r == nil {
		return Record{}
	}
	return maps.Clone(r)
}

// S, N and friends build attribute values tersely.
func S(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func N(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

func B(v []byte) types.AttributeValue { return &types.AttributeValueMemberB{Value: v} }

func Bool(v bool) types.AttributeValue { return &types.AttributeValueMemberBOOL{Value: v} }

func Null() types.AttributeValue { return &types.AttributeValueMemberNULL{Value: true} }

func SS(v ...string) types.AttributeValue { return &types.AttributeValueMemberSS{Value: v} }

func NS(v ...string) types.AttributeValue { return &types.AttributeValueMemberNS{Value: v} }

func L(v ...types.AttributeValue) types.AttributeValue { return &types.AttributeValueMemberL{Value: v} }

func M(v Record) types.AttributeValue { return &types.AttributeValueMemberM{Value: v} }
