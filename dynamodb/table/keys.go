package table

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type PrimaryKeyDefinition struct {
	PartitionKey KeyDef
	SortKey      KeyDef // zero value when the table or index has no sort key
}

// HasSortKey reports whether the definition has a second key component.
func (k PrimaryKeyDefinition) HasSortKey() bool {
	return k.SortKey.Name != ""
}

// Names returns the key attribute names, partition key first.
func (k PrimaryKeyDefinition) Names() []string {
	if !k.HasSortKey() {
		return []string{k.PartitionKey.Name}
	}
	return []string{k.PartitionKey.Name, k.SortKey.Name}
}

type KeyDef struct {
	Name string
	Kind KeyKind
}

type KeyKind string

const (
	KeyKindS KeyKind = "S"
	KeyKindN KeyKind = "N"
	KeyKindB KeyKind = "B"
)

// ScalarType returns the control-plane attribute type for the kind.
func (k KeyKind) ScalarType() types.ScalarAttributeType {
	return types.ScalarAttributeType(k)
}

type PrimaryKeyValues struct {
	PartitionKey any
	SortKey      any
}

type PrimaryKey struct {
	Definition PrimaryKeyDefinition
	Values     PrimaryKeyValues
}

func attributeMatchesDefinition(want KeyKind, v types.AttributeValue) error {
	var got KeyKind
	switch v.(type) {
	case *types.AttributeValueMemberS:
		got = KeyKindS
	case *types.AttributeValueMemberN:
		got = KeyKindN
	case *types.AttributeValueMemberB:
		got = KeyKindB
	default:
		return fmt.Errorf("unexpected key attribute type %T", v)
	}
	if got != want {
		return fmt.Errorf("got KeyKind %q want %q", got, want)
	}
	return nil
}
