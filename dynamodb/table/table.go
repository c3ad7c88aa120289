package table

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// TableDefinition is the shape of a table: its keys, secondary indexes and
// provisioning. It is built from a specification before creation and from a
// DescribeTable response when inspecting a live table.
type TableDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
	LSIs           []IndexDefinition
	GSIs           []IndexDefinition
	// Nil means on-demand billing.
	Throughput *Throughput
	Status     types.TableStatus
}

// IndexDefinition represents a local or global secondary index.
// Local indexes share the table's partition key.
type IndexDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
	Projection     Projection
	// Only meaningful for global indexes.
	Throughput *Throughput
}

type Throughput struct {
	Read  int64
	Write int64
}

// LSI returns the local index with the given name.
func (t TableDefinition) LSI(name string) (IndexDefinition, bool) {
	return findIndex(t.LSIs, name)
}

// GSI returns the global index with the given name.
func (t TableDefinition) GSI(name string) (IndexDefinition, bool) {
	return findIndex(t.GSIs, name)
}

func findIndex(indexes []IndexDefinition, name string) (IndexDefinition, bool) {
	for _, idx := range indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return IndexDefinition{}, false
}

// ExtractPrimaryKey extracts the primary key values from a document.
func (k PrimaryKeyDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	part, ok := doc[k.PartitionKey.Name]
	if !ok {
		return PrimaryKey{}, fmt.Errorf("partition key %q not found", k.PartitionKey.Name)
	}
	if err := attributeMatchesDefinition(k.PartitionKey.Kind, part); err != nil {
		return PrimaryKey{}, fmt.Errorf("document key %q kind does not match definition: %w", k.PartitionKey.Name, err)
	}
	pk := PrimaryKey{
		Definition: k,
		Values: PrimaryKeyValues{
			PartitionKey: keyValueFromAV(part),
		},
	}
	if !k.HasSortKey() {
		return pk, nil
	}
	sort, ok := doc[k.SortKey.Name]
	if !ok {
		return PrimaryKey{}, fmt.Errorf("sort key %q not found on document", k.SortKey.Name)
	}
	if err := attributeMatchesDefinition(k.SortKey.Kind, sort); err != nil {
		return PrimaryKey{}, fmt.Errorf("sort key %q kind does not match definition: %w", k.SortKey.Name, err)
	}
	pk.Values.SortKey = keyValueFromAV(sort)
	return pk, nil
}

// KeyAttributes returns the subset of doc holding the key attributes.
func (k PrimaryKeyDefinition) KeyAttributes(doc map[string]types.AttributeValue) map[string]types.AttributeValue {
	result := make(map[string]types.AttributeValue, 2)
	for _, name := range k.Names() {
		if v, ok := doc[name]; ok {
			result[name] = v
		}
	}
	return result
}

func keyValueFromAV(av types.AttributeValue) any {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberB:
		return v.Value
	default:
		panic(fmt.Sprintf("unsupported attribute value %T for dynamodb keys", v))
	}
}
