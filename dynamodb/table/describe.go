package table

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// FromDescription converts a DescribeTable response into a TableDefinition.
func FromDescription(desc *types.TableDescription) TableDefinition {
	attrKinds := make(map[string]KeyKind, len(desc.AttributeDefinitions))
	for _, ad := range desc.AttributeDefinitions {
		attrKinds[aws.ToString(ad.AttributeName)] = KeyKind(ad.AttributeType)
	}

	def := TableDefinition{
		Name:           aws.ToString(desc.TableName),
		KeyDefinitions: keysFromSchema(desc.KeySchema, attrKinds),
		Status:         desc.TableStatus,
		Throughput:     throughputFromDescription(desc.ProvisionedThroughput),
	}
	for _, lsi := range desc.LocalSecondaryIndexes {
		def.LSIs = append(def.LSIs, IndexDefinition{
			Name:           aws.ToString(lsi.IndexName),
			KeyDefinitions: keysFromSchema(lsi.KeySchema, attrKinds),
			Projection:     projectionFromDDB(lsi.Projection),
		})
	}
	for _, gsi := range desc.GlobalSecondaryIndexes {
		def.GSIs = append(def.GSIs, IndexDefinition{
			Name:           aws.ToString(gsi.IndexName),
			KeyDefinitions: keysFromSchema(gsi.KeySchema, attrKinds),
			Projection:     projectionFromDDB(gsi.Projection),
			Throughput:     throughputFromDescription(gsi.ProvisionedThroughput),
		})
	}
	return def
}

func keysFromSchema(schema []types.KeySchemaElement, kinds map[string]KeyKind) PrimaryKeyDefinition {
	var k PrimaryKeyDefinition
	for _, el := range schema {
		name := aws.ToString(el.AttributeName)
		kd := KeyDef{Name: name, Kind: kinds[name]}
		switch el.KeyType {
		case types.KeyTypeHash:
			k.PartitionKey = kd
		case types.KeyTypeRange:
			k.SortKey = kd
		}
	}
	return k
}

// On-demand tables report zero capacity units.
func throughputFromDescription(p *types.ProvisionedThroughputDescription) *Throughput {
	if p == nil {
		return nil
	}
	read, write := aws.ToInt64(p.ReadCapacityUnits), aws.ToInt64(p.WriteCapacityUnits)
	if read == 0 && write == 0 {
		return nil
	}
	return &Throughput{Read: read, Write: write}
}

// CreateTableInput builds the CreateTable request for the definition.
// Tables without throughput are created with on-demand billing; global
// indexes without their own throughput inherit the table's.
func (t TableDefinition) CreateTableInput() *dynamodb.CreateTableInput {
	attrs := &attributeSet{}
	in := &dynamodb.CreateTableInput{
		TableName: aws.String(t.Name),
		KeySchema: keySchema(t.KeyDefinitions, attrs),
	}
	if t.Throughput != nil {
		in.BillingMode = types.BillingModeProvisioned
		in.ProvisionedThroughput = t.Throughput.ddb()
	} else {
		in.BillingMode = types.BillingModePayPerRequest
	}
	for _, lsi := range t.LSIs {
		in.LocalSecondaryIndexes = append(in.LocalSecondaryIndexes, types.LocalSecondaryIndex{
			IndexName:  aws.String(lsi.Name),
			KeySchema:  keySchema(lsi.KeyDefinitions, attrs),
			Projection: lsi.Projection.ddb(),
		})
	}
	for _, gsi := range t.GSIs {
		idx := types.GlobalSecondaryIndex{
			IndexName:  aws.String(gsi.Name),
			KeySchema:  keySchema(gsi.KeyDefinitions, attrs),
			Projection: gsi.Projection.ddb(),
		}
		if t.Throughput != nil {
			tp := gsi.Throughput
			if tp == nil {
				tp = t.Throughput
			}
			idx.ProvisionedThroughput = tp.ddb()
		}
		in.GlobalSecondaryIndexes = append(in.GlobalSecondaryIndexes, idx)
	}
	in.AttributeDefinitions = attrs.defs
	return in
}

func (tp Throughput) ddb() *types.ProvisionedThroughput {
	return &types.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(tp.Read),
		WriteCapacityUnits: aws.Int64(tp.Write),
	}
}

func keySchema(k PrimaryKeyDefinition, attrs *attributeSet) []types.KeySchemaElement {
	out := []types.KeySchemaElement{{
		AttributeName: aws.String(k.PartitionKey.Name),
		KeyType:       types.KeyTypeHash,
	}}
	attrs.add(k.PartitionKey)
	if k.HasSortKey() {
		out = append(out, types.KeySchemaElement{
			AttributeName: aws.String(k.SortKey.Name),
			KeyType:       types.KeyTypeRange,
		})
		attrs.add(k.SortKey)
	}
	return out
}

// attributeSet collects attribute definitions in first-seen order.
type attributeSet struct {
	seen map[string]bool
	defs []types.AttributeDefinition
}

func (s *attributeSet) add(k KeyDef) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[k.Name] {
		return
	}
	s.seen[k.Name] = true
	s.defs = append(s.defs, types.AttributeDefinition{
		AttributeName: aws.String(k.Name),
		AttributeType: k.Kind.ScalarType(),
	})
}
