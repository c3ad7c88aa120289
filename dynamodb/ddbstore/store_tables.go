package ddbstore

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/acksell/ddbmold/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CreateTable registers a new table. Like DynamoDB it answers CREATING; the
// table is ACTIVE from the next DescribeTable on.
func (s *Store) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	if aws.ToString(params.TableName) == "" {
		return nil, fmt.Errorf("table name is required")
	}
	if err := validateCreateInput(params); err != nil {
		return nil, err
	}

	def := table.FromDescription(describeInput(params, "", time.Time{}))
	schema, err := s.createTable(def)
	if err != nil {
		return nil, err
	}
	return &dynamodb.CreateTableOutput{
		TableDescription: describeInput(params, types.TableStatusCreating, schema.Created),
	}, nil
}

// DescribeTable returns the table's description.
func (s *Store) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	schema, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{
		Table: describeInput(schema.Definition.CreateTableInput(), types.TableStatusActive, schema.Created),
	}, nil
}

// ListTables returns table names in ascending order, paginated like DynamoDB.
func (s *Store) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	if params == nil {
		params = &dynamodb.ListTablesInput{}
	}
	s.mu.RLock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	s.mu.RUnlock()
	slices.Sort(names)

	if start := aws.ToString(params.ExclusiveStartTableName); start != "" {
		i, found := slices.BinarySearch(names, start)
		if found {
			i++
		}
		names = names[i:]
	}

	out := &dynamodb.ListTablesOutput{}
	limit := int(aws.ToInt32(params.Limit))
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if len(names) > limit {
		names = names[:limit]
		out.LastEvaluatedTableName = aws.String(names[len(names)-1])
	}
	out.TableNames = names
	return out, nil
}

func validateCreateInput(in *dynamodb.CreateTableInput) error {
	defined := make(map[string]bool, len(in.AttributeDefinitions))
	for _, ad := range in.AttributeDefinitions {
		defined[aws.ToString(ad.AttributeName)] = true
	}
	check := func(where string, schema []types.KeySchemaElement) error {
		if len(schema) == 0 || schema[0].KeyType != types.KeyTypeHash {
			return fmt.Errorf("%s: key schema must start with a HASH key", where)
		}
		for _, el := range schema {
			if !defined[aws.ToString(el.AttributeName)] {
				return fmt.Errorf("%s: key attribute %s has no attribute definition", where, aws.ToString(el.AttributeName))
			}
		}
		return nil
	}
	if err := check("table", in.KeySchema); err != nil {
		return err
	}
	for _, lsi := range in.LocalSecondaryIndexes {
		if err := check("index "+aws.ToString(lsi.IndexName), lsi.KeySchema); err != nil {
			return err
		}
	}
	for _, gsi := range in.GlobalSecondaryIndexes {
		if err := check("index "+aws.ToString(gsi.IndexName), gsi.KeySchema); err != nil {
			return err
		}
	}
	return nil
}

// describeInput renders a CreateTable request as the description DynamoDB
// reports for the resulting table.
func describeInput(in *dynamodb.CreateTableInput, status types.TableStatus, created time.Time) *types.TableDescription {
	desc := &types.TableDescription{
		TableName:             in.TableName,
		TableStatus:           status,
		KeySchema:             in.KeySchema,
		AttributeDefinitions:  in.AttributeDefinitions,
		ProvisionedThroughput: throughputDescription(in.ProvisionedThroughput),
		BillingModeSummary: &types.BillingModeSummary{
			BillingMode: in.BillingMode,
		},
	}
	if !created.IsZero() {
		desc.CreationDateTime = aws.Time(created)
	}
	for _, lsi := range in.LocalSecondaryIndexes {
		desc.LocalSecondaryIndexes = append(desc.LocalSecondaryIndexes, types.LocalSecondaryIndexDescription{
			IndexName:  lsi.IndexName,
			KeySchema:  lsi.KeySchema,
			Projection: lsi.Projection,
		})
	}
	for _, gsi := range in.GlobalSecondaryIndexes {
		desc.GlobalSecondaryIndexes = append(desc.GlobalSecondaryIndexes, types.GlobalSecondaryIndexDescription{
			IndexName:             gsi.IndexName,
			KeySchema:             gsi.KeySchema,
			Projection:            gsi.Projection,
			IndexStatus:           types.IndexStatusActive,
			ProvisionedThroughput: throughputDescription(gsi.ProvisionedThroughput),
		})
	}
	return desc
}

func throughputDescription(p *types.ProvisionedThroughput) *types.ProvisionedThroughputDescription {
	if p == nil {
		return &types.ProvisionedThroughputDescription{
			ReadCapacityUnits:  aws.Int64(0),
			WriteCapacityUnits: aws.Int64(0),
		}
	}
	return &types.ProvisionedThroughputDescription{
		ReadCapacityUnits:  p.ReadCapacityUnits,
		WriteCapacityUnits: p.WriteCapacityUnits,
	}
}
