package ddbstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// Scan returns a table's items in key order. Limit and ExclusiveStartKey
// paginate like DynamoDB; filters, projections and index scans are not
// supported.
func (s *Store) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	if params.IndexName != nil || params.FilterExpression != nil || params.ProjectionExpression != nil {
		return nil, fmt.Errorf("scan: index, filter and projection are not supported by the local store")
	}

	tabl, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}
	encoder := tabl.encoder()

	var items []map[string]types.AttributeValue
	var lastKey map[string]types.AttributeValue

	limit := 0
	if params.Limit != nil {
		limit = int(*params.Limit)
	}

	prefix := encoder.tablePrefix()

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		if params.ExclusiveStartKey != nil {
			startKey, err := encoder.encodeItemKey(params.ExclusiveStartKey)
			if err != nil {
				return fmt.Errorf("exclusive start key: %w", err)
			}
			it.Seek(startKey)
			if it.Valid() && bytes.Equal(it.Item().Key(), startKey) {
				it.Next()
			}
		} else {
			it.Seek(prefix)
		}

		for ; it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var item map[string]types.AttributeValue
			if err := it.Item().Value(func(val []byte) error {
				var err error
				item, err = DeserializeItem(val)
				return err
			}); err != nil {
				return err
			}

			items = append(items, item)

			if limit > 0 && len(items) >= limit {
				it.Next()
				if it.Valid() {
					lastKey = encoder.keyDefs.KeyAttributes(item)
				}
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	count := int32(len(items))
	return &dynamodb.ScanOutput{
		Items:            items,
		Count:            count,
		ScannedCount:     count,
		LastEvaluatedKey: lastKey,
	}, nil
}
