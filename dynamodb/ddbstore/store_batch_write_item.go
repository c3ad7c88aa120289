package ddbstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// MaxBatchWriteItems is the DynamoDB limit on requests per BatchWriteItem.
const MaxBatchWriteItems = 25

// BatchWriteItem performs multiple put/delete operations in one transaction.
func (s *Store) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	if params.RequestItems == nil {
		return nil, fmt.Errorf("request items is required")
	}
	total := 0
	for _, reqs := range params.RequestItems {
		total += len(reqs)
	}
	if total > MaxBatchWriteItems {
		return nil, fmt.Errorf("too many items in batch: %d > %d", total, MaxBatchWriteItems)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for tableName, writeRequests := range params.RequestItems {
			tabl, err := s.getTable(&tableName)
			if err != nil {
				return err
			}
			encoder := tabl.encoder()

			for _, req := range writeRequests {
				switch {
				case req.PutRequest != nil:
					key, err := encoder.encodeItemKey(req.PutRequest.Item)
					if err != nil {
						return err
					}
					itemBytes, err := SerializeItem(req.PutRequest.Item)
					if err != nil {
						return fmt.Errorf("serialize item: %w", err)
					}
					if err := txn.Set(key, itemBytes); err != nil {
						return err
					}

				case req.DeleteRequest != nil:
					key, err := encoder.encodeItemKey(req.DeleteRequest.Key)
					if err != nil {
						return err
					}
					if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
						return err
					}

				default:
					return fmt.Errorf("empty write request")
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &dynamodb.BatchWriteItemOutput{
		UnprocessedItems: map[string][]types.WriteRequest{},
	}, nil
}
