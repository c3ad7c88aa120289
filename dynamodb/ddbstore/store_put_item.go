package ddbstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// PutItem creates or replaces an item, honoring existence conditions.
func (s *Store) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	if params.Item == nil {
		return nil, fmt.Errorf("item is required")
	}

	tabl, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}

	key, err := tabl.encoder().encodeItemKey(params.Item)
	if err != nil {
		return nil, err
	}

	itemBytes, err := SerializeItem(params.Item)
	if err != nil {
		return nil, fmt.Errorf("serialize item: %w", err)
	}

	var oldItem map[string]types.AttributeValue

	err = s.db.Update(func(txn *badger.Txn) error {
		existing, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if err := existing.Value(func(val []byte) error {
				oldItem, err = DeserializeItem(val)
				return err
			}); err != nil {
				return err
			}
		}

		if params.ConditionExpression != nil {
			// A missing item is evaluated as an empty document.
			valid, err := evalCondition(aws.ToString(params.ConditionExpression), params.ExpressionAttributeNames, oldItem)
			if err != nil {
				return fmt.Errorf("evaluate condition: %w", err)
			}
			if !valid {
				return conditionFailed()
			}
		}

		return txn.Set(key, itemBytes)
	})
	if err != nil {
		return nil, err
	}

	out := &dynamodb.PutItemOutput{}
	if params.ReturnValues == types.ReturnValueAllOld && oldItem != nil {
		out.Attributes = oldItem
	}
	return out, nil
}
