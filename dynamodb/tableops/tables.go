// Package tableops is the thin layer over a DynamoDB client that the table
// commands are built on: describe, existence checks, creation, activation
// polling, scanning and conditional or overwriting puts.
package tableops

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/acksell/ddbmold/dynamodb/ddbiface"
	"github.com/acksell/ddbmold/dynamodb/record"
	"github.com/acksell/ddbmold/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
)

// Tables runs table operations against one client in one region.
type Tables struct {
	client ddbiface.Client
	region string
	log    zerolog.Logger
}

func New(client ddbiface.Client, region string, log zerolog.Logger) *Tables {
	return &Tables{client: client, region: region, log: log}
}

// Client returns the underlying client.
func (t *Tables) Client() ddbiface.Client {
	return t.client
}

func (t *Tables) Region() string {
	return t.region
}

// Describe returns the live definition of a table. A missing table yields a
// *TableNotFoundError.
func (t *Tables) Describe(ctx context.Context, name string) (table.TableDefinition, error) {
	out, err := t.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return table.TableDefinition{}, &TableNotFoundError{Table: name, Region: t.region, Err: err}
		}
		return table.TableDefinition{}, fmt.Errorf("describe table %s: %w", name, err)
	}
	if out.Table == nil {
		return table.TableDefinition{}, &TableNotFoundError{Table: name, Region: t.region}
	}
	return table.FromDescription(out.Table), nil
}

// Exists reports whether the table is listed, following every page.
func (t *Tables) Exists(ctx context.Context, name string) (bool, error) {
	p := dynamodb.NewListTablesPaginator(t.client, &dynamodb.ListTablesInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return false, fmt.Errorf("list tables: %w", err)
		}
		if slices.Contains(page.TableNames, name) {
			return true, nil
		}
	}
	return false, nil
}

// Create issues CreateTable for def and returns the reported status.
// An existing table yields ErrTableExists, whether it was seen in the listing
// or reported by the service.
func (t *Tables) Create(ctx context.Context, def table.TableDefinition) (types.TableStatus, error) {
	exists, err := t.Exists(ctx, def.Name)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("table %s: %w", def.Name, ErrTableExists)
	}
	out, err := t.client.CreateTable(ctx, def.CreateTableInput())
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return "", fmt.Errorf("table %s: %w", def.Name, ErrTableExists)
		}
		return "", fmt.Errorf("create table %s: %w", def.Name, err)
	}
	t.log.Info().Str("table", def.Name).Str("status", string(out.TableDescription.TableStatus)).Msg("table created")
	return out.TableDescription.TableStatus, nil
}

// WaitOptions control activation polling.
type WaitOptions struct {
	Interval time.Duration
	// Zero waits indefinitely.
	Timeout time.Duration
	// OnPoll runs before every wait between two polls.
	OnPoll func()
}

// DefaultPollInterval is the time between two status checks.
const DefaultPollInterval = 5 * time.Second

// WaitActive polls the table's status at a constant interval until it is
// ACTIVE. Exceeding the timeout yields ErrWaitTimeout.
func (t *Tables) WaitActive(ctx context.Context, name string, opts WaitOptions) error {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	var deadline <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		def, err := t.Describe(ctx, name)
		if err != nil {
			return err
		}
		if def.Status == types.TableStatusActive {
			return nil
		}
		t.log.Debug().Str("table", name).Str("status", string(def.Status)).Msg("waiting for table")
		if opts.OnPoll != nil {
			opts.OnPoll()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("table %s after %s: %w", name, opts.Timeout, ErrWaitTimeout)
		case <-time.After(interval):
		}
	}
}

// Scan yields every item of the table, fetching pages lazily.
// Iteration stops after the first error.
func (t *Tables) Scan(ctx context.Context, name string) iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		p := dynamodb.NewScanPaginator(t.client, &dynamodb.ScanInput{TableName: aws.String(name)})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				var notFound *types.ResourceNotFoundException
				if errors.As(err, &notFound) {
					err = &TableNotFoundError{Table: name, Region: t.region, Err: err}
				} else {
					err = fmt.Errorf("scan %s: %w", name, err)
				}
				yield(nil, err)
				return
			}
			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Put writes rec to the table. Without overwrite the write only succeeds if
// no item with the same key exists; otherwise ErrItemExists is returned.
func (t *Tables) Put(ctx context.Context, def table.TableDefinition, rec record.Record, overwrite bool) error {
	in := &dynamodb.PutItemInput{
		TableName: aws.String(def.Name),
		Item:      rec,
	}
	if !overwrite {
		expr, err := expression.NewBuilder().
			WithCondition(expression.AttributeNotExists(expression.Name(def.KeyDefinitions.PartitionKey.Name))).
			Build()
		if err != nil {
			return fmt.Errorf("build condition: %w", err)
		}
		in.ConditionExpression = expr.Condition()
		in.ExpressionAttributeNames = expr.Names()
	}
	if _, err := t.client.PutItem(ctx, in); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("put into %s: %w", def.Name, ErrItemExists)
		}
		return fmt.Errorf("put into %s: %w", def.Name, err)
	}
	return nil
}
