package tableops

import (
	"context"
	"fmt"
	"maps"
	"math/rand/v2"
	"time"

	"github.com/acksell/ddbmold/dynamodb/ddbiface"
	"github.com/acksell/ddbmold/dynamodb/record"
	"github.com/acksell/ddbmold/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MaxBatchSize is the most requests one BatchWriteItem call accepts.
const MaxBatchSize = 25

// Batcher buffers overwriting puts into one table and writes them with
// BatchWriteItem, retrying unprocessed items with backoff.
type Batcher struct {
	client ddbiface.ItemAPI
	def    table.TableDefinition
	size   int
	opts   batchOpts

	pending []types.WriteRequest
	retries int
}

// NewBatcher returns a batcher flushing every size items, capped at MaxBatchSize.
func NewBatcher(client ddbiface.ItemAPI, def table.TableDefinition, size int, opts ...BatchOption) *Batcher {
	if size <= 0 || size > MaxBatchSize {
		size = MaxBatchSize
	}
	b := &Batcher{client: client, def: def, size: size}
	for _, opt := range opts {
		opt(&b.opts)
	}
	// Default exponential backoff: 50ms base, 2x multiplier, 5s cap, full jitter
	if b.opts.backoff == nil {
		b.opts.backoff = DefaultBackoff
	}
	if b.opts.maxRetries == 0 && b.opts.timeout == 0 {
		b.opts.maxRetries = DefaultMaxRetries
	}
	return b
}

// DefaultMaxRetries bounds retries when neither WithMaxRetries nor
// WithTimeout is given.
const DefaultMaxRetries = 8

// Add queues rec and flushes once the batch is full. A record whose key is
// already queued forces a flush first, since one batch may not name a key twice.
func (b *Batcher) Add(ctx context.Context, rec record.Record) error {
	key := b.def.KeyDefinitions.KeyAttributes(rec)
	for _, req := range b.pending {
		if keysEqual(key, b.def.KeyDefinitions.KeyAttributes(req.PutRequest.Item)) {
			if err := b.Flush(ctx); err != nil {
				return err
			}
			break
		}
	}
	b.pending = append(b.pending, types.WriteRequest{PutRequest: &types.PutRequest{Item: rec}})
	if len(b.pending) >= b.size {
		return b.Flush(ctx)
	}
	return nil
}

// Pending returns the number of queued requests.
func (b *Batcher) Pending() int {
	return len(b.pending)
}

// Retries returns the number of BatchWriteItem calls made so far.
func (b *Batcher) Retries() int {
	return b.retries
}

// exec attempts to write all pending items once.
func (b *Batcher) exec(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}
	res, err := b.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{b.def.Name: b.pending},
	})
	if err != nil {
		return fmt.Errorf("batch write failed: %w", err)
	}
	b.pending = res.UnprocessedItems[b.def.Name]
	b.retries++
	return nil
}

// Flush writes everything queued, retrying until complete or limits exceeded.
func (b *Batcher) Flush(ctx context.Context) error {
	if b.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.timeout)
		defer cancel()
	}
	for attempt := 0; ; attempt++ {
		if err := b.exec(ctx); err != nil {
			return err
		}
		if len(b.pending) == 0 {
			return nil
		}
		if b.opts.maxRetries > 0 && attempt+1 >= b.opts.maxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %d items unprocessed", b.opts.maxRetries, len(b.pending))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.opts.backoff(attempt + 1)):
		}
	}
}

// keysEqual checks if two key maps have the same key attribute values.
func keysEqual(a, b map[string]types.AttributeValue) bool {
	return maps.EqualFunc(a, b, attributeValuesEqual)
}

// attributeValuesEqual compares two key AttributeValues.
func attributeValuesEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		if bv, ok := b.(*types.AttributeValueMemberS); ok {
			return av.Value == bv.Value
		}
	case *types.AttributeValueMemberN:
		if bv, ok := b.(*types.AttributeValueMemberN); ok {
			return record.CompareNumbers(av.Value, bv.Value) == 0
		}
	case *types.AttributeValueMemberB:
		if bv, ok := b.(*types.AttributeValueMemberB); ok {
			return string(av.Value) == string(bv.Value)
		}
	}
	return false
}

type BatchOption func(*batchOpts)

// BackoffFunc returns the duration to wait before retry attempt n.
type BackoffFunc func(attempt int) time.Duration

// WithMaxRetries sets the maximum number of BatchWriteItem calls per flush.
func WithMaxRetries(n int) BatchOption {
	return func(o *batchOpts) {
		o.maxRetries = n
	}
}

// WithTimeout bounds the time one flush may take.
func WithTimeout(d time.Duration) BatchOption {
	return func(o *batchOpts) {
		o.timeout = d
	}
}

// WithCustomBackoff sets a custom backoff function.
func WithCustomBackoff(fn BackoffFunc) BatchOption {
	return func(o *batchOpts) {
		o.backoff = fn
	}
}

// ExponentialBackoff returns a capped exponential backoff with full jitter.
// Wait time is: rand(0, min(cap, base * multiplier^attempt))
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter/
func ExponentialBackoff(base time.Duration, multiplier float64, cap time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		factor := 1.0
		for i := 0; i < attempt; i++ {
			factor *= multiplier
		}
		backoff := time.Duration(float64(base) * factor)
		if backoff > cap {
			backoff = cap
		}
		if backoff <= 0 {
			return 0
		}
		// Full jitter: random duration between 0 and backoff
		return time.Duration(rand.Int64N(int64(backoff)))
	}
}

// DefaultBackoff is [ExponentialBackoff] with 50ms base, 2x multiplier, 5s cap.
var DefaultBackoff = ExponentialBackoff(50*time.Millisecond, 2.0, 5*time.Second)

type batchOpts struct {
	maxRetries int
	timeout    time.Duration
	backoff    BackoffFunc
}
