package table

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/weave/codec"
	"github.com/jacentio/weave/internal/coalescer"
	"github.com/jacentio/weave/model"
	"github.com/jacentio/weave/ops"
	"github.com/jacentio/weave/weaveerr"
)

// Get performs a direct (uncoalesced) point read.
func (c *Client) Get(ctx context.Context, op ops.Get) (model.AnyInstance, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.config.TableName),
		Key:            keyAV(op.Key),
		ConsistentRead: aws.Bool(op.ConsistentRead),
	})
	if err != nil {
		return nil, weaveerr.NewTransportError("get", err)
	}
	if len(out.Item) == 0 {
		return nil, weaveerr.ErrItemNotFound
	}
	raw, err := fromAV(out.Item)
	if err != nil {
		return nil, weaveerr.NewTransportError("get", err)
	}
	return op.Model.DecodeAny(raw)
}

// Load resolves op through the per-tick request coalescer. If allowNull is
// true, a missing row resolves to (nil, nil) rather than
// weaveerr.ErrItemNotFound.
func (c *Client) Load(ctx context.Context, op ops.Get, allowNull bool) (model.AnyInstance, error) {
	raw, found, err := c.coalescer.Load(ctx, coalescer.Key{PK: op.Key.PK, SK: op.Key.SK})
	if err != nil {
		return nil, err
	}
	if !found {
		if allowNull {
			return nil, nil
		}
		return nil, weaveerr.ErrItemNotFound
	}
	return op.Model.DecodeAny(raw.(codec.RawObject))
}

// LoadResult is one entry of a LoadMany call: either a decoded instance (or
// nil, for a null-tolerant miss) or an error.
type LoadResult struct {
	Instance model.AnyInstance
	Err      error
}

// LoadMany resolves every op concurrently through the coalescer, so
// concurrent Load calls issued from one LoadMany collapse into shared
// batches per the coalescing contract.
func (c *Client) LoadMany(ctx context.Context, gets []ops.Get, allowNull bool) []LoadResult {
	results := make([]LoadResult, len(gets))
	var wg sync.WaitGroup
	for i, op := range gets {
		wg.Add(1)
		go func(i int, op ops.Get) {
			defer wg.Done()
			inst, err := c.Load(ctx, op, allowNull)
			results[i] = LoadResult{Instance: inst, Err: err}
		}(i, op)
	}
	wg.Wait()
	return results
}
