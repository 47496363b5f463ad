package table

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/weave/codec"
	"github.com/jacentio/weave/model"
	"github.com/jacentio/weave/ops"
	"github.com/jacentio/weave/weaveerr"
)

// Update applies attrs on top of item's current values and writes the
// result with optimistic concurrency, per §4.4.4. When the new attributes
// leave PK/SK unchanged this is a single conditional put; when they change
// either key attribute it becomes a two-step Bulk (put the new row, then
// delete the old one) with compensating rollback if either half fails.
//
// This is a free function rather than a Client method because it needs
// T to rebuild a typed post-image via item.Model().FromValues — Client
// itself stays non-generic so one Client can back many models.
func Update[T any](ctx context.Context, c *Client, item *model.Instance[T], attrs codec.RawObject) (*model.Instance[T], error) {
	merged := item.Values()
	for k, v := range attrs {
		merged[k] = v
	}

	updated, err := item.Model().FromValues(merged, item.DocVersion()+1)
	if err != nil {
		return nil, err
	}

	if updated.Keys().PK == item.Keys().PK && updated.Keys().SK == item.Keys().SK {
		return updateInPlace(ctx, c, item, updated)
	}
	return updateWithKeyChange(ctx, c, item, updated)
}

// updateInPlace issues a single conditional put guarded by the optimistic-
// concurrency expression from §4.4.4: the version either doesn't exist yet
// or matches the pre-image's version exactly.
func updateInPlace[T any](ctx context.Context, c *Client, pre, post *model.Instance[T]) (*model.Instance[T], error) {
	av, err := toAV(storedItem(post))
	if err != nil {
		return nil, weaveerr.NewTransportError("update", err)
	}
	prevVersionAV, err := attributevalue.Marshal(pre.DocVersion())
	if err != nil {
		return nil, weaveerr.NewTransportError("update", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(c.config.TableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(_docVersion) OR _docVersion = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": prevVersionAV,
		},
	}

	if _, err := c.api.PutItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, weaveerr.ErrRaceCondition
		}
		return nil, weaveerr.NewTransportError("update", err)
	}
	return post, nil
}

// updateWithKeyChange handles the case where the new attributes moved
// PK or SK: a two-step Bulk that puts the new row and deletes the old one,
// with rollback restoring whichever half already committed.
func updateWithKeyChange[T any](ctx context.Context, c *Client, pre, post *model.Instance[T]) (*model.Instance[T], error) {
	putNew := ops.Put{Model: post.Model(), Item: post}
	rollbackDeleteNew := ops.Delete{Model: post.Model(), Key: ops.Key{PK: post.Keys().PK, SK: post.Keys().SK}}
	deleteOld := ops.Delete{Model: pre.Model(), Key: ops.Key{PK: pre.Keys().PK, SK: pre.Keys().SK}}
	rollbackPutOld := ops.Put{Model: pre.Model(), Item: pre, IgnoreExistence: true}

	result := c.Bulk(ctx, []ops.TransactionOp{
		{Action: putNew, Rollback: rollbackDeleteNew},
		{Action: deleteOld, Rollback: rollbackPutOld},
	})
	if result.Err != nil {
		return nil, result.Err
	}
	return post, nil
}
