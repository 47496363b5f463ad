package table

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/weave/model"
	"github.com/jacentio/weave/ops"
	"github.com/jacentio/weave/weaveerr"
)

// Delete unconditionally removes the row at op.Key.
func (c *Client) Delete(ctx context.Context, op ops.Delete) error {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.config.TableName),
		Key:       keyAV(op.Key),
	})
	if err != nil {
		return weaveerr.NewTransportError("delete", err)
	}
	return nil
}

// SoftDelete rewrites item in place under `$$DELETED$$`-prefixed keys and a
// `_deletedAt` timestamp, as a two-step Bulk: delete the live row, then put
// its soft-deleted form. Calling SoftDelete twice on the same item fails the
// second time with *weaveerr.BulkWriteTransactionError: both operations go
// into one transaction, and while the delete of the now-absent live row is
// unconditional, the put's default attribute_not_exists(PK) precondition
// collides with the row already written by the first call.
func SoftDelete[T any](ctx context.Context, c *Client, item *model.Instance[T]) (*model.Instance[T], error) {
	deletedAt := time.Now().UTC().Format(time.RFC3339)
	softDeleted := item.SoftDeleted(deletedAt)

	deleteOriginal := ops.Delete{Model: item.Model(), Key: ops.Key{PK: item.Keys().PK, SK: item.Keys().SK}}
	putSoftDeleted := ops.Put{Model: softDeleted.Model(), Item: softDeleted, SoftDelete: true}

	result := c.Bulk(ctx, []ops.TransactionOp{
		{Action: deleteOriginal},
		{Action: putSoftDeleted},
	})
	if result.Err != nil {
		return nil, result.Err
	}
	return softDeleted, nil
}
