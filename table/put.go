package table

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/weave/model"
	"github.com/jacentio/weave/ops"
	"github.com/jacentio/weave/weaveerr"
)

// Put writes op.Item's encoded form. The default precondition is
// attribute_not_exists(PK), surfaced as weaveerr.ErrKeyExists on collision;
// IgnoreExistence drops the precondition, and a caller-supplied Condition
// replaces it (its failure then surfaces as
// *weaveerr.ConditionalCheckFailedError instead).
func (c *Client) Put(ctx context.Context, op ops.Put) (model.AnyInstance, error) {
	av, err := toAV(storedItem(op.Item))
	if err != nil {
		return nil, weaveerr.NewTransportError("put", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(c.config.TableName),
		Item:      av,
	}

	condition := "attribute_not_exists(PK)"
	isDefaultCondition := true
	switch {
	case op.Condition != "":
		condition = op.Condition
		isDefaultCondition = false
	case op.IgnoreExistence:
		condition = ""
	}
	if condition != "" {
		input.ConditionExpression = aws.String(condition)
		input.ExpressionAttributeNames = op.Expr.Names
		input.ExpressionAttributeValues = op.Expr.Values
	}

	if _, err := c.api.PutItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			if isDefaultCondition {
				return nil, weaveerr.ErrKeyExists
			}
			return nil, &weaveerr.ConditionalCheckFailedError{Expression: condition, Cause: err}
		}
		return nil, weaveerr.NewTransportError("put", err)
	}
	return op.Item, nil
}
