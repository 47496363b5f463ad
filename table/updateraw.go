package table

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/weave/model"
	"github.com/jacentio/weave/ops"
	"github.com/jacentio/weave/weaveerr"
)

// UpdateRaw applies op.Attributes to the row at op.Key with the default
// precondition attribute_exists(PK). A key absent from op.Attributes is
// left untouched ("undefined values are dropped"); a key present with a nil
// value beginning with "GSI" is removed instead of set. Attribute names and
// values are aliased by expression.Builder, so collisions and reserved
// words never reach the wire as literal identifiers.
//
// Note: this does not recompute an item's derived key attributes even when
// the schema fields they depend on change — a caller who updates a raw
// attribute the model's KeyProvider derives PK/SK from gets a decoded
// instance whose computed keys look correct but a stored row whose actual
// PK/SK are stale. This is preserved intentionally, not a bug.
func (c *Client) UpdateRaw(ctx context.Context, op ops.UpdateRaw) (model.AnyInstance, error) {
	updateExpr, names, values, err := buildUpdateRawExpression(op.Model, op.Attributes)
	if err != nil {
		return nil, weaveerr.NewTransportError("updateRaw", err)
	}

	for k, v := range op.Expr.Names {
		names[k] = v
	}
	for k, v := range op.Expr.Values {
		values[k] = v
	}

	condition := "attribute_exists(PK)"
	isDefaultCondition := true
	if op.Condition != "" {
		condition = op.Condition
		isDefaultCondition = false
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(c.config.TableName),
		Key:                       keyAV(op.Key),
		UpdateExpression:          aws.String(updateExpr),
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	}

	out, err := c.api.UpdateItem(ctx, input)
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			if isDefaultCondition {
				return nil, weaveerr.ErrItemNotFound
			}
			return nil, &weaveerr.ConditionalCheckFailedError{Expression: condition, Cause: err}
		}
		return nil, weaveerr.NewTransportError("updateRaw", err)
	}

	raw, err := fromAV(out.Attributes)
	if err != nil {
		return nil, weaveerr.NewTransportError("updateRaw", err)
	}
	return op.Model.DecodeAny(raw)
}

// buildUpdateRawExpression builds one UPDATE expression for attrs via
// expression.Builder, sorting keys first so the resulting name/value alias
// numbering (and therefore the wire expression) is deterministic across
// calls with the same attrs (TestBuildUpdateRawExpressionRoutesNilGSIToRemove
// inspects the built expression). A nil-valued "GSI*" key becomes
// a REMOVE clause; anything else becomes a SET. An attrs map with nothing to
// apply returns an empty updateExpr and empty (not nil) names/values maps,
// since callers unconditionally merge op.Expr into them.
func buildUpdateRawExpression(m model.AnyModel, attrs map[string]any) (updateExpr string, names map[string]string, values map[string]types.AttributeValue, err error) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var update expression.UpdateBuilder
	for _, key := range keys {
		val := attrs[key]
		if val == nil && strings.HasPrefix(key, "GSI") {
			update = update.Remove(expression.Name(key))
			continue
		}
		update = update.Set(expression.Name(key), expression.Value(m.EncodeProp(key, val)))
	}

	if len(keys) == 0 {
		return "", map[string]string{}, map[string]types.AttributeValue{}, nil
	}

	built, buildErr := expression.NewBuilder().WithUpdate(update).Build()
	if buildErr != nil {
		return "", nil, nil, buildErr
	}

	names = built.Names()
	if names == nil {
		names = map[string]string{}
	}
	values = built.Values()
	if values == nil {
		values = map[string]types.AttributeValue{}
	}
	return aws.ToString(built.Update()), names, values, nil
}
