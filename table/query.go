package table

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/weave/codec"
	"github.com/jacentio/weave/model"
	"github.com/jacentio/weave/weaveerr"
)

// legacyFilterName/legacyFilterAttr implement the implicit
// attribute_not_exists(dynamotorLegacy) filter every query carries — kept
// as a literal legacy-attribute name, matching the wire contract exactly
// rather than making it configurable.
const (
	legacyFilterName = "#weaveLegacy"
	legacyFilterAttr = "dynamotorLegacy"
)

// mergeExprNames and mergeExprValues combine a caller-supplied expression
// attribute map with engine-owned entries, grounded on
// jacentio-trellis/store/ttl.go's mergeExprNames/mergeExprValues (the only
// part of that file's TTL filtering kept — the TTL-specific predicates
// themselves are dropped, since weave's soft delete does not use a
// DynamoDB TTL attribute).
func mergeExprNames(caller, extra map[string]string) map[string]string {
	out := make(map[string]string, len(caller)+len(extra))
	for k, v := range caller {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func mergeExprValues(caller, extra map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(caller)+len(extra))
	for k, v := range caller {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// QueryTarget names one model candidate for row routing, in the
// declaration order §4.4.6 requires ("try each model in declaration order").
// Model must satisfy model.AnyModel; a *model.Union does not, so a union
// cannot be used as a target.
type QueryTarget struct {
	Name string
	Model model.AnyModel
}

// QueryInput describes one query call.
type QueryInput struct {
	IndexName                 string
	KeyConditionExpression    string
	FilterExpression          string
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues map[string]types.AttributeValue
	Limit                     int32
	ScanIndexForward          bool
	ExclusiveStartKey         map[string]types.AttributeValue
	FetchAllPages             bool
}

// QueryResult groups decoded rows by target name, with any row matching no
// target collected into Unknown, plus the final page's continuation key.
type QueryResult struct {
	Buckets          map[string][]model.AnyInstance
	Unknown          []codec.RawObject
	LastEvaluatedKey map[string]types.AttributeValue
}

// Query runs a key-condition query, decoding each returned row through
// targets in declaration order and grouping the results. It applies the
// implicit filter attribute_not_exists(dynamotorLegacy) to every call, and
// follows LastEvaluatedKey to exhaustion when in.FetchAllPages is set.
// Grounded on jacentio-trellis/store/store.go's Store.Query, which drives
// dynamodb.NewQueryPaginator the same way; weave loops on
// LastEvaluatedKey directly instead of using the SDK paginator so it can
// stop after one page when FetchAllPages is false.
func (c *Client) Query(ctx context.Context, in QueryInput, targets []QueryTarget) (*QueryResult, error) {
	names := mergeExprNames(in.ExpressionAttributeNames, map[string]string{legacyFilterName: legacyFilterAttr})
	values := in.ExpressionAttributeValues

	filter := fmt.Sprintf("attribute_not_exists(%s)", legacyFilterName)
	if in.FilterExpression != "" {
		filter = fmt.Sprintf("(%s) AND %s", in.FilterExpression, filter)
	}

	result := &QueryResult{Buckets: make(map[string][]model.AnyInstance, len(targets))}
	startKey := in.ExclusiveStartKey

	for {
		input := &dynamodb.QueryInput{
			TableName:                 aws.String(c.config.TableName),
			KeyConditionExpression:    aws.String(in.KeyConditionExpression),
			FilterExpression:          aws.String(filter),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
			ScanIndexForward:          aws.Bool(in.ScanIndexForward),
			ExclusiveStartKey:         startKey,
		}
		if in.IndexName != "" {
			input.IndexName = aws.String(in.IndexName)
		}
		if in.Limit > 0 {
			input.Limit = aws.Int32(in.Limit)
		}

		out, err := c.api.Query(ctx, input)
		if err != nil {
			return nil, weaveerr.NewTransportError("query", err)
		}

		for _, item := range out.Items {
			raw, err := fromAV(item)
			if err != nil {
				return nil, weaveerr.NewTransportError("query", err)
			}
			routed := false
			for _, t := range targets {
				if inst, decErr := t.Model.DecodeAny(raw); decErr == nil {
					result.Buckets[t.Name] = append(result.Buckets[t.Name], inst)
					routed = true
					break
				}
			}
			if !routed {
				result.Unknown = append(result.Unknown, raw)
			}
		}

		result.LastEvaluatedKey = out.LastEvaluatedKey
		startKey = out.LastEvaluatedKey
		if !in.FetchAllPages || len(startKey) == 0 {
			break
		}
	}

	return result, nil
}
