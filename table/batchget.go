package table

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/weave/internal/coalescer"
	"github.com/jacentio/weave/model"
	"github.com/jacentio/weave/ops"
	"github.com/jacentio/weave/weaveerr"
)

// rawBatchGet issues one BatchGetItem call for keys (at most 100, enforced
// by callers) and reports items found and keys the store left unprocessed.
func (c *Client) rawBatchGet(ctx context.Context, keys []coalescer.Key, consistentRead bool) (map[coalescer.Key]any, []coalescer.Key, error) {
	if len(keys) == 0 {
		return nil, nil, nil
	}
	reqKeys := make([]map[string]types.AttributeValue, len(keys))
	for i, k := range keys {
		reqKeys[i] = keyAV(ops.Key{PK: k.PK, SK: k.SK})
	}

	out, err := c.api.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
		RequestItems: map[string]types.KeysAndAttributes{
			c.config.TableName: {
				Keys:           reqKeys,
				ConsistentRead: aws.Bool(consistentRead),
			},
		},
	})
	if err != nil {
		return nil, nil, weaveerr.NewTransportError("batchGet", err)
	}

	found := make(map[coalescer.Key]any, len(out.Responses[c.config.TableName]))
	for _, item := range out.Responses[c.config.TableName] {
		raw, err := fromAV(item)
		if err != nil {
			return nil, nil, weaveerr.NewTransportError("batchGet", err)
		}
		pk, _ := raw["PK"].(string)
		sk, _ := raw["SK"].(string)
		found[coalescer.Key{PK: pk, SK: sk}] = raw
	}

	var unprocessed []coalescer.Key
	if ku, ok := out.UnprocessedKeys[c.config.TableName]; ok {
		for _, k := range ku.Keys {
			pk, _ := stringFromAV(k["PK"])
			sk, _ := stringFromAV(k["SK"])
			unprocessed = append(unprocessed, coalescer.Key{PK: pk, SK: sk})
		}
	}
	return found, unprocessed, nil
}

// BatchGetOptions configures BatchGet's handling of missing rows.
type BatchGetOptions struct {
	// IndividualErrors returns weaveerr.ErrItemNotFound in place of a
	// missing entry instead of failing the whole call.
	IndividualErrors bool
}

// BatchGetResult is either a decoded instance or, with
// BatchGetOptions.IndividualErrors, a per-entry error.
type BatchGetResult struct {
	Instance model.AnyInstance
	Err      error
}

// BatchGet resolves up to 100 distinct keys named by gets in one logical
// call. Multiple names may share a key (they resolve to the same value);
// ConsistentRead is the OR of every requesting op's flag. In default mode a
// single missing row fails the whole call with weaveerr.ErrItemNotFound; with
// opts.IndividualErrors, only that entry carries the error.
func (c *Client) BatchGet(ctx context.Context, gets map[string]ops.Get, opts BatchGetOptions) (map[string]BatchGetResult, error) {
	type group struct {
		key            ops.Key
		names          []string
		models         map[string]model.AnyModel
		consistentRead bool
	}

	byKey := make(map[ops.Key]*group)
	for name, op := range gets {
		g, ok := byKey[op.Key]
		if !ok {
			g = &group{key: op.Key, models: make(map[string]model.AnyModel)}
			byKey[op.Key] = g
		}
		g.names = append(g.names, name)
		g.models[name] = op.Model
		g.consistentRead = g.consistentRead || op.ConsistentRead
	}

	consistentRead := false
	keys := make([]coalescer.Key, 0, len(byKey))
	for k, g := range byKey {
		consistentRead = consistentRead || g.consistentRead
		keys = append(keys, coalescer.Key{PK: k.PK, SK: k.SK})
	}

	fetchFn := func(ctx context.Context, ks []coalescer.Key) (map[coalescer.Key]any, []coalescer.Key, error) {
		return c.rawBatchGet(ctx, ks, consistentRead)
	}
	found, err := coalescer.FetchAll(ctx, keys, fetchFn, c.config.MaxBatchGetKeys)
	if err != nil {
		return nil, err
	}

	results := make(map[string]BatchGetResult, len(gets))
	var missingWhole bool
	for k, g := range byKey {
		raw, ok := found[coalescer.Key{PK: k.PK, SK: k.SK}]
		for _, name := range g.names {
			if !ok {
				if opts.IndividualErrors {
					results[name] = BatchGetResult{Err: weaveerr.ErrItemNotFound}
					continue
				}
				missingWhole = true
				continue
			}
			inst, decErr := g.models[name].DecodeAny(raw.(map[string]any))
			results[name] = BatchGetResult{Instance: inst, Err: decErr}
		}
	}
	if missingWhole && !opts.IndividualErrors {
		return nil, weaveerr.ErrItemNotFound
	}
	return results, nil
}
