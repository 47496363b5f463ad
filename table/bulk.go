package table

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/weave/ops"
	"github.com/jacentio/weave/weaveerr"
)

// bulkState names the transaction engine's explicit state machine:
// INITIAL -> WRITING -> [DONE | ROLLBACK -> ROLLBACK_DONE | ROLLBACK_FAILED].
// It is tracked for observability (exposed via BulkResult.State); the
// control flow itself is driven by ordinary Go control structures, not a
// table-driven dispatcher, since every transition here is linear.
type bulkState int

const (
	bulkInitial bulkState = iota
	bulkWriting
	bulkDone
	bulkRollback
	bulkRollbackDone
	bulkRollbackFailed
)

func (s bulkState) String() string {
	switch s {
	case bulkInitial:
		return "INITIAL"
	case bulkWriting:
		return "WRITING"
	case bulkDone:
		return "DONE"
	case bulkRollback:
		return "ROLLBACK"
	case bulkRollbackDone:
		return "ROLLBACK_DONE"
	case bulkRollbackFailed:
		return "ROLLBACK_FAILED"
	default:
		return "UNKNOWN"
	}
}

// BulkResult reports the terminal state a Bulk call reached, alongside its
// error (nil only when State is bulkDone).
type BulkResult struct {
	State bulkState
	Err   error
}

// Bulk executes items as one logical atomic group: chunked into native
// transactions of at most 25, with compensating rollback if a later chunk
// fails after an earlier one committed. Grounded on
// jacentio-trellis/store/store.go's Store.Create, which assembles
// TransactWriteItems and maps TransactionCanceledException.CancellationReasons
// back to specific failures — generalized here from one fixed set of
// items (parent check + unique constraints + entity put) to an arbitrary
// caller-supplied sequence.
func (c *Client) Bulk(ctx context.Context, items []ops.TransactionOp) BulkResult {
	if len(items) == 0 {
		return BulkResult{State: bulkDone}
	}

	indexed := make([]indexedOp, len(items))
	for i, op := range items {
		indexed[i] = indexedOp{origIndex: i, op: op}
	}
	chunks := chunkIndexedOps(indexed, c.config.MaxTransactItems)
	var successful [][]indexedOp
	state := bulkInitial

	for i, chunk := range chunks {
		state = bulkWriting
		err := c.execTransactChunk(ctx, plainOps(chunk))
		if err == nil {
			successful = append(successful, chunk)
			continue
		}

		finalErr := classifyBulkError(i, err)
		if len(successful) == 0 {
			return BulkResult{State: state, Err: finalErr}
		}

		state = bulkRollback
		if rbErr := c.rollbackChunks(ctx, successful); rbErr != nil {
			return BulkResult{State: bulkRollbackFailed, Err: rbErr}
		}
		return BulkResult{State: bulkRollbackDone, Err: finalErr}
	}

	state = bulkDone
	return BulkResult{State: state}
}

// indexedOp pairs a TransactionOp with its position in the caller's
// original items slice, so a rollback failure can report which specific
// submitted operations still require compensation rather than a bare count.
type indexedOp struct {
	origIndex int
	op        ops.TransactionOp
}

func plainOps(chunk []indexedOp) []ops.TransactionOp {
	out := make([]ops.TransactionOp, len(chunk))
	for i, item := range chunk {
		out[i] = item.op
	}
	return out
}

func classifyBulkError(chunkIndex int, err error) error {
	var cancelErr *types.TransactionCanceledException
	if errors.As(err, &cancelErr) {
		return &weaveerr.BulkWriteTransactionError{ChunkIndex: chunkIndex, Cause: err}
	}
	return err
}

// execTransactChunk issues one transactWrite for chunk, making up to
// config.RetryAttempts attempts in total with config.RetryDelay between
// them, retrying for non-cancellation errors only. A
// deterministic TransactionCanceledException is returned immediately so the
// caller can classify it without further retries.
func (c *Client) execTransactChunk(ctx context.Context, chunk []ops.TransactionOp) error {
	items := make([]types.TransactWriteItem, len(chunk))
	for i, top := range chunk {
		item, err := c.toTransactItem(top.Action)
		if err != nil {
			return err
		}
		items[i] = item
	}

	var lastErr error
	for attempt := 0; attempt < c.config.RetryAttempts; attempt++ {
		_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items,
		})
		if err == nil {
			return nil
		}
		var cancelErr *types.TransactionCanceledException
		if errors.As(err, &cancelErr) {
			return err
		}
		lastErr = err
		time.Sleep(c.config.RetryDelay)
	}
	return weaveerr.NewTransportError("bulk", lastErr)
}

// rollbackChunks compensates every successful chunk's rollback-bearing
// operations, re-chunked to ≤MaxTransactItems and executed via the same
// execTransactChunk path. Plain WriteActions without a rollback are simply
// skipped. A compensation chunk that itself fails reports the original
// Bulk-call indices of every operation still needing manual compensation,
// per weaveerr.BulkWriteRollbackError's contract.
func (c *Client) rollbackChunks(ctx context.Context, successful [][]indexedOp) error {
	var compensations []indexedOp
	for _, chunk := range successful {
		for _, top := range chunk {
			if top.op.Rollback != nil {
				compensations = append(compensations, indexedOp{
					origIndex: top.origIndex,
					op:        ops.TransactionOp{Action: top.op.Rollback},
				})
			}
		}
	}
	if len(compensations) == 0 {
		return nil
	}

	rbChunks := chunkIndexedOps(compensations, c.config.MaxTransactItems)
	for i, rc := range rbChunks {
		if err := c.execTransactChunk(ctx, plainOps(rc)); err != nil {
			var pending []int
			for _, remaining := range rbChunks[i:] {
				for _, comp := range remaining {
					pending = append(pending, comp.origIndex)
				}
			}
			return &weaveerr.BulkWriteRollbackError{
				Pending: pending,
				Cause:   err,
			}
		}
	}
	return nil
}

func chunkIndexedOps(items []indexedOp, size int) [][]indexedOp {
	var chunks [][]indexedOp
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// toTransactItem maps one write action to its native transact item.
func (c *Client) toTransactItem(a ops.WriteAction) (types.TransactWriteItem, error) {
	switch v := a.(type) {
	case ops.Put:
		av, err := toAV(storedItem(v.Item))
		if err != nil {
			return types.TransactWriteItem{}, fmt.Errorf("table: bulk put: %w", err)
		}
		put := &types.Put{
			TableName: aws.String(c.config.TableName),
			Item:      av,
		}
		condition := "attribute_not_exists(PK)"
		switch {
		case v.Condition != "":
			condition = v.Condition
		case v.IgnoreExistence:
			condition = ""
		}
		if condition != "" {
			put.ConditionExpression = aws.String(condition)
			put.ExpressionAttributeNames = v.Expr.Names
			put.ExpressionAttributeValues = v.Expr.Values
		}
		return types.TransactWriteItem{Put: put}, nil

	case ops.UpdateRaw:
		updateExpr, names, values, err := buildUpdateRawExpression(v.Model, v.Attributes)
		if err != nil {
			return types.TransactWriteItem{}, fmt.Errorf("table: bulk updateRaw: %w", err)
		}
		condition := "attribute_exists(PK)"
		if v.Condition != "" {
			condition = v.Condition
		}
		for k, val := range v.Expr.Names {
			names[k] = val
		}
		for k, val := range v.Expr.Values {
			values[k] = val
		}
		update := &types.Update{
			TableName:                 aws.String(c.config.TableName),
			Key:                       keyAV(v.Key),
			UpdateExpression:          aws.String(updateExpr),
			ConditionExpression:       aws.String(condition),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		}
		return types.TransactWriteItem{Update: update}, nil

	case ops.Delete:
		return types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(c.config.TableName),
				Key:       keyAV(v.Key),
			},
		}, nil

	case ops.Condition:
		return types.TransactWriteItem{
			ConditionCheck: &types.ConditionCheck{
				TableName:                 aws.String(c.config.TableName),
				Key:                       keyAV(v.Key),
				ConditionExpression:       aws.String(v.Condition),
				ExpressionAttributeNames:  v.Expr.Names,
				ExpressionAttributeValues: v.Expr.Values,
			},
		}, nil

	default:
		return types.TransactWriteItem{}, fmt.Errorf("table: unsupported write action %T", a)
	}
}
