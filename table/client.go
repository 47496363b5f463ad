// Package table implements the storage client: single-item CRUD scoped by
// optimistic concurrency, a request coalescer for batched reads, query and
// cursor-based pagination, and a chunked bulk-transaction engine with
// compensating rollback.
//
// Grounded almost wholesale on jacentio-trellis/store/store.go: Store's
// TransactWriteItems assembly and cancellation-index mapping generalizes
// into Client.Bulk; Store.Update's
// attribute_not_exists(_docVersion) OR _docVersion = :v pattern is exactly
// the optimistic-concurrency condition this client uses (the teacher
// already writes almost this expression, keyed on `version` rather than
// `_docVersion`); Store.Query's paginator loop generalizes into
// Client.Query.
package table

import (
	"context"

	"github.com/jacentio/weave/internal/coalescer"
)

// Client is the storage engine bound to one table. One Client owns one
// transport handle and one coalescer; it is safe for concurrent use — no
// lock guards operations themselves, only the coalescer's internal batch
// accumulation, matching the shared-resource policy that suspension alone
// delimits critical sections.
type Client struct {
	api    DynamoAPI
	config Config

	coalescer *coalescer.Coalescer
}

// New builds a Client over api, using config (validated/clamped in place).
func New(api DynamoAPI, config Config) *Client {
	config.validate()
	c := &Client{api: api, config: config}
	c.coalescer = coalescer.New(c.batchFetch, config.MaxBatchGetKeys)
	return c
}

// batchFetch executes one native BatchGetItem call and implements
// coalescer.FetchFunc; the coalescer itself handles chunking to ≤100 keys
// and recursion on UnprocessedKeys.
func (c *Client) batchFetch(ctx context.Context, keys []coalescer.Key) (map[coalescer.Key]any, []coalescer.Key, error) {
	return c.rawBatchGet(ctx, keys, false)
}
