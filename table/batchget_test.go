package table

import (
	"context"
	"errors"
	"testing"

	"github.com/jacentio/weave/ops"
	"github.com/jacentio/weave/weaveerr"
)

func TestBatchGetResolvesDistinctNamesSharingAKey(t *testing.T) {
	api := newFakeDynamoAPI()
	c := New(api, DefaultConfig())
	m := newWidgetModel()
	ctx := context.Background()

	if _, err := c.Put(ctx, ops.Put{Model: m, Item: m.New(widget{Foo: "a", Bar: 1})}); err != nil {
		t.Fatalf("put: %v", err)
	}

	gets := map[string]ops.Get{
		"first":  {Model: m, Key: ops.Key{PK: "PK#a", SK: "SK#a"}},
		"second": {Model: m, Key: ops.Key{PK: "PK#a", SK: "SK#a"}},
	}
	results, err := c.BatchGet(ctx, gets, BatchGetOptions{})
	if err != nil {
		t.Fatalf("batchGet: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for name, r := range results {
		if r.Err != nil || r.Instance == nil {
			t.Fatalf("result %q: %+v", name, r)
		}
	}
}

func TestBatchGetDefaultModeFailsWholeOnMiss(t *testing.T) {
	api := newFakeDynamoAPI()
	c := New(api, DefaultConfig())
	m := newWidgetModel()
	ctx := context.Background()

	if _, err := c.Put(ctx, ops.Put{Model: m, Item: m.New(widget{Foo: "a", Bar: 1})}); err != nil {
		t.Fatalf("put: %v", err)
	}

	gets := map[string]ops.Get{
		"present": {Model: m, Key: ops.Key{PK: "PK#a", SK: "SK#a"}},
		"missing": {Model: m, Key: ops.Key{PK: "PK#z", SK: "SK#z"}},
	}
	_, err := c.BatchGet(ctx, gets, BatchGetOptions{})
	if !errors.Is(err, weaveerr.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestBatchGetIndividualErrorsIsolatesMiss(t *testing.T) {
	api := newFakeDynamoAPI()
	c := New(api, DefaultConfig())
	m := newWidgetModel()
	ctx := context.Background()

	if _, err := c.Put(ctx, ops.Put{Model: m, Item: m.New(widget{Foo: "a", Bar: 1})}); err != nil {
		t.Fatalf("put: %v", err)
	}

	gets := map[string]ops.Get{
		"present": {Model: m, Key: ops.Key{PK: "PK#a", SK: "SK#a"}},
		"missing": {Model: m, Key: ops.Key{PK: "PK#z", SK: "SK#z"}},
	}
	results, err := c.BatchGet(ctx, gets, BatchGetOptions{IndividualErrors: true})
	if err != nil {
		t.Fatalf("unexpected top-level error: %v", err)
	}
	if results["present"].Err != nil {
		t.Fatalf("present: %v", results["present"].Err)
	}
	if !errors.Is(results["missing"].Err, weaveerr.ErrItemNotFound) {
		t.Fatalf("missing: expected ErrItemNotFound, got %v", results["missing"].Err)
	}
}
