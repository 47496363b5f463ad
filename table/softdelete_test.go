package table

import (
	"context"
	"errors"
	"testing"

	"github.com/jacentio/weave/model"
	"github.com/jacentio/weave/ops"
	"github.com/jacentio/weave/weaveerr"
)

func TestSoftDeletePrefixesKeysAndSetsDeletedAt(t *testing.T) {
	api := newFakeDynamoAPI()
	c := New(api, DefaultConfig())
	m := newWidgetModel()
	ctx := context.Background()

	inst := m.New(widget{Foo: "a", Bar: 1})
	if _, err := c.Put(ctx, ops.Put{Model: m, Item: inst}); err != nil {
		t.Fatalf("put: %v", err)
	}

	raw, err := c.Get(ctx, ops.Get{Model: m, Key: ops.Key{PK: "PK#a", SK: "SK#a"}})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	typed := raw.(*model.Instance[widget])

	softDeleted, err := SoftDelete[widget](ctx, c, typed)
	if err != nil {
		t.Fatalf("softDelete: %v", err)
	}
	if softDeleted.DeletedAt() == nil {
		t.Fatalf("expected DeletedAt set")
	}

	if _, err := c.Get(ctx, ops.Get{Model: m, Key: ops.Key{PK: "PK#a", SK: "SK#a"}}); !errors.Is(err, weaveerr.ErrItemNotFound) {
		t.Fatalf("expected original row gone, got %v", err)
	}
}

// TestSoftDeleteTwiceFails documents that a second SoftDelete on the same
// item fails: the second call's put collides with the row the first call
// already wrote under the prefixed keys.
func TestSoftDeleteTwiceFails(t *testing.T) {
	api := newFakeDynamoAPI()
	c := New(api, DefaultConfig())
	m := newWidgetModel()
	ctx := context.Background()

	inst := m.New(widget{Foo: "a", Bar: 1})
	if _, err := c.Put(ctx, ops.Put{Model: m, Item: inst}); err != nil {
		t.Fatalf("put: %v", err)
	}
	raw, err := c.Get(ctx, ops.Get{Model: m, Key: ops.Key{PK: "PK#a", SK: "SK#a"}})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	typed := raw.(*model.Instance[widget])
	if _, err := SoftDelete[widget](ctx, c, typed); err != nil {
		t.Fatalf("first softDelete: %v", err)
	}

	if _, err := SoftDelete[widget](ctx, c, typed); err == nil {
		t.Fatalf("expected second softDelete on the same pre-image to fail")
	}
}
