package events

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"github.com/jacentio/weave/codec"
	"github.com/jacentio/weave/model"
)

type fakeEventBridgeAPI struct {
	calls   int
	entries []types.PutEventsRequestEntry
}

func (f *fakeEventBridgeAPI) PutEvents(_ context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.calls++
	f.entries = append(f.entries, in.Entries...)
	return &eventbridge.PutEventsOutput{}, nil
}

func testChange(tag string, kind ChangeKind) DecodedChange {
	c := codec.New[streamWidget]()
	keys := model.KeyProviderFunc[streamWidget](func(w streamWidget) model.Keys {
		return model.Keys{PK: "PK#" + w.Foo, SK: "SK#" + w.Foo}
	})
	m := model.New[streamWidget](tag, c, keys, nil)
	inst := m.New(streamWidget{Foo: "a", Bar: 1})
	return DecodedChange{Kind: kind, Tag: tag, Instance: inst, EventID: "1"}
}

func TestPublishSendsOneEntryPerChange(t *testing.T) {
	api := &fakeEventBridgeAPI{}
	p := NewPublisher(api, "test-bus", "weave", nil)

	err := p.Publish(context.Background(), []DecodedChange{testChange("widget", Created)})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(api.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(api.entries))
	}
	if *api.entries[0].DetailType != "weave.widget.CREATED" {
		t.Fatalf("unexpected detail type: %s", *api.entries[0].DetailType)
	}
}

func TestPublishChunksAtTenEntries(t *testing.T) {
	api := &fakeEventBridgeAPI{}
	p := NewPublisher(api, "test-bus", "weave", nil)

	changes := make([]DecodedChange, 25)
	for i := range changes {
		changes[i] = testChange("widget", Updated)
	}

	if err := p.Publish(context.Background(), changes); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if api.calls != 3 {
		t.Fatalf("expected 3 PutEvents calls for 25 entries, got %d", api.calls)
	}
	if len(api.entries) != 25 {
		t.Fatalf("expected 25 total entries, got %d", len(api.entries))
	}
}

func TestPublishEmptyIsNoop(t *testing.T) {
	api := &fakeEventBridgeAPI{}
	p := NewPublisher(api, "test-bus", "weave", nil)

	if err := p.Publish(context.Background(), nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if api.calls != 0 {
		t.Fatalf("expected 0 calls for empty batch, got %d", api.calls)
	}
}
