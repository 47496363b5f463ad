package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
)

// EventBridgeAPI is the narrow surface Publisher needs, satisfied by
// *eventbridge.Client. Grounded on the same narrow-interface idiom as
// table.DynamoAPI.
type EventBridgeAPI interface {
	PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Publisher turns DecodedChanges into EventBridge entries on one named bus
// and source. Grounded on jacentio-trellis/stream/cascade.Handler's
// shape (a thin struct wrapping one backend client plus a *slog.Logger,
// logging every step at Info and swallowing per-item failures at Warn so one
// bad record doesn't block the batch).
type Publisher struct {
	api    EventBridgeAPI
	bus    string
	source string
	logger *slog.Logger
}

// NewPublisher builds a Publisher targeting busName on api, tagging every
// entry with source. A nil logger defaults to slog.Default(), matching
// stream.NewHandler's nil-logger fallback.
func NewPublisher(api EventBridgeAPI, busName, source string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{api: api, bus: busName, source: source, logger: logger}
}

// Publish sends every change to EventBridge, one PutEvents call per chunk of
// at most 10 entries (eventbridge's per-call limit). A malformed change (its
// instance fails to marshal) is logged and skipped rather than failing the
// whole batch, mirroring processRecord's per-child warn-and-continue policy.
func (p *Publisher) Publish(ctx context.Context, changes []DecodedChange) error {
	const maxEntriesPerCall = 10

	entries := make([]types.PutEventsRequestEntry, 0, len(changes))
	for _, change := range changes {
		entry, err := p.toEntry(change)
		if err != nil {
			p.logger.Warn("skipping unmarshalable change",
				"tag", change.Tag, "eventID", change.EventID, "error", err)
			continue
		}
		entries = append(entries, entry)
	}

	for start := 0; start < len(entries); start += maxEntriesPerCall {
		end := start + maxEntriesPerCall
		if end > len(entries) {
			end = len(entries)
		}
		out, err := p.api.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries[start:end]})
		if err != nil {
			return fmt.Errorf("events: publish: %w", err)
		}
		if out.FailedEntryCount > 0 {
			p.logger.Warn("eventbridge reported failed entries", "count", out.FailedEntryCount)
		}
	}

	p.logger.Info("published changes", "count", len(entries), "bus", p.bus)
	return nil
}

type changePayload struct {
	Kind string         `json:"kind"`
	Tag  string         `json:"tag"`
	Item map[string]any `json:"item"`
}

func (p *Publisher) toEntry(change DecodedChange) (types.PutEventsRequestEntry, error) {
	body, err := json.Marshal(changePayload{
		Kind: change.Kind.String(),
		Tag:  change.Tag,
		Item: change.Instance.Values(),
	})
	if err != nil {
		return types.PutEventsRequestEntry{}, err
	}
	detail := string(body)
	detailType := fmt.Sprintf("weave.%s.%s", change.Tag, change.Kind.String())
	return types.PutEventsRequestEntry{
		EventBusName: aws.String(p.bus),
		Source:       aws.String(p.source),
		DetailType:   aws.String(detailType),
		Detail:       aws.String(detail),
	}, nil
}
