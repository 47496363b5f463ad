// Package events decodes DynamoDB Stream records through a model.Union and
// publishes the resulting changes to an event bus. It depends only on the
// codec/model layer, never on table.Client — the "separate collaborator"
// spec's event-publication carve-out describes.
//
// Grounded on jacentio-trellis/stream/cascade.go: Decode replaces
// processRecord's TTL-cascade-specific field extraction with generic
// change classification, and getStringAttr/getNumberAttr/getStringListAttr/
// ConvertStreamKey are adapted from the same file (their DynamoDBAttributeValue
// walking is identical; only what they're used for changes).
package events

import (
	"fmt"
	"strconv"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/weave/codec"
	"github.com/jacentio/weave/model"
)

// ChangeKind classifies one decoded stream record.
type ChangeKind int

const (
	// Created is a record whose OldImage was absent (an INSERT).
	Created ChangeKind = iota
	// Updated is any other record with an OldImage present whose decoded
	// image is not soft-deleted: a MODIFY, or a REMOVE of a live row.
	Updated
	// SoftDeleted is a record whose decoded image (NewImage, or OldImage for
	// a REMOVE) carries the `$$DELETED$$` PK prefix from spec.md §3 or a
	// `_deletedAt` value.
	SoftDeleted
)

func (k ChangeKind) String() string {
	switch k {
	case Created:
		return "CREATED"
	case Updated:
		return "UPDATED"
	case SoftDeleted:
		return "SOFT_DELETED"
	default:
		return "UNKNOWN"
	}
}

// DecodedChange is one classified stream record, decoded through the
// caller's Union.
type DecodedChange struct {
	Kind     ChangeKind
	Tag      string
	Instance model.AnyInstance
	EventID  string
}

const deletedPrefix = "$$DELETED$$"

// Decode classifies every record in records by inspecting its NewImage (or
// OldImage, for a REMOVE) through union (its _tag member first, then the
// rest in declaration order). Records
// whose image decodes against no member of union are skipped rather than
// erroring, since a stream can carry rows belonging to models this consumer
// doesn't care about.
func Decode(union *model.Union, records []lambdaevents.DynamoDBEventRecord) ([]DecodedChange, error) {
	changes := make([]DecodedChange, 0, len(records))
	for _, record := range records {
		change, ok, err := decodeRecord(union, record)
		if err != nil {
			return nil, fmt.Errorf("events: record %s: %w", record.EventID, err)
		}
		if ok {
			changes = append(changes, change)
		}
	}
	return changes, nil
}

func decodeRecord(union *model.Union, record lambdaevents.DynamoDBEventRecord) (DecodedChange, bool, error) {
	image := record.Change.NewImage
	if record.EventName == "REMOVE" {
		image = record.Change.OldImage
	}
	if len(image) == 0 {
		return DecodedChange{}, false, nil
	}

	raw := rawFromImage(image)
	inst, err := union.Decode(raw)
	if err != nil {
		return DecodedChange{}, false, nil
	}

	// The $$DELETED$$ prefix check must run against the raw image's own PK,
	// not inst.Keys(): Model.Decode always re-derives keys from the decoded
	// value via KeyProvider, so a decoded instance's Keys() never carries
	// whatever prefix the stored row's PK actually had.
	rawPK, _ := raw["PK"].(string)
	kind := classify(record, rawPK, inst.DeletedAt())
	return DecodedChange{Kind: kind, Tag: inst.Tag(), Instance: inst, EventID: record.EventID}, true, nil
}

// classify implements the Created/Updated/SoftDeleted split: an absent
// OldImage means INSERT; a $$DELETED$$-prefixed PK or a set _deletedAt on
// the decoded image means soft delete (checked first); anything else with an
// OldImage present is a plain update.
func classify(record lambdaevents.DynamoDBEventRecord, rawPK string, deletedAt *string) ChangeKind {
	if deletedAt != nil || hasDeletedPrefix(rawPK) {
		return SoftDeleted
	}
	if len(record.Change.OldImage) == 0 {
		return Created
	}
	return Updated
}

func hasDeletedPrefix(pk string) bool {
	return len(pk) >= len(deletedPrefix) && pk[:len(deletedPrefix)] == deletedPrefix
}

// rawFromImage converts a stream image into the codec.RawObject shape
// model.Union.Decode accepts, mirroring what fromAV does for a live read.
func rawFromImage(image map[string]lambdaevents.DynamoDBAttributeValue) codec.RawObject {
	out := make(codec.RawObject, len(image))
	for k, v := range image {
		out[k] = attrValue(v)
	}
	return out
}

func attrValue(v lambdaevents.DynamoDBAttributeValue) any {
	switch v.DataType() {
	case lambdaevents.DataTypeString:
		return v.String()
	case lambdaevents.DataTypeNumber:
		n, _ := strconv.ParseFloat(v.Number(), 64)
		return n
	case lambdaevents.DataTypeBoolean:
		return v.Boolean()
	case lambdaevents.DataTypeList:
		list := v.List()
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = attrValue(item)
		}
		return out
	case lambdaevents.DataTypeMap:
		m := v.Map()
		out := make(map[string]any, len(m))
		for k, item := range m {
			out[k] = attrValue(item)
		}
		return out
	case lambdaevents.DataTypeNull:
		return nil
	default:
		return nil
	}
}

// ConvertStreamKey converts a DynamoDB stream key image to native attribute
// values, for callers that need to re-derive an ops.Key from a stream
// record. Kept close to the teacher's version since it is a pure converter
// unrelated to the cascade logic being replaced.
func ConvertStreamKey(streamKey map[string]lambdaevents.DynamoDBAttributeValue) map[string]types.AttributeValue {
	result := make(map[string]types.AttributeValue, len(streamKey))
	for k, v := range streamKey {
		switch v.DataType() {
		case lambdaevents.DataTypeString:
			result[k] = &types.AttributeValueMemberS{Value: v.String()}
		case lambdaevents.DataTypeNumber:
			result[k] = &types.AttributeValueMemberN{Value: v.Number()}
		case lambdaevents.DataTypeBinary:
			result[k] = &types.AttributeValueMemberB{Value: v.Binary()}
		}
	}
	return result
}
