package table

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/weave/codec"
	"github.com/jacentio/weave/model"
	"github.com/jacentio/weave/ops"
)

func toAV(raw codec.RawObject) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(raw)
}

func fromAV(item map[string]types.AttributeValue) (codec.RawObject, error) {
	var out codec.RawObject
	if err := attributevalue.UnmarshalMap(item, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// storedItem assembles the full wire shape written for inst: its schema
// attributes and `_tag` (from Encode), plus the transport-owned attributes
// Encode deliberately omits — derived index attributes, `_docVersion`, and,
// for a soft-deleted instance, `_deletedAt`.
func storedItem(inst model.AnyInstance) codec.RawObject {
	out := inst.Encode()
	for k, v := range inst.Keys().AsMap() {
		out[k] = v
	}
	out["_docVersion"] = inst.DocVersion()
	if da := inst.DeletedAt(); da != nil {
		out["_deletedAt"] = *da
	}
	return out
}

func keyAV(k ops.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: k.PK},
		"SK": &types.AttributeValueMemberS{Value: k.SK},
	}
}

func stringFromAV(av types.AttributeValue) (string, bool) {
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return s.Value, true
}
