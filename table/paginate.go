package table

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/weave/internal/cursor"
	"github.com/jacentio/weave/model"
	"github.com/jacentio/weave/weaveerr"
)

// PaginateInput describes one cursor-paginated query. At most one of
// First/Last and at most one of Before/After may be set; Before+First and
// Last+After are rejected.
type PaginateInput struct {
	First  *int
	Last   *int
	Before *string
	After  *string

	IndexName                 string
	KeyConditionExpression    string
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues map[string]types.AttributeValue
	Model                     model.AnyModel
}

// Edge pairs a decoded item with the opaque cursor needed to resume after it.
type Edge struct {
	Item   model.AnyInstance
	Cursor string
}

// Page is one page of a cursor-paginated query.
type Page struct {
	Edges           []Edge
	HasNextPage     bool
	HasPreviousPage bool
}

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Paginate implements §4.4.7: validates the first/last/before/after
// combination, fetches limit+1 rows to detect an extra page in the current
// direction, and emits cursors via internal/cursor. Direction is FORWARD
// unless Before or Last is set; a BACKWARD result is reversed before
// returning so edges are always in forward store-sort order.
func (c *Client) Paginate(ctx context.Context, in PaginateInput) (*Page, error) {
	if in.First != nil && in.Last != nil {
		return nil, weaveerr.NewPaginationError("at most one of first/last may be given")
	}
	if in.Before != nil && in.After != nil {
		return nil, weaveerr.NewPaginationError("at most one of before/after may be given")
	}
	if in.Before != nil && in.First != nil {
		return nil, weaveerr.NewPaginationError("before and first are mutually exclusive")
	}
	if in.Last != nil && in.After != nil {
		return nil, weaveerr.NewPaginationError("last and after are mutually exclusive")
	}

	limit := defaultPageSize
	if in.First != nil {
		limit = *in.First
	} else if in.Last != nil {
		limit = *in.Last
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	forward := in.Before == nil && in.Last == nil

	var startKey map[string]types.AttributeValue
	cursorSource := in.After
	if in.Before != nil {
		cursorSource = in.Before
	}
	if cursorSource != nil {
		payload, err := cursor.Decode(*cursorSource, c.config.CursorEncryptionKey)
		if err != nil {
			return nil, err
		}
		startKey = cursorPayloadToKey(payload, in.IndexName)
	}

	queryRes, err := c.Query(ctx, QueryInput{
		IndexName:                 normalizeIndexName(in.IndexName),
		KeyConditionExpression:    in.KeyConditionExpression,
		ExpressionAttributeNames:  in.ExpressionAttributeNames,
		ExpressionAttributeValues: in.ExpressionAttributeValues,
		Limit:                     int32(limit + 1),
		ScanIndexForward:          forward,
		ExclusiveStartKey:         startKey,
	}, []QueryTarget{{Name: "items", Model: in.Model}})
	if err != nil {
		return nil, err
	}

	items := queryRes.Buckets["items"]
	hasExtra := len(items) > limit
	if hasExtra {
		items = items[:limit]
	}

	var hasNext, hasPrev bool
	if forward {
		hasNext = hasExtra
		hasPrev = in.After != nil
	} else {
		hasPrev = hasExtra
		hasNext = in.Before != nil
		reverseInPlace(items)
	}

	edges := make([]Edge, len(items))
	for i, inst := range items {
		cur, err := c.encodeCursor(inst, in.IndexName)
		if err != nil {
			return nil, err
		}
		edges[i] = Edge{Item: inst, Cursor: cur}
	}

	return &Page{Edges: edges, HasNextPage: hasNext, HasPreviousPage: hasPrev}, nil
}

func reverseInPlace(items []model.AnyInstance) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

// normalizeIndexName maps the pagination-facing index name to the
// dynamodb.QueryInput.IndexName value: the primary index and the nominal
// "GSI1" both mean "no secondary index", matching §4.4.7's carve-out that
// only indexes other than GSI1 contribute a GSI pair to the cursor.
func normalizeIndexName(indexName string) string {
	if indexName == "" || indexName == "GSI1" {
		return ""
	}
	return indexName
}

func cursorPayloadToKey(p cursor.Payload, indexName string) map[string]types.AttributeValue {
	m := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: p.PK},
		"SK": &types.AttributeValueMemberS{Value: p.SK},
	}
	name := normalizeIndexName(indexName)
	if name != "" && p.GSIPK != nil && p.GSISK != nil {
		m[name+"PK"] = &types.AttributeValueMemberS{Value: *p.GSIPK}
		m[name+"SK"] = &types.AttributeValueMemberS{Value: *p.GSISK}
	}
	return m
}

func (c *Client) encodeCursor(inst model.AnyInstance, indexName string) (string, error) {
	keys := inst.Keys()
	payload := cursor.Payload{PK: keys.PK, SK: keys.SK}
	if name := normalizeIndexName(indexName); name != "" {
		payload.GSIPK, payload.GSISK = gsiPairFor(keys, name)
	}
	return cursor.Encode(payload, c.config.CursorEncryptionKey)
}

func gsiPairFor(k model.Keys, indexName string) (*string, *string) {
	switch indexName {
	case "GSI2":
		return k.GSI2PK, k.GSI2SK
	case "GSI3":
		return k.GSI3PK, k.GSI3SK
	case "GSI4":
		return k.GSI4PK, k.GSI4SK
	case "GSI5":
		return k.GSI5PK, k.GSI5SK
	default:
		return nil, nil
	}
}
