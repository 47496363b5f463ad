package table

import (
	"context"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamoAPI is an in-memory DynamoAPI grounded on the same "narrow
// interface, swap in a fake" idiom as other_examples/Acksell-bezos__iface.go.
// It stores items keyed by PK+"|"+SK and evaluates only the specific
// conditions weave's storage client issues (attribute_not_exists(PK),
// attribute_exists(PK), the _docVersion race check), which is all these
// tests need.
type fakeDynamoAPI struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	// transactErrOnChunk, if >= 0, makes the call at that 0-based index fail
	// with transactErr (or a bare TransactionCanceledException if unset).
	transactErr        error
	transactErrOnChunk int
	transactCalls      int
}

func newFakeDynamoAPI() *fakeDynamoAPI {
	return &fakeDynamoAPI{items: make(map[string]map[string]types.AttributeValue), transactErrOnChunk: -1}
}

func itemKey(item map[string]types.AttributeValue) string {
	pk, _ := item["PK"].(*types.AttributeValueMemberS)
	sk, _ := item["SK"].(*types.AttributeValueMemberS)
	if pk == nil || sk == nil {
		return ""
	}
	return pk.Value + "|" + sk.Value
}

func (f *fakeDynamoAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkPutCondition(in.Item, in.ConditionExpression, in.ExpressionAttributeValues); err != nil {
		return nil, err
	}
	f.items[itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

// checkPutCondition evaluates the specific two conditions weave's storage
// client issues on a put (the default existence check and the optimistic-
// concurrency version check); it does not implement general DynamoDB
// condition-expression syntax. Shared by PutItem and TransactWriteItems'
// Put branch so a rejected put behaves identically in both call paths.
func (f *fakeDynamoAPI) checkPutCondition(item map[string]types.AttributeValue, condition *string, values map[string]types.AttributeValue) error {
	key := itemKey(item)
	_, exists := f.items[key]
	if condition == nil {
		return nil
	}
	switch *condition {
	case "attribute_not_exists(PK)":
		if exists {
			return &types.ConditionalCheckFailedException{}
		}
	case "attribute_not_exists(_docVersion) OR _docVersion = :v":
		if exists {
			want := values[":v"]
			got := f.items[key]["_docVersion"]
			if !attrEqual(want, got) {
				return &types.ConditionalCheckFailedException{}
			}
		}
	}
	return nil
}

func attrEqual(a, b types.AttributeValue) bool {
	an, aok := a.(*types.AttributeValueMemberN)
	bn, bok := b.(*types.AttributeValueMemberN)
	if aok && bok {
		return an.Value == bn.Value
	}
	return a == nil && b == nil
}

func (f *fakeDynamoAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.items[itemKey(in.Key)]
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (f *fakeDynamoAPI) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, itemKey(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamoAPI) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := itemKey(in.Key)
	existing, ok := f.items[key]
	if in.ConditionExpression != nil && *in.ConditionExpression == "attribute_exists(PK)" && !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	if existing == nil {
		existing = make(map[string]types.AttributeValue)
		for k, v := range in.Key {
			existing[k] = v
		}
	}
	f.items[key] = existing
	return &dynamodb.UpdateItemOutput{Attributes: existing}, nil
}

// Query ignores KeyConditionExpression/FilterExpression (this fake has no
// expression evaluator) and instead returns every stored item sorted by
// SK, honoring ScanIndexForward, ExclusiveStartKey and Limit — enough to
// exercise table.Query/Paginate's page-boundary and direction logic
// end-to-end against a single logical partition.
func (f *fakeDynamoAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var items []map[string]types.AttributeValue
	for _, item := range f.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		si, _ := stringFromAV(items[i]["SK"])
		sj, _ := stringFromAV(items[j]["SK"])
		return si < sj
	})
	forward := in.ScanIndexForward == nil || *in.ScanIndexForward
	if !forward {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}

	if len(in.ExclusiveStartKey) > 0 {
		startSK, _ := stringFromAV(in.ExclusiveStartKey["SK"])
		idx := -1
		for i, item := range items {
			sk, _ := stringFromAV(item["SK"])
			if sk == startSK {
				idx = i
				break
			}
		}
		if idx >= 0 {
			items = items[idx+1:]
		}
	}

	var lastKey map[string]types.AttributeValue
	if in.Limit != nil && int(*in.Limit) < len(items) {
		items = items[:*in.Limit]
		last := items[len(items)-1]
		lastKey = map[string]types.AttributeValue{"PK": last["PK"], "SK": last["SK"]}
	}

	return &dynamodb.QueryOutput{Items: items, Count: int32(len(items)), LastEvaluatedKey: lastKey}, nil
}

func (f *fakeDynamoAPI) BatchGetItem(_ context.Context, in *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var responses []map[string]types.AttributeValue
	for _, kv := range in.RequestItems {
		for _, key := range kv.Keys {
			if item, ok := f.items[itemKey(key)]; ok {
				responses = append(responses, item)
			}
		}
	}
	out := &dynamodb.BatchGetItemOutput{Responses: map[string][]map[string]types.AttributeValue{}}
	for table := range in.RequestItems {
		out.Responses[table] = responses
	}
	return out, nil
}

func (f *fakeDynamoAPI) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := f.transactCalls
	f.transactCalls++

	if call == f.transactErrOnChunk {
		if f.transactErr != nil {
			return nil, f.transactErr
		}
		return nil, &types.TransactionCanceledException{}
	}

	// Real transactWrite checks every item's condition before applying any
	// write, so this fake mirrors that with a validate-then-apply pass.
	for _, ti := range in.TransactItems {
		switch {
		case ti.Put != nil:
			if err := f.checkPutCondition(ti.Put.Item, ti.Put.ConditionExpression, ti.Put.ExpressionAttributeValues); err != nil {
				return nil, &types.TransactionCanceledException{}
			}
		case ti.Update != nil:
			if ti.Update.ConditionExpression != nil && *ti.Update.ConditionExpression == "attribute_exists(PK)" {
				if _, exists := f.items[itemKey(ti.Update.Key)]; !exists {
					return nil, &types.TransactionCanceledException{}
				}
			}
		}
	}

	for _, ti := range in.TransactItems {
		switch {
		case ti.Put != nil:
			f.items[itemKey(ti.Put.Item)] = ti.Put.Item
		case ti.Delete != nil:
			delete(f.items, itemKey(ti.Delete.Key))
		case ti.Update != nil:
			key := itemKey(ti.Update.Key)
			existing := f.items[key]
			if existing == nil {
				existing = make(map[string]types.AttributeValue)
				for k, v := range ti.Update.Key {
					existing[k] = v
				}
				f.items[key] = existing
			}
		case ti.ConditionCheck != nil:
			// always passes in this fake; failure paths are exercised via
			// transactErr/transactErrOnChunk instead.
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}
