// Package ops defines the tagged operation descriptors the storage client
// and bulk engine dispatch on: get, put, updateRaw, delete, and condition,
// plus the transaction-pair wrapper used for compensating rollback.
//
// The shape is grounded on other_examples/Acksell-bezos__ddb_actions.go's
// Action interface and its concrete Put/PutWithCondition/Delete/
// DeleteWithCondition/UnsafeUpdate variants, and its BatchAction marker-
// method restriction (reused here as WriteAction) that keeps read-only Get
// out of anything the bulk engine or a transaction pair can hold.
package ops

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/weave/model"
)

// Key identifies a row by its primary index attributes.
type Key struct {
	PK string
	SK string
}

// ExprAttrs bundles the expression-attribute maps DynamoDB's expression
// language needs alongside a condition or update expression string.
type ExprAttrs struct {
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// Action is the sealed set of operation descriptors: Get, Put, UpdateRaw,
// Delete, Condition. Exhaustive callers type-switch on it.
type Action interface {
	isAction()
}

// WriteAction is the subset of Action that produces a native transact item
// (everything but Get) — the only descriptors a Bulk call or a
// TransactionOp may hold.
type WriteAction interface {
	Action
	isWriteAction()
}

// Get reads a single row by key.
type Get struct {
	Model          model.AnyModel
	Key            Key
	ConsistentRead bool
}

func (Get) isAction() {}

// Put writes item's encoded form. IgnoreExistence suppresses the default
// attribute_not_exists(PK) precondition; a non-empty Condition replaces it
// entirely, and its failure is surfaced as ConditionalCheckFailedError
// rather than KeyExistsError. SoftDelete marks this as the second half of a
// soft-delete bulk pair; the storage client does not read it, since every
// put writes the item's own Keys() unchanged (for a soft-deleted instance,
// the already `$$DELETED$$`-prefixed keys).
type Put struct {
	Model           model.AnyModel
	Item            model.AnyInstance
	IgnoreExistence bool
	Condition       string
	Expr            ExprAttrs
	SoftDelete      bool
}

func (Put) isAction()      {}
func (Put) isWriteAction() {}

// UpdateRaw applies a caller-provided attribute set to an existing row,
// scoped by a default attribute_exists(PK) precondition. A key simply
// absent from Attributes is left untouched (Go's map already encodes
// "undefined" as absence, so there is nothing further to drop). A
// GSI-prefixed key present with an explicit nil value is routed to REMOVE;
// every other present key — nil or not — is routed to SET by the storage
// client, so a non-GSI nil writes a stored null rather than being dropped.
type UpdateRaw struct {
	Model      model.AnyModel
	Key        Key
	Attributes map[string]any
	Condition  string
	Expr       ExprAttrs
}

func (UpdateRaw) isAction()      {}
func (UpdateRaw) isWriteAction() {}

// Delete unconditionally removes a row by key.
type Delete struct {
	Model model.AnyModel
	Key   Key
}

func (Delete) isAction()      {}
func (Delete) isWriteAction() {}

// Condition is a check-only transact item: it never writes, only aborts the
// surrounding transaction when its expression fails.
type Condition struct {
	Key       Key
	Condition string
	Expr      ExprAttrs
}

func (Condition) isAction()      {}
func (Condition) isWriteAction() {}

// TransactionOp pairs a forward WriteAction with an optional compensating
// Rollback, used by Bulk's rollback-mode compensation walk. A TransactionOp
// whose Rollback is nil has no compensation and is skipped during rollback.
type TransactionOp struct {
	Action   WriteAction
	Rollback WriteAction
}
