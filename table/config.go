package table

import (
	"time"

	"github.com/jacentio/weave/internal/cursor"
)

// nativeMaxBatchGetKeys and nativeMaxTransactItems are DynamoDB's own hard
// ceilings for BatchGetItem and TransactWriteItems respectively; Config's
// clamp never lets a caller raise its knobs past what the wire protocol
// itself allows.
const (
	nativeMaxBatchGetKeys  = 100
	nativeMaxTransactItems = 25

	defaultRetryAttempts = 3
	defaultRetryDelay    = 50 * time.Millisecond
)

// Config configures a Client. The zero value is invalid; use DefaultConfig
// or call validate before constructing a Client (New does this for you).
//
// The validate-then-clamp shape (defaulting an empty name, dropping an
// invalid encryption key rather than erroring) is grounded on
// jacentio-trellis/store/config.go's Config.validate, which clamps
// NumShards into range and defaults empty table names instead of
// rejecting the config outright.
type Config struct {
	// TableName is the single table backing this client.
	TableName string
	// CursorEncryptionKey, if set, must be cursor.KeySize (32) bytes. An
	// invalid length is dropped during validation rather than erroring —
	// pagination simply falls back to unencrypted cursors.
	CursorEncryptionKey []byte
	// MaxBatchGetKeys caps how many keys BatchGet/Load coalescing send in
	// one native BatchGetItem call. Clamped to (0, nativeMaxBatchGetKeys].
	MaxBatchGetKeys int
	// MaxTransactItems caps how many ops.TransactionOp entries Bulk packs
	// into one native TransactWriteItems call. Clamped to
	// (0, nativeMaxTransactItems].
	MaxTransactItems int
	// RetryAttempts is how many attempts in total (the first one included)
	// Bulk makes at a chunk write that fails for a non-cancellation
	// (transient transport) reason.
	RetryAttempts int
	// RetryDelay is the fixed backoff between Bulk retry attempts.
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with a placeholder table name and the
// engine's default batch/transaction/retry sizing; callers virtually
// always override TableName.
func DefaultConfig() Config {
	return Config{
		TableName:        "weave",
		MaxBatchGetKeys:  nativeMaxBatchGetKeys,
		MaxTransactItems: nativeMaxTransactItems,
		RetryAttempts:    defaultRetryAttempts,
		RetryDelay:       defaultRetryDelay,
	}
}

func (c *Config) validate() {
	if c.TableName == "" {
		c.TableName = "weave"
	}
	if len(c.CursorEncryptionKey) != 0 && len(c.CursorEncryptionKey) != cursor.KeySize {
		c.CursorEncryptionKey = nil
	}
	if c.MaxBatchGetKeys <= 0 || c.MaxBatchGetKeys > nativeMaxBatchGetKeys {
		c.MaxBatchGetKeys = nativeMaxBatchGetKeys
	}
	if c.MaxTransactItems <= 0 || c.MaxTransactItems > nativeMaxTransactItems {
		c.MaxTransactItems = nativeMaxTransactItems
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = defaultRetryAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
}
