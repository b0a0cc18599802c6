package storage

import "context"

// Keys the dashboard persists its state under.
const (
	KeyTransfers = "bank-transfers"
	KeyAccounts  = "bank-accounts"
)

// KeyValueStore is a durable string-keyed blob store. Get reports ok=false
// when the key has never been written.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}
