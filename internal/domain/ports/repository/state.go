package repository

import "context"

// KVStore is the durable key-value boundary the store persists through.
// Get must return domain.ErrNotFound when the key is absent.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Del(ctx context.Context, key string) error
}
