// Package storage persists whole collections as JSON values under string keys.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Load when a key has never been saved
var ErrNotFound = errors.New("key not found")

// Backend is a key/value store for serialized collections.
// SaveAll writes every value or none of them.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	SaveAll(ctx context.Context, values map[string][]byte) error
	Close() error
}

// LoadJSON decodes the value stored under key into a T.
// The boolean is false when the key is absent.
func LoadJSON[T any](ctx context.Context, b Backend, key string) (T, bool, error) {
	var v T
	raw, err := b.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, true, nil
}

// SaveJSON encodes v and stores it under key
func SaveJSON[T any](ctx context.Context, b Backend, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return b.Save(ctx, key, raw)
}
