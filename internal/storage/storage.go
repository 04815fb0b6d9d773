package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when a key has never been written.
var ErrNotFound = errors.New("storage: key not found")

// Storage is the key-value persistence port. Every Set overwrites the whole value.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Keys are the namespaces the workspace persists under.
const (
	KeyPrompts    = "prompts"
	KeyCategories = "categories"
	KeyUsers      = "users"
	KeySession    = "session"
)

// Prefixed namespaces every key of the wrapped storage, e.g. "ai_lab_prompts".
type Prefixed struct {
	Storage
	Prefix string
}

func (p Prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	return p.Storage.Get(ctx, p.Prefix+key)
}

func (p Prefixed) Set(ctx context.Context, key string, value []byte) error {
	return p.Storage.Set(ctx, p.Prefix+key, value)
}

// GetJSON decodes the value under key into v. It returns ErrNotFound untouched.
func GetJSON(ctx context.Context, s Storage, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error decoding %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and writes it under key.
func SetJSON(ctx context.Context, s Storage, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
