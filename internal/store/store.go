package store

import (
	"context"
	"errors"
)

// DocumentStore keeps whole documents under string keys. Put replaces, never patches.
type DocumentStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, doc []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

var ErrNotFound = errors.New("document not found")
