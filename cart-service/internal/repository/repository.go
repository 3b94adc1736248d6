package repository

import (
	"context"
	"errors"
)

// DefaultKey names the cart snapshot inside a store.
const DefaultKey = "cartstate:cart"

var (
	ErrNotFound = errors.New("key not found")
	ErrCorrupt  = errors.New("stored cart is malformed")
)

// Store is a durable key/value byte store. Read returns ErrNotFound when the
// key was never written.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
}
