package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/fjod/cartstate/cart-service/internal/domain"
)

// LoadCart reads and decodes the snapshot under key. A missing key yields
// ErrNotFound, an undecodable or invalid payload ErrCorrupt.
func LoadCart(ctx context.Context, s Store, key string) (domain.Cart, error) {
	data, err := s.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	return DecodeCart(data)
}

// SaveCart encodes c and writes it under key.
func SaveCart(ctx context.Context, s Store, key string, c domain.Cart) error {
	data, err := EncodeCart(c)
	if err != nil {
		return err
	}
	if err := s.Write(ctx, key, data); err != nil {
		return fmt.Errorf("write cart: %w", err)
	}
	return nil
}

func EncodeCart(c domain.Cart) ([]byte, error) {
	if c == nil {
		c = domain.Cart{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal cart failed: %w", err)
	}
	return data, nil
}

func DecodeCart(data []byte) (domain.Cart, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return domain.Cart{}, nil
	}

	var c domain.Cart
	if err := json.Unmarshal(trimmed, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !c.Valid() {
		return nil, fmt.Errorf("%w: duplicate id or non-positive amount", ErrCorrupt)
	}
	return c, nil
}
