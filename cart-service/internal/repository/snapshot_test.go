package repository

import (
	"context"
	"testing"

	"github.com/fjod/cartstate/cart-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCart_Missing(t *testing.T) {
	_, err := LoadCart(context.Background(), NewMemoryStore(), DefaultKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDecodeCart(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    domain.Cart
		corrupt bool
	}{
		{name: "empty payload", data: "", want: domain.Cart{}},
		{name: "null", data: "null", want: domain.Cart{}},
		{name: "empty list", data: "[]", want: domain.Cart{}},
		{
			name: "items",
			data: `[{"id":1,"title":"Tennis","price":139.9,"image":"a.jpg","amount":2}]`,
			want: domain.Cart{{ID: 1, Title: "Tennis", Price: 139.9, Image: "a.jpg", Amount: 2}},
		},
		{name: "truncated json", data: `[{"id":1,"amo`, corrupt: true},
		{name: "wrong shape", data: `{"id":1}`, corrupt: true},
		{name: "zero amount", data: `[{"id":1,"amount":0}]`, corrupt: true},
		{name: "duplicate id", data: `[{"id":1,"amount":1},{"id":1,"amount":2}]`, corrupt: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCart([]byte(tt.data))
			if tt.corrupt {
				assert.ErrorIs(t, err, ErrCorrupt)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSaveCart_NilEncodesAsEmptyList(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, SaveCart(context.Background(), store, DefaultKey, nil))

	raw, err := store.Read(context.Background(), DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	value := []byte("abc")

	require.NoError(t, store.Write(ctx, "k", value))
	value[0] = 'x'

	got, err := store.Read(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'y'
	again, _ := store.Read(ctx, "k")
	assert.Equal(t, "abc", string(again))
}
