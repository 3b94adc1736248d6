package store

import (
	"errors"

	"github.com/fjod/cartstate/inventory-service/internal/domain"
)

// Common errors returned by the store
var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidAmount   = errors.New("stock amount must not be negative")
)

// InventoryStore defines the interface for inventory storage operations
type InventoryStore interface {
	// GetStock returns the stock level of one product
	GetStock(productID int64) (domain.StockLevel, error)

	// List returns every known stock level ordered by product id
	List() []domain.StockLevel

	// SetStock sets the stock level for a product (seeding and admin updates)
	SetStock(productID int64, amount int) error
}
