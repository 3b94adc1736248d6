package service

import (
	"errors"
	"fmt"
)

var (
	// ErrStockLookup: the inventory has no entry for the product.
	ErrStockLookup = errors.New("stock not found")
	// ErrProductLookup: the catalog has no entry for the product.
	ErrProductLookup = errors.New("product not found in catalog")
	// ErrProductNotFound: the operation targets a product absent from the cart.
	ErrProductNotFound = errors.New("product not in cart")
	// ErrInsufficientStock: the requested amount exceeds availability.
	ErrInsufficientStock = errors.New("requested quantity exceeds available stock")
	// ErrTransport covers failures of the inventory, catalog or store below us.
	ErrTransport = errors.New("transport failure")
)

type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
	OpUpdate Op = "update"
)

// OpError is returned by every failed cart operation. It matches its Kind and
// its underlying cause with errors.Is / errors.As.
type OpError struct {
	Op        Op
	ProductID int64
	Kind      error
	Err       error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cart %s product %d: %v", e.Op, e.ProductID, e.Kind)
	}
	return fmt.Sprintf("cart %s product %d: %v: %v", e.Op, e.ProductID, e.Kind, e.Err)
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
