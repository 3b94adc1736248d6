package domain

import "slices"

// CartItem is one distinct product in the cart. Title, Price and Image are
// copied from the catalog when the product is first added.
type CartItem struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
	Image  string  `json:"image"`
	Amount int     `json:"amount"`
}

// Cart keeps insertion order. Ids are unique and every Amount is >= 1.
type Cart []CartItem

// Product holds the catalog attributes of a purchasable item.
type Product struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
}

// Stock is the maximum purchasable quantity of a product right now.
type Stock struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

type AmountUpdate struct {
	ProductID int64 `json:"product_id"`
	Amount    int   `json:"amount"`
}

func NewCartItem(p Product, amount int) CartItem {
	return CartItem{
		ID:     p.ID,
		Title:  p.Title,
		Price:  p.Price,
		Image:  p.Image,
		Amount: amount,
	}
}

// Find returns the index of the item with the given id, or -1.
func (c Cart) Find(productID int64) int {
	return slices.IndexFunc(c, func(it CartItem) bool { return it.ID == productID })
}

func (c Cart) Clone() Cart {
	if c == nil {
		return Cart{}
	}
	return slices.Clone(c)
}

// Append returns a new cart with item at the end. The receiver is untouched.
func (c Cart) Append(item CartItem) Cart {
	next := make(Cart, 0, len(c)+1)
	next = append(next, c...)
	return append(next, item)
}

// WithAmount returns a new cart where the item at idx carries amount.
func (c Cart) WithAmount(idx int, amount int) Cart {
	next := c.Clone()
	item := next[idx]
	item.Amount = amount
	next[idx] = item
	return next
}

// Without returns a new cart lacking productID, other items in order.
func (c Cart) Without(productID int64) Cart {
	next := make(Cart, 0, len(c))
	for _, it := range c {
		if it.ID != productID {
			next = append(next, it)
		}
	}
	return next
}

// Valid reports whether the cart holds the id and amount invariants.
func (c Cart) Valid() bool {
	seen := make(map[int64]struct{}, len(c))
	for _, it := range c {
		if it.Amount < 1 {
			return false
		}
		if _, dup := seen[it.ID]; dup {
			return false
		}
		seen[it.ID] = struct{}{}
	}
	return true
}

func (c Cart) TotalItems() int {
	n := 0
	for _, it := range c {
		n += it.Amount
	}
	return n
}

func (c Cart) Subtotal() float64 {
	var sum float64
	for _, it := range c {
		sum += it.Price * float64(it.Amount)
	}
	return sum
}
