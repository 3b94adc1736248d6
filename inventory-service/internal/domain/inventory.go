package domain

// StockLevel is how many units of a product can be bought right now.
type StockLevel struct {
	ProductID int64 `json:"id"`
	Amount    int   `json:"amount"`
}
