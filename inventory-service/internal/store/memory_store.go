package store

import (
	"cmp"
	"slices"
	"sync"

	"github.com/fjod/cartstate/inventory-service/internal/domain"
)

// MemoryStore implements InventoryStore with in-memory storage
type MemoryStore struct {
	mu     sync.RWMutex
	stocks map[int64]int // productID -> amount
}

// NewMemoryStore creates a new in-memory inventory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stocks: make(map[int64]int),
	}
}

// NewSeededMemoryStore creates a store holding the given stock levels
func NewSeededMemoryStore(seed map[int64]int) (*MemoryStore, error) {
	s := NewMemoryStore()
	for id, amount := range seed {
		if err := s.SetStock(id, amount); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *MemoryStore) GetStock(productID int64) (domain.StockLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	amount, exists := s.stocks[productID]
	if !exists {
		return domain.StockLevel{}, ErrProductNotFound
	}
	return domain.StockLevel{ProductID: productID, Amount: amount}, nil
}

func (s *MemoryStore) List() []domain.StockLevel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StockLevel, 0, len(s.stocks))
	for id, amount := range s.stocks {
		result = append(result, domain.StockLevel{ProductID: id, Amount: amount})
	}
	slices.SortFunc(result, func(a, b domain.StockLevel) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return result
}

func (s *MemoryStore) SetStock(productID int64, amount int) error {
	if amount < 0 {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stocks[productID] = amount
	return nil
}
