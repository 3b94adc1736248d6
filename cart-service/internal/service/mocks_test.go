package service

import (
	"context"
	"sync"

	"github.com/fjod/cartstate/cart-service/internal/catalog"
	"github.com/fjod/cartstate/cart-service/internal/domain"
	"github.com/fjod/cartstate/cart-service/internal/notify"
	"github.com/fjod/cartstate/cart-service/internal/repository"
)

type mockInventory struct {
	mu    sync.Mutex
	stock map[int64]int
	err   error
	// gates hold GetStock for an id until closed (or ctx ends)
	gates map[int64]chan struct{}
	calls int
}

func newMockInventory(stock map[int64]int) *mockInventory {
	return &mockInventory{stock: stock, gates: make(map[int64]chan struct{})}
}

func (m *mockInventory) GetStock(ctx context.Context, productID int64) (domain.Stock, error) {
	m.mu.Lock()
	m.calls++
	gate := m.gates[productID]
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Stock{}, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Stock{}, m.err
	}
	amount, ok := m.stock[productID]
	if !ok {
		return domain.Stock{}, catalog.ErrNotFound
	}
	return domain.Stock{ID: productID, Amount: amount}, nil
}

func (m *mockInventory) hold(productID int64) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	gate := make(chan struct{})
	m.gates[productID] = gate
	return gate
}

func (m *mockInventory) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockCatalog struct {
	mu       sync.Mutex
	products map[int64]domain.Product
	err      error
	calls    int
}

func (m *mockCatalog) GetProduct(_ context.Context, productID int64) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return domain.Product{}, m.err
	}
	p, ok := m.products[productID]
	if !ok {
		return domain.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (m *mockCatalog) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type countingStore struct {
	*repository.MemoryStore
	mu       sync.Mutex
	writes   int
	writeErr error
	readErr  error
	// ackGate, when set, holds the next Write after the value is stored
	ackGate chan struct{}
	stored  chan struct{}
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: repository.NewMemoryStore()}
}

func (s *countingStore) Read(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	err := s.readErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.MemoryStore.Read(ctx, key)
}

func (s *countingStore) Write(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	err := s.writeErr
	if err == nil {
		s.writes++
	}
	gate, stored := s.ackGate, s.stored
	s.ackGate, s.stored = nil, nil
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if err := s.MemoryStore.Write(ctx, key, value); err != nil {
		return err
	}
	if gate != nil {
		close(stored)
		<-gate
	}
	return nil
}

// delayNextAck makes the next Write store its value, signal stored, and then
// wait for gate before returning.
func (s *countingStore) delayNextAck() (gate, stored chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ackGate = make(chan struct{})
	s.stored = make(chan struct{})
	return s.ackGate, s.stored
}

func (s *countingStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type recorder struct {
	mu    sync.Mutex
	notes []notify.Notification
}

func (r *recorder) Notify(_ context.Context, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) all() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Notification, len(r.notes))
	copy(out, r.notes)
	return out
}

func (r *recorder) messages() []string {
	var out []string
	for _, n := range r.all() {
		out = append(out, n.Message)
	}
	return out
}

type stockAnswer struct {
	stock domain.Stock
	err   error
}

// scriptedStock answers GetStock calls in order.
type scriptedStock struct {
	mu      sync.Mutex
	answers []stockAnswer
}

func (s *scriptedStock) GetStock(_ context.Context, _ int64) (domain.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.answers) == 0 {
		return domain.Stock{}, catalog.ErrNotFound
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a.stock, a.err
}
