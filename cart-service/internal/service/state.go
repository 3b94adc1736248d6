package service

import (
	"sync"

	"github.com/fjod/cartstate/cart-service/internal/domain"
)

// cartState holds the published cart and fans snapshots out to subscribers.
// Each subscriber has a one-slot buffer that always ends up holding the
// newest cart.
type cartState struct {
	mu     sync.RWMutex
	cart   domain.Cart
	subs   map[chan domain.Cart]struct{}
	closed bool
}

func newCartState(initial domain.Cart) *cartState {
	return &cartState{
		cart: initial.Clone(),
		subs: make(map[chan domain.Cart]struct{}),
	}
}

func (s *cartState) snapshot() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

func (s *cartState) publish(next domain.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = next.Clone()
	for ch := range s.subs {
		offer(ch, s.cart.Clone())
	}
}

func offer(ch chan domain.Cart, c domain.Cart) {
	select {
	case ch <- c:
		return
	default:
	}
	// drop the stale snapshot the subscriber has not read yet
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- c:
	default:
	}
}

func (s *cartState) subscribe() (<-chan domain.Cart, func()) {
	ch := make(chan domain.Cart, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	ch <- s.cart.Clone()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

func (s *cartState) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
}
