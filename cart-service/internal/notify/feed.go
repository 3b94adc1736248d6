package notify

import (
	"context"
	"sync"
)

const DefaultFeedSize = 50

// Feed keeps the most recent notifications for a UI to poll and pushes new
// ones to subscribers. Subscribers that fall behind lose notifications rather
// than blocking the producer.
type Feed struct {
	mu     sync.RWMutex
	size   int
	recent []Notification
	subs   map[chan Notification]struct{}
}

func NewFeed(size int) *Feed {
	if size <= 0 {
		size = DefaultFeedSize
	}
	return &Feed{
		size: size,
		subs: make(map[chan Notification]struct{}),
	}
}

func (f *Feed) Notify(_ context.Context, n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.recent = append(f.recent, n)
	if over := len(f.recent) - f.size; over > 0 {
		f.recent = append([]Notification(nil), f.recent[over:]...)
	}

	for ch := range f.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// Recent returns up to the last size notifications, oldest first.
func (f *Feed) Recent() []Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]Notification, len(f.recent))
	copy(out, f.recent)
	return out
}

// Subscribe returns a channel of new notifications and a func that ends the
// subscription and closes the channel.
func (f *Feed) Subscribe(buffer int) (<-chan Notification, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Notification, buffer)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
			close(ch)
		})
	}
}
