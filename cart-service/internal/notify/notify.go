// Package notify delivers user-facing messages produced by the cart manager.
// Sinks decide how a message is shown; the manager only decides whether and
// what to say.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityInfo  Severity = "info"
)

type Notification struct {
	ID        string    `json:"id"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Op        string    `json:"op,omitempty"`
	ProductID int64     `json:"product_id,omitempty"`
	At        time.Time `json:"at"`
}

func NewError(op string, productID int64, message string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Severity:  SeverityError,
		Message:   message,
		Op:        op,
		ProductID: productID,
		At:        time.Now().UTC(),
	}
}

// Sink receives notifications. Implementations must not block for long; the
// cart manager calls Notify inline.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

type SinkFunc func(ctx context.Context, n Notification)

func (f SinkFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Multi fans a notification out to every sink in order.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, s := range m {
		if s != nil {
			s.Notify(ctx, n)
		}
	}
}

// Discard drops everything.
var Discard Sink = SinkFunc(func(context.Context, Notification) {})
