package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fjod/cartstate/cart-service/internal/catalog"
	"github.com/fjod/cartstate/cart-service/internal/domain"
	"github.com/fjod/cartstate/cart-service/internal/notify"
	"github.com/fjod/cartstate/cart-service/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StockReader and ProductReader return catalog.ErrNotFound for unknown ids.
type StockReader interface {
	GetStock(ctx context.Context, productID int64) (domain.Stock, error)
}

type ProductReader interface {
	GetProduct(ctx context.Context, productID int64) (domain.Product, error)
}

type Deps struct {
	Stock    StockReader
	Products ProductReader
	Store    repository.Store
	Notifier notify.Sink
}

type Option func(*CartService)

// WithStorageKey sets the store key of the cart snapshot.
func WithStorageKey(key string) Option {
	return func(s *CartService) {
		if key != "" {
			s.key = key
		}
	}
}

func WithMessages(m Messages) Option {
	return func(s *CartService) {
		s.messages = m
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *CartService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithLastWriteWins lets operations overlap. Each one works on the cart it
// saw when it started and its result overwrites whatever finished before it.
func WithLastWriteWins() Option {
	return func(s *CartService) {
		s.serialize = false
	}
}

// CartService owns the session cart. All mutations go through AddProduct,
// RemoveProduct and UpdateProductAmount; every failure is reported once to
// the notification sink and leaves the cart as it was.
type CartService struct {
	stock    StockReader
	products ProductReader
	store    repository.Store
	sink     notify.Sink
	key      string
	messages Messages
	log      *slog.Logger
	tracer   trace.Tracer

	serialize bool
	sem       chan struct{}
	// commitMu keeps the stored snapshot and the published cart in step,
	// also when operations overlap.
	commitMu sync.Mutex

	state *cartState
}

// New loads the stored cart. A missing, unreadable or malformed snapshot
// starts the session with an empty cart.
func New(ctx context.Context, deps Deps, opts ...Option) (*CartService, error) {
	if deps.Stock == nil || deps.Products == nil || deps.Store == nil {
		return nil, errors.New("service: stock reader, product reader and store are required")
	}

	s := &CartService{
		stock:     deps.Stock,
		products:  deps.Products,
		store:     deps.Store,
		sink:      deps.Notifier,
		key:       repository.DefaultKey,
		messages:  DefaultMessages,
		log:       slog.Default(),
		tracer:    otel.Tracer("github.com/fjod/cartstate/cart-service"),
		serialize: true,
		sem:       make(chan struct{}, 1),
	}
	if s.sink == nil {
		s.sink = notify.Discard
	}
	for _, opt := range opts {
		opt(s)
	}

	cart, err := repository.LoadCart(ctx, s.store, s.key)
	switch {
	case err == nil:
		s.log.InfoContext(ctx, "restored cart", "key", s.key, "items", len(cart))
	case errors.Is(err, repository.ErrNotFound):
		cart = domain.Cart{}
	default:
		s.log.WarnContext(ctx, "discarding stored cart", "key", s.key, "err", err)
		cart = domain.Cart{}
	}

	s.state = newCartState(cart)
	return s, nil
}

// Cart returns a copy of the current cart.
func (s *CartService) Cart() domain.Cart {
	return s.state.snapshot()
}

// Subscribe delivers the current cart immediately and every cart published
// afterwards. A subscriber that reads slowly skips to the newest cart. The
// returned func ends the subscription and closes the channel.
func (s *CartService) Subscribe() (<-chan domain.Cart, func()) {
	return s.state.subscribe()
}

// Close ends all subscriptions.
func (s *CartService) Close() {
	s.state.close()
}

// AddProduct puts one more unit of productID in the cart. A product already
// in the cart is handled exactly like UpdateProductAmount with amount+1.
func (s *CartService) AddProduct(ctx context.Context, productID int64) (domain.Cart, error) {
	ctx, span := s.startSpan(ctx, "cart.AddProduct", productID)
	defer span.End()

	release, err := s.acquire(ctx)
	if err != nil {
		return s.fail(ctx, OpAdd, productID, ErrTransport, err)
	}
	defer release()

	cart := s.state.snapshot()

	stock, err := s.stock.GetStock(ctx, productID)
	if err != nil {
		return s.fail(ctx, OpAdd, productID, lookupKind(err, ErrStockLookup), err)
	}

	if idx := cart.Find(productID); idx >= 0 {
		newAmount := cart[idx].Amount + 1
		if stock.Amount < newAmount {
			return s.fail(ctx, OpAdd, productID, ErrInsufficientStock, shortage(newAmount, stock))
		}
		return s.updateAmount(ctx, cart, domain.AmountUpdate{ProductID: productID, Amount: newAmount})
	}

	if stock.Amount < 1 {
		return s.fail(ctx, OpAdd, productID, ErrInsufficientStock, shortage(1, stock))
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return s.fail(ctx, OpAdd, productID, lookupKind(err, ErrProductLookup), err)
	}

	item := domain.NewCartItem(product, 1)
	item.ID = productID
	return s.commit(ctx, OpAdd, productID, cart.Append(item))
}

// RemoveProduct drops productID from the cart, keeping the order of the rest.
func (s *CartService) RemoveProduct(ctx context.Context, productID int64) (domain.Cart, error) {
	ctx, span := s.startSpan(ctx, "cart.RemoveProduct", productID)
	defer span.End()

	release, err := s.acquire(ctx)
	if err != nil {
		return s.fail(ctx, OpRemove, productID, ErrTransport, err)
	}
	defer release()

	cart := s.state.snapshot()
	if cart.Find(productID) < 0 {
		return s.fail(ctx, OpRemove, productID, ErrProductNotFound, nil)
	}

	return s.commit(ctx, OpRemove, productID, cart.Without(productID))
}

// UpdateProductAmount sets the amount of a product already in the cart. A
// non-positive amount is ignored: no lookup, no write, no notification.
func (s *CartService) UpdateProductAmount(ctx context.Context, upd domain.AmountUpdate) (domain.Cart, error) {
	if upd.Amount <= 0 {
		return s.state.snapshot(), nil
	}

	ctx, span := s.startSpan(ctx, "cart.UpdateProductAmount", upd.ProductID)
	defer span.End()
	span.SetAttributes(attribute.Int("cart.amount", upd.Amount))

	release, err := s.acquire(ctx)
	if err != nil {
		return s.fail(ctx, OpUpdate, upd.ProductID, ErrTransport, err)
	}
	defer release()

	return s.updateAmount(ctx, s.state.snapshot(), upd)
}

// updateAmount runs with the mutation slot held (when serializing).
func (s *CartService) updateAmount(ctx context.Context, cart domain.Cart, upd domain.AmountUpdate) (domain.Cart, error) {
	idx := cart.Find(upd.ProductID)
	if idx < 0 {
		return s.fail(ctx, OpUpdate, upd.ProductID, ErrProductNotFound, nil)
	}

	stock, err := s.stock.GetStock(ctx, upd.ProductID)
	if err != nil {
		return s.fail(ctx, OpUpdate, upd.ProductID, lookupKind(err, ErrStockLookup), err)
	}

	if stock.Amount < upd.Amount {
		return s.fail(ctx, OpUpdate, upd.ProductID, ErrInsufficientStock, shortage(upd.Amount, stock))
	}

	return s.commit(ctx, OpUpdate, upd.ProductID, cart.WithAmount(idx, upd.Amount))
}

// commit persists next and only then publishes it.
func (s *CartService) commit(ctx context.Context, op Op, productID int64, next domain.Cart) (domain.Cart, error) {
	s.commitMu.Lock()
	if err := repository.SaveCart(ctx, s.store, s.key, next); err != nil {
		s.commitMu.Unlock()
		return s.fail(ctx, op, productID, ErrTransport, err)
	}
	s.state.publish(next)
	s.commitMu.Unlock()

	s.log.DebugContext(ctx, "cart updated", "op", op, "product_id", productID, "items", len(next))
	return next.Clone(), nil
}

func (s *CartService) fail(ctx context.Context, op Op, productID int64, kind, cause error) (domain.Cart, error) {
	opErr := &OpError{Op: op, ProductID: productID, Kind: kind, Err: cause}

	span := trace.SpanFromContext(ctx)
	span.RecordError(opErr)
	span.SetStatus(codes.Error, kind.Error())

	if kind == ErrInsufficientStock {
		s.log.InfoContext(ctx, "cart operation rejected", "op", op, "product_id", productID, "err", opErr)
	} else {
		s.log.WarnContext(ctx, "cart operation failed", "op", op, "product_id", productID, "err", opErr)
	}

	s.sink.Notify(ctx, notify.NewError(string(op), productID, s.messages.failure(op, kind)))
	return s.state.snapshot(), opErr
}

func (s *CartService) acquire(ctx context.Context) (func(), error) {
	if !s.serialize {
		return func() {}, nil
	}
	select {
	case s.sem <- struct{}{}:
		return func() { <-s.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *CartService) startSpan(ctx context.Context, name string, productID int64) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.Int64("product.id", productID)))
}

func lookupKind(err error, notFound error) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return notFound
	}
	return ErrTransport
}

func shortage(requested int, stock domain.Stock) error {
	return fmt.Errorf("requested %d, available %d", requested, stock.Amount)
}
