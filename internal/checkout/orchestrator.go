package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"finitefield.org/retail-console/internal/api"
	"finitefield.org/retail-console/internal/cart"
	"finitefield.org/retail-console/internal/session"
	"finitefield.org/retail-console/internal/transport"
)

// User-facing messages for the precondition failures.
const (
	MessageLoginRequired = "Please log in to place an order"
	MessageEmptyCart     = "Your cart is empty"
	MessageEmptyAddress  = "Please enter a shipping address"
)

var (
	// ErrLoginRequired is returned when no session is authenticated.
	ErrLoginRequired = errors.New("checkout: login required")
	// ErrEmptyCart is returned when the cart has no lines.
	ErrEmptyCart = errors.New("checkout: cart is empty")
	// ErrEmptyAddress is returned when the shipping address is blank.
	ErrEmptyAddress = errors.New("checkout: shipping address is empty")
	// ErrInProgress is returned when a submission is already running.
	ErrInProgress = errors.New("checkout: submission in progress")
	// ErrNotConfigured indicates a missing dependency.
	ErrNotConfigured = errors.New("checkout: not configured")
)

// SessionReader exposes the authenticated identity.
type SessionReader interface {
	Current() (session.Session, bool)
}

// Cart is the subset of the cart engine checkout reads and clears.
type Cart interface {
	Lines() []cart.Line
	Totals() cart.Totals
	IsEmpty() bool
	Clear()
}

// OrderSubmitter posts the order to the API.
type OrderSubmitter interface {
	CreateOrder(ctx context.Context, req api.OrderRequest, idempotencyKey string) (api.OrderCreated, error)
}

// Presenter is the user-facing surface checkout drives.
type Presenter interface {
	ShowLogin(ctx context.Context)
	Alert(ctx context.Context, message string)
	CloseCart(ctx context.Context)
	ClearAddress(ctx context.Context)
	OrderPlaced(ctx context.Context, receipt Receipt)
}

// Receipt summarises an accepted order.
type Receipt struct {
	OrderID      int64       `json:"orderId"`
	CustomerName string      `json:"customerName"`
	Totals       cart.Totals `json:"totals"`
	Message      string      `json:"message"`
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithKeyFunc overrides the idempotency key generator.
func WithKeyFunc(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newKey = fn
		}
	}
}

// Orchestrator validates and submits the cart as an order.
type Orchestrator struct {
	sessions  SessionReader
	cart      Cart
	submitter OrderSubmitter
	presenter Presenter
	logger    *zap.Logger
	newKey    func() string

	mu         sync.Mutex
	address    string
	submitting bool
}

// New constructs an Orchestrator.
func New(sessions SessionReader, c Cart, submitter OrderSubmitter, presenter Presenter, opts ...Option) (*Orchestrator, error) {
	if sessions == nil || c == nil || submitter == nil || presenter == nil {
		return nil, ErrNotConfigured
	}
	o := &Orchestrator{
		sessions:  sessions,
		cart:      c,
		submitter: submitter,
		presenter: presenter,
		logger:    zap.NewNop(),
		newKey:    func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.Named("checkout")
	return o, nil
}

// SetAddress records the shipping address field.
func (o *Orchestrator) SetAddress(address string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.address = address
}

// Address returns the shipping address field.
func (o *Orchestrator) Address() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.address
}

func (o *Orchestrator) reject(ctx context.Context, message string, cause error) error {
	o.presenter.Alert(ctx, message)
	return transport.Invalid(message, cause)
}

// Submit checks, in order, that a session exists, the cart has lines and an address is set,
// then posts the order. On success the cart and address are cleared; on failure both are kept.
func (o *Orchestrator) Submit(ctx context.Context) (Receipt, error) {
	o.mu.Lock()
	if o.submitting {
		o.mu.Unlock()
		return Receipt{}, ErrInProgress
	}
	o.submitting = true
	address := strings.TrimSpace(o.address)
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.submitting = false
		o.mu.Unlock()
	}()

	sess, ok := o.sessions.Current()
	if !ok {
		o.presenter.ShowLogin(ctx)
		return Receipt{}, o.reject(ctx, MessageLoginRequired, ErrLoginRequired)
	}
	if o.cart.IsEmpty() {
		return Receipt{}, o.reject(ctx, MessageEmptyCart, ErrEmptyCart)
	}
	if address == "" {
		return Receipt{}, o.reject(ctx, MessageEmptyAddress, ErrEmptyAddress)
	}

	lines := o.cart.Lines()
	totals := o.cart.Totals()
	req := api.OrderRequest{
		UserID:          sess.UserID,
		ShippingAddress: address,
		Items:           make([]api.OrderItem, 0, len(lines)),
	}
	for _, line := range lines {
		req.Items = append(req.Items, api.OrderItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	key := o.newKey()
	created, err := o.submitter.CreateOrder(ctx, req, key)
	if err != nil {
		o.logger.Info("order rejected",
			zap.String("idempotencyKey", key),
			zap.String("kind", string(transport.KindOf(err))),
			zap.Error(err),
		)
		o.presenter.Alert(ctx, "Error: "+transport.MessageOf(err))
		return Receipt{}, fmt.Errorf("checkout: submit order: %w", err)
	}

	receipt := Receipt{
		OrderID:      created.OrderID,
		CustomerName: sess.FullName,
		Totals:       totals,
		Message:      fmt.Sprintf("Your order has been received! (Order No: #%d) Thank you, %s!", created.OrderID, sess.FullName),
	}

	o.cart.Clear()
	o.mu.Lock()
	o.address = ""
	o.mu.Unlock()
	o.presenter.ClearAddress(ctx)
	o.presenter.CloseCart(ctx)
	o.presenter.OrderPlaced(ctx, receipt)

	o.logger.Info("order placed",
		zap.Int64("orderID", created.OrderID),
		zap.Int64("userID", sess.UserID),
		zap.Int("items", len(req.Items)),
		zap.String("idempotencyKey", key),
	)
	return receipt, nil
}
