// Package app holds the console state: session, cart, checkout, dashboard and the
// admin listing services, driven by user actions one at a time.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"finitefield.org/retail-console/internal/accounts"
	"finitefield.org/retail-console/internal/cart"
	"finitefield.org/retail-console/internal/catalog"
	"finitefield.org/retail-console/internal/checkout"
	"finitefield.org/retail-console/internal/dashboard"
	"finitefield.org/retail-console/internal/format"
	"finitefield.org/retail-console/internal/orders"
	"finitefield.org/retail-console/internal/rbac"
	"finitefield.org/retail-console/internal/session"
	"finitefield.org/retail-console/internal/transport"
)

var (
	// ErrNotConfigured indicates a missing dependency.
	ErrNotConfigured = errors.New("app: not configured")
	// ErrForbidden is returned when the current role lacks a page's capability.
	ErrForbidden = errors.New("app: forbidden")
	// ErrUnknownPage is returned for pages the console does not have.
	ErrUnknownPage = errors.New("app: unknown page")
	// ErrProductUnavailable is returned when a product cannot be added to the cart.
	ErrProductUnavailable = errors.New("app: product unavailable")
	// ErrLoginRequired is returned when an anonymous visitor tries to shop.
	ErrLoginRequired = errors.New("app: login required")
	// ErrCatalogUnavailable is returned when the product listing could not be loaded.
	ErrCatalogUnavailable = errors.New("app: catalog unavailable")
)

const (
	MessageLoginRequired      = "Please log in to start shopping"
	MessageProductUnavailable = "This product is not available"
	MessageCatalogUnavailable = "Products could not be loaded, please try again"
)

var _ transport.Notifier = (*View)(nil)

// API is everything the console reads from and writes to the remote service.
type API interface {
	session.Authenticator
	checkout.OrderSubmitter
	dashboard.Feed
	catalog.API
	orders.API
	accounts.API
}

// Deps wires a State.
type Deps struct {
	API             API
	Store           session.Store
	View            *View
	Formatter       *format.Formatter
	Logger          *zap.Logger
	Tracer          trace.Tracer
	LowStockLimit   int
	TopSpenderLimit int
	OrdersPageSize  int
	KeyFunc         func() string
}

// State owns every piece of client-side state. User actions are serialised on mu;
// dashboard fetches run outside it so navigation can supersede them.
type State struct {
	view      *View
	sessions  *session.Manager
	cart      *cart.Cart
	checkout  *checkout.Orchestrator
	dashboard *dashboard.Aggregator
	catalog   *catalog.Service
	orders    *orders.Service
	accounts  *accounts.Service
	format    *format.Formatter
	logger    *zap.Logger

	mu     sync.Mutex
	listed map[int64]catalog.ProductCard
}

// New wires the session manager, cart, checkout and dashboard around deps.
func New(deps Deps) (*State, error) {
	if deps.API == nil || deps.Store == nil {
		return nil, fmt.Errorf("%w: api and store are required", ErrNotConfigured)
	}
	view := deps.View
	if view == nil {
		view = NewView(deps.Logger)
	}
	f := deps.Formatter
	if f == nil {
		f = format.New("", "en")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &State{
		view:     view,
		cart:     cart.New(),
		catalog:  catalog.NewService(deps.API, f, logger),
		orders:   orders.NewService(deps.API, deps.OrdersPageSize, f, logger),
		accounts: accounts.NewService(deps.API, logger),
		format:   f,
		logger:   logger.Named("app"),
		listed:   make(map[int64]catalog.ProductCard),
	}

	sessions, err := session.NewManager(deps.API, deps.Store,
		session.WithLogger(logger),
		session.WithLogoutHook(s.onLogout),
	)
	if err != nil {
		return nil, err
	}
	s.sessions = sessions

	s.checkout, err = checkout.New(sessions, s.cart, deps.API, view,
		checkout.WithLogger(logger),
		checkout.WithKeyFunc(deps.KeyFunc),
	)
	if err != nil {
		return nil, err
	}

	s.dashboard, err = dashboard.New(deps.API, view, dashboard.Config{
		LowStockLimit:   deps.LowStockLimit,
		TopSpenderLimit: deps.TopSpenderLimit,
		Formatter:       f,
		Logger:          logger,
		Tracer:          deps.Tracer,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// View returns the presentation state.
func (s *State) View() *View { return s.view }

// Cart exposes the cart engine.
func (s *State) Cart() *cart.Cart { return s.cart }

// Sessions exposes the session manager.
func (s *State) Sessions() *session.Manager { return s.sessions }

// Dashboard exposes the aggregator.
func (s *State) Dashboard() *dashboard.Aggregator { return s.dashboard }

func (s *State) onLogout(ctx context.Context) {
	s.cart.Clear()
	clear(s.listed)
	s.orders.Reset()
	s.dashboard.Deactivate()
	s.view.CloseCart(ctx)
	s.view.setPage(PageStorefront)
}

// Can reports whether the current role grants capability.
func (s *State) Can(capability rbac.Capability) bool {
	return s.sessions.Can(capability)
}

// Restore rehydrates a stored session.
func (s *State) Restore(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Restore(ctx)
}

// Login authenticates and closes the login form.
func (s *State) Login(ctx context.Context, email, password string) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.sessions.Login(ctx, email, password)
	if err != nil {
		return session.Session{}, err
	}
	s.view.hideLogin()
	s.view.flash(FlashSuccess, "Welcome, "+sess.FullName+"!")
	return sess, nil
}

// Register creates a customer account and reopens the login form prefilled.
func (s *State) Register(ctx context.Context, req session.RegisterRequest) (session.RegisterResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, err := s.sessions.Register(ctx, req)
	if err != nil {
		return session.RegisterResult{}, err
	}
	s.view.showLoginWith(result.PrefillEmail)
	s.view.flash(FlashSuccess, "Registration successful! Please log in.")
	return result, nil
}

// Logout ends the session. The logout hook empties the cart.
func (s *State) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Logout(ctx)
}

// ShowLogin opens the login form.
func (s *State) ShowLogin(ctx context.Context) {
	s.view.ShowLogin(ctx)
}

// Identity describes the signed-in user for the header.
type Identity struct {
	Authenticated bool              `json:"authenticated"`
	UserID        int64             `json:"userId,omitempty"`
	FullName      string            `json:"fullName,omitempty"`
	Email         string            `json:"email,omitempty"`
	Role          string            `json:"role,omitempty"`
	Badge         string            `json:"badge,omitempty"`
	Capabilities  []rbac.Capability `json:"capabilities"`
	DashboardLink bool              `json:"dashboardLink"`
}

// Identity returns the header identity.
func (s *State) Identity() Identity {
	sess, ok := s.sessions.Current()
	id := Identity{
		Authenticated: ok,
		Capabilities:  rbac.Capabilities(sess.Role),
		DashboardLink: ok && rbac.HasCapability(sess.Role, rbac.CapDashboardView),
	}
	if !ok {
		return id
	}
	id.UserID = sess.UserID
	id.FullName = sess.FullName
	id.Email = sess.Email
	id.Role = sess.Role
	id.Badge, _ = rbac.Badge(sess.Role)
	return id
}

// Navigate switches page. Leaving the dashboard supersedes its pending fetches;
// entering it starts a fresh activation.
func (s *State) Navigate(ctx context.Context, page Page) (dashboard.Snapshot, error) {
	capability, ok := page.Capability()
	if !ok {
		return dashboard.Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownPage, page)
	}

	s.mu.Lock()
	if !s.sessions.Can(capability) {
		s.mu.Unlock()
		return dashboard.Snapshot{}, ErrForbidden
	}
	previous := s.view.Page()
	if previous == PageDashboard {
		s.dashboard.Deactivate()
	}
	s.view.setPage(page)
	if page == PageOrders && previous != PageOrders {
		s.orders.Reset()
	}
	s.mu.Unlock()

	if page != PageDashboard {
		return dashboard.Snapshot{}, nil
	}
	return s.dashboard.Activate(ctx), nil
}

// refreshDashboard reactivates the dashboard when it is on screen.
func (s *State) refreshDashboard(ctx context.Context) {
	if s.view.Page() != PageDashboard {
		return
	}
	s.dashboard.Deactivate()
	s.dashboard.Activate(ctx)
}

// CartLine is a cart row formatted for display.
type CartLine struct {
	ProductID int64  `json:"productId"`
	Title     string `json:"title"`
	UnitPrice string `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

// CartView is the cart panel.
type CartView struct {
	Lines         []CartLine `json:"lines"`
	TotalQuantity int        `json:"totalQuantity"`
	TotalAmount   string     `json:"totalAmount"`
	Empty         bool       `json:"empty"`
}

// CartView formats the cart.
func (s *State) CartView() CartView {
	lines := s.cart.Lines()
	totals := s.cart.Totals()
	out := CartView{
		Lines:         make([]CartLine, 0, len(lines)),
		TotalQuantity: totals.TotalQuantity,
		TotalAmount:   s.format.Currency(totals.TotalAmount),
		Empty:         len(lines) == 0,
	}
	for _, line := range lines {
		out.Lines = append(out.Lines, CartLine{
			ProductID: line.ProductID,
			Title:     line.Title,
			UnitPrice: s.format.Currency(line.UnitPrice),
			Quantity:  line.Quantity,
			Subtotal:  s.format.Currency(line.Subtotal()),
		})
	}
	return out
}

// requireShopper opens the login form when nobody is signed in.
func (s *State) requireShopper(ctx context.Context, capability rbac.Capability) error {
	if s.sessions.Can(capability) {
		return nil
	}
	s.view.ShowLogin(ctx)
	s.view.Alert(ctx, MessageLoginRequired)
	return transport.Invalid(MessageLoginRequired, ErrLoginRequired)
}

// remember records the storefront cards on screen. Callers hold mu.
func (s *State) remember(cards []catalog.ProductCard) {
	for _, card := range cards {
		s.listed[card.ID] = card
	}
}

// AddToCart adds one unit of a product at the price shown in the storefront listing. Products
// not listed yet are looked up with a fresh listing.
func (s *State) AddToCart(ctx context.Context, productID int64) (cart.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireShopper(ctx, rbac.CapCart); err != nil {
		return cart.Line{}, err
	}

	product, ok := s.listed[productID]
	if !ok {
		cards, available := s.catalog.Storefront(ctx, "", 0)
		if !available {
			s.view.Alert(ctx, MessageCatalogUnavailable)
			return cart.Line{}, &transport.Error{Kind: transport.KindConnectivity, Message: MessageCatalogUnavailable, Err: ErrCatalogUnavailable}
		}
		s.remember(cards)
		product, ok = s.listed[productID]
	}
	if !ok {
		s.view.Alert(ctx, MessageProductUnavailable)
		return cart.Line{}, transport.Invalid(MessageProductUnavailable, ErrProductUnavailable)
	}
	line := s.cart.Add(product.ID, product.Title, product.UnitPrice)
	s.view.flash(FlashInfo, product.Title+" added to cart")
	return line, nil
}

// RemoveFromCart drops a line.
func (s *State) RemoveFromCart(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Remove(productID)
}

// SetCartQuantity changes a line's quantity; zero or less removes it.
func (s *State) SetCartQuantity(productID int64, quantity int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.SetQuantity(productID, quantity)
}

// OpenCart shows the cart panel.
func (s *State) OpenCart() { s.view.OpenCart() }

// CloseCart hides the cart panel.
func (s *State) CloseCart(ctx context.Context) { s.view.CloseCart(ctx) }

// SetAddress records the shipping address field.
func (s *State) SetAddress(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkout.SetAddress(address)
	s.view.setAddress(address)
}

// Checkout submits the cart.
func (s *State) Checkout(ctx context.Context) (checkout.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkout.Submit(ctx)
}

// Surface returns the presentation state and consumes pending flashes.
func (s *State) Surface() Surface {
	return s.view.Surface()
}

// Storefront lists purchasable products for a signed-in shopper.
func (s *State) Storefront(ctx context.Context, search string, categoryID int64) ([]catalog.ProductCard, bool) {
	if !s.sessions.Can(rbac.CapStorefrontBrowse) {
		s.view.ShowLogin(ctx)
		return nil, false
	}
	cards, ok := s.catalog.Storefront(ctx, strings.TrimSpace(search), categoryID)
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	s.remember(cards)
	s.mu.Unlock()
	return cards, true
}

// Categories lists the category filter.
func (s *State) Categories(ctx context.Context) ([]catalog.CategoryOption, bool) {
	if !s.sessions.Can(rbac.CapStorefrontBrowse) {
		return nil, false
	}
	return s.catalog.Categories(ctx)
}

// mutate runs an admin write. Server failures were already notified by the
// transport; validation failures are alerted here.
func (s *State) mutate(ctx context.Context, success string, refresh bool, fn func() error) error {
	s.mu.Lock()
	err := fn()
	s.mu.Unlock()
	switch {
	case err == nil:
		s.view.flash(FlashSuccess, success)
		if refresh {
			s.refreshDashboard(ctx)
		}
	case transport.KindOf(err) == transport.KindValidation:
		s.view.Alert(ctx, transport.MessageOf(err))
	}
	return err
}

// Products lists every product.
func (s *State) Products(ctx context.Context) ([]catalog.ProductRow, bool) {
	return s.catalog.Products(ctx)
}

// CreateProduct adds a product.
func (s *State) CreateProduct(ctx context.Context, in catalog.ProductInput) (int64, error) {
	var id int64
	err := s.mutate(ctx, "Product created", true, func() error {
		var err error
		id, err = s.catalog.CreateProduct(ctx, in)
		return err
	})
	return id, err
}

// DeleteProduct removes a product.
func (s *State) DeleteProduct(ctx context.Context, productID int64) error {
	return s.mutate(ctx, "Product deleted", true, func() error {
		return s.catalog.DeleteProduct(ctx, productID)
	})
}

// Inventory lists stock levels.
func (s *State) Inventory(ctx context.Context) ([]catalog.InventoryRow, bool) {
	return s.catalog.Inventory(ctx)
}

// UpdateStock sets a product's stock.
func (s *State) UpdateStock(ctx context.Context, productID int64, quantity int) error {
	return s.mutate(ctx, "Stock updated", true, func() error {
		return s.catalog.UpdateStock(ctx, productID, quantity)
	})
}

// OrdersPage moves through the order listing. direction is "next", "prev" or empty to reload.
func (s *State) OrdersPage(ctx context.Context, direction string) (orders.Listing, bool) {
	switch direction {
	case "next":
		return s.orders.Next(ctx)
	case "prev":
		return s.orders.Prev(ctx)
	default:
		return s.orders.Load(ctx)
	}
}

// PriceHistory lists price changes, optionally for one product.
func (s *State) PriceHistory(ctx context.Context, productID int64) ([]catalog.PriceHistoryRow, bool) {
	return s.catalog.PriceHistory(ctx, productID)
}

// PriceChart plots one product's prices.
func (s *State) PriceChart(ctx context.Context, productID int64) (catalog.PriceSeries, bool) {
	return s.catalog.PriceChart(ctx, productID)
}

// Users lists accounts.
func (s *State) Users(ctx context.Context) ([]accounts.Row, bool) {
	return s.accounts.Users(ctx)
}

// DeleteUser removes an account other than the signed-in one.
func (s *State) DeleteUser(ctx context.Context, userID int64) error {
	sess, _ := s.sessions.Current()
	return s.mutate(ctx, "User deleted", false, func() error {
		return s.accounts.DeleteUser(ctx, userID, sess.UserID)
	})
}

// Suppliers lists suppliers.
func (s *State) Suppliers(ctx context.Context) ([]catalog.SupplierRow, bool) {
	return s.catalog.Suppliers(ctx)
}

// CreateSupplier adds a supplier.
func (s *State) CreateSupplier(ctx context.Context, in catalog.SupplierInput) (int64, error) {
	var id int64
	err := s.mutate(ctx, "Supplier created", false, func() error {
		var err error
		id, err = s.catalog.CreateSupplier(ctx, in)
		return err
	})
	return id, err
}

// UpdateSupplier edits a supplier.
func (s *State) UpdateSupplier(ctx context.Context, supplierID int64, in catalog.SupplierInput) error {
	return s.mutate(ctx, "Supplier updated", false, func() error {
		return s.catalog.UpdateSupplier(ctx, supplierID, in)
	})
}

// DeleteSupplier removes a supplier.
func (s *State) DeleteSupplier(ctx context.Context, supplierID int64) error {
	return s.mutate(ctx, "Supplier deleted", false, func() error {
		return s.catalog.DeleteSupplier(ctx, supplierID)
	})
}

// ApplyCampaign discounts a category and reports the server's summary.
func (s *State) ApplyCampaign(ctx context.Context, categoryID int64, discount float64) (string, error) {
	var message string
	err := s.mutate(ctx, "", true, func() error {
		var err error
		message, err = s.catalog.ApplyCampaign(ctx, categoryID, discount)
		return err
	})
	if err == nil {
		s.view.flash(FlashSuccess, message)
	}
	return message, err
}
