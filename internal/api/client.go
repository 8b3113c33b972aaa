package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"finitefield.org/retail-console/internal/transport"
)

// IdempotencyHeader carries the per-attempt key on order submission.
const IdempotencyHeader = "Idempotency-Key"

// Client exposes the retail API endpoints with typed payloads. Reads follow the transport's
// Fetch semantics and report absence with a false ok; writes return errors after the
// transport has notified the user-facing surface.
type Client struct {
	transport *transport.Client
}

// New wraps a transport client.
func New(t *transport.Client) *Client {
	return &Client{transport: t}
}

func idPath(prefix string, id int64) (string, error) {
	if id <= 0 {
		return "", ErrInvalidID
	}
	return fmt.Sprintf("%s/%d", prefix, id), nil
}

// Login authenticates with email and password. Failures are returned without notification
// because the login form renders them itself.
func (c *Client) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	var out LoginResponse
	err := c.transport.Do(ctx, transport.Request{Method: http.MethodPost, Path: "/login", Body: req}, &out)
	return out, err
}

// CreateUser registers an account. Like Login, errors stay with the form.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (CreateUserResponse, error) {
	var out CreateUserResponse
	err := c.transport.Do(ctx, transport.Request{Method: http.MethodPost, Path: "/users", Body: req}, &out)
	return out, err
}

// Products lists catalog entries matching q.
func (c *Client) Products(ctx context.Context, q ProductQuery) ([]Product, bool) {
	var out ProductList
	if !c.transport.Fetch(ctx, "/products", q.Values(), &out) {
		return nil, false
	}
	return out.Products, true
}

// CreateProduct adds a product together with its inventory record.
func (c *Client) CreateProduct(ctx context.Context, req CreateProductRequest) (CreateProductResponse, error) {
	var out CreateProductResponse
	err := c.transport.Mutate(ctx, http.MethodPost, "/products", req, &out)
	return out, err
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, productID int64) error {
	path, err := idPath("/products", productID)
	if err != nil {
		return transport.Invalid("Invalid product", err)
	}
	return c.transport.Mutate(ctx, http.MethodDelete, path, nil, nil)
}

// Categories lists product categories.
func (c *Client) Categories(ctx context.Context) ([]Category, bool) {
	var out Categories
	if !c.transport.Fetch(ctx, "/categories", nil, &out) {
		return nil, false
	}
	return out, true
}

// Suppliers lists suppliers with their product counts.
func (c *Client) Suppliers(ctx context.Context) ([]Supplier, bool) {
	var out Suppliers
	if !c.transport.Fetch(ctx, "/suppliers", nil, &out) {
		return nil, false
	}
	return out, true
}

// CreateSupplier adds a supplier.
func (c *Client) CreateSupplier(ctx context.Context, in SupplierInput) (CreateSupplierResponse, error) {
	var out CreateSupplierResponse
	err := c.transport.Mutate(ctx, http.MethodPost, "/suppliers", in, &out)
	return out, err
}

// UpdateSupplier replaces a supplier's details.
func (c *Client) UpdateSupplier(ctx context.Context, supplierID int64, in SupplierInput) error {
	path, err := idPath("/suppliers", supplierID)
	if err != nil {
		return transport.Invalid("Invalid supplier", err)
	}
	return c.transport.Mutate(ctx, http.MethodPut, path, in, nil)
}

// DeleteSupplier removes a supplier.
func (c *Client) DeleteSupplier(ctx context.Context, supplierID int64) error {
	path, err := idPath("/suppliers", supplierID)
	if err != nil {
		return transport.Invalid("Invalid supplier", err)
	}
	return c.transport.Mutate(ctx, http.MethodDelete, path, nil, nil)
}

// Inventory lists stock levels with the server-side status.
func (c *Client) Inventory(ctx context.Context) ([]InventoryItem, bool) {
	var out Inventory
	if !c.transport.Fetch(ctx, "/inventory", nil, &out) {
		return nil, false
	}
	return out, true
}

// LowStock lists at most limit items below their low threshold.
func (c *Client) LowStock(ctx context.Context, limit int) ([]InventoryItem, bool) {
	var query url.Values
	if limit > 0 {
		query = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	var out Inventory
	if !c.transport.Fetch(ctx, "/inventory/low-stock", query, &out) {
		return nil, false
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, true
}

// UpdateStock sets the stock level of a product.
func (c *Client) UpdateStock(ctx context.Context, productID int64, update StockUpdate) error {
	path, err := idPath("/inventory", productID)
	if err != nil {
		return transport.Invalid("Invalid product", err)
	}
	return c.transport.Mutate(ctx, http.MethodPut, path, update, nil)
}

// Orders fetches one page of orders.
func (c *Client) Orders(ctx context.Context, page, limit int) (OrderPage, bool) {
	query := url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}
	var out OrderPage
	if !c.transport.Fetch(ctx, "/orders", query, &out) {
		return OrderPage{}, false
	}
	return out, true
}

// CreateOrder submits an order. The error is returned untouched so checkout can present it.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest, idempotencyKey string) (OrderCreated, error) {
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set(IdempotencyHeader, idempotencyKey)
	}
	var out OrderCreated
	err := c.transport.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/orders",
		Body:   req,
		Header: header,
	}, &out)
	return out, err
}

// PriceHistory lists price changes, newest first. A zero productID lists all products.
func (c *Client) PriceHistory(ctx context.Context, productID int64) ([]PriceChange, bool) {
	var query url.Values
	if productID > 0 {
		query = url.Values{"product_id": {strconv.FormatInt(productID, 10)}}
	}
	var out PriceHistory
	if !c.transport.Fetch(ctx, "/price-history", query, &out) {
		return nil, false
	}
	return out, true
}

// Users lists accounts.
func (c *Client) Users(ctx context.Context) ([]User, bool) {
	var out Users
	if !c.transport.Fetch(ctx, "/users", nil, &out) {
		return nil, false
	}
	return out, true
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, userID int64) error {
	path, err := idPath("/users", userID)
	if err != nil {
		return transport.Invalid("Invalid user", err)
	}
	return c.transport.Mutate(ctx, http.MethodDelete, path, nil, nil)
}

// ApplyCampaign discounts every product in a category.
func (c *Client) ApplyCampaign(ctx context.Context, req CampaignRequest) (Message, error) {
	var out Message
	err := c.transport.Mutate(ctx, http.MethodPost, "/campaigns/apply", req, &out)
	return out, err
}

// DashboardStats fetches the summary counters.
func (c *Client) DashboardStats(ctx context.Context) (DashboardStats, bool) {
	var out DashboardStats
	if !c.transport.Fetch(ctx, "/dashboard/stats", nil, &out) {
		return DashboardStats{}, false
	}
	return out, true
}

// CategoryDistribution fetches product counts per category.
func (c *Client) CategoryDistribution(ctx context.Context) ([]CategoryShare, bool) {
	var out CategoryDistribution
	if !c.transport.Fetch(ctx, "/dashboard/category-distribution", nil, &out) {
		return nil, false
	}
	return out, true
}

// SupplierRevenue fetches revenue per supplier.
func (c *Client) SupplierRevenue(ctx context.Context) ([]SupplierRevenue, bool) {
	var out SupplierRevenues
	if !c.transport.Fetch(ctx, "/dashboard/supplier-revenue", nil, &out) {
		return nil, false
	}
	return out, true
}

// MonthlyRevenue fetches revenue per month, newest first.
func (c *Client) MonthlyRevenue(ctx context.Context) ([]MonthlyRevenue, bool) {
	var out MonthlyRevenues
	if !c.transport.Fetch(ctx, "/dashboard/monthly-revenue", nil, &out) {
		return nil, false
	}
	return out, true
}

// TopSpenders fetches the VIP leaderboard.
func (c *Client) TopSpenders(ctx context.Context) ([]TopSpender, bool) {
	var out TopSpenders
	if !c.transport.Fetch(ctx, "/dashboard/vip-users", nil, &out) {
		return nil, false
	}
	return out, true
}
