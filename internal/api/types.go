package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Inventory thresholds the admin console sends when it updates stock.
const (
	DefaultLowStockThreshold  = 10
	DefaultHighStockThreshold = 100
)

func missing(field string) error {
	return fmt.Errorf("api: response missing required field %q", field)
}

type validatable interface {
	validate() error
}

func validateAll[T validatable](items []T) error {
	for i, item := range items {
		if err := item.validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// requireKeys reports the first key absent from a JSON object.
func requireKeys(data []byte, keys ...string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range keys {
		if _, ok := raw[key]; !ok {
			return missing(key)
		}
	}
	return nil
}

// User is an account as returned by /login and /users.
type User struct {
	UserID      int64   `json:"userid"`
	FullName    string  `json:"fullname"`
	Email       string  `json:"email"`
	Role        string  `json:"role"`
	PhoneNumber *string `json:"phonenumber,omitempty"`
}

func (u User) validate() error {
	switch {
	case u.UserID <= 0:
		return missing("userid")
	case strings.TrimSpace(u.Email) == "":
		return missing("email")
	case strings.TrimSpace(u.Role) == "":
		return missing("role")
	}
	return nil
}

// Users is the /users listing.
type Users []User

// Validate implements transport.Validator.
func (u *Users) Validate() error { return validateAll(*u) }

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body returned by POST /login.
type LoginResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

// Validate implements transport.Validator.
func (r *LoginResponse) Validate() error { return r.User.validate() }

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	FullName    string  `json:"full_name"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	PhoneNumber *string `json:"phone_number"`
	Role        string  `json:"role"`
}

// CreateUserResponse is the body returned by POST /users.
type CreateUserResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

// Validate implements transport.Validator.
func (r *CreateUserResponse) Validate() error {
	if r.UserID <= 0 {
		return missing("user_id")
	}
	return nil
}

// Product is a catalog entry joined with its category, supplier and stock.
type Product struct {
	ProductID     int64   `json:"productid"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	BasePrice     float64 `json:"baseprice"`
	CurrentPrice  float64 `json:"currentprice"`
	IsActive      bool    `json:"isactive"`
	CategoryID    int64   `json:"categoryid"`
	SupplierID    int64   `json:"supplierid"`
	CategoryName  string  `json:"category_name"`
	SupplierName  string  `json:"supplier_name"`
	StockQuantity int     `json:"stockquantity"`
}

func (p Product) validate() error {
	switch {
	case p.ProductID <= 0:
		return missing("productid")
	case strings.TrimSpace(p.Title) == "":
		return missing("title")
	}
	return nil
}

// ProductList is the body returned by GET /products.
type ProductList struct {
	Products []Product `json:"products"`
	Count    int       `json:"count"`
}

// Validate implements transport.Validator.
func (l *ProductList) Validate() error {
	if l.Products == nil {
		return missing("products")
	}
	return validateAll(l.Products)
}

// ProductQuery filters GET /products.
type ProductQuery struct {
	Search     string
	CategoryID int64
	Active     *bool
	MinStock   *int
}

// StorefrontQuery lists active products that have stock.
func StorefrontQuery(search string, categoryID int64) ProductQuery {
	active := true
	minStock := 1
	return ProductQuery{Search: search, CategoryID: categoryID, Active: &active, MinStock: &minStock}
}

// Values encodes the query string.
func (q ProductQuery) Values() url.Values {
	values := url.Values{}
	if s := strings.TrimSpace(q.Search); s != "" {
		values.Set("search", s)
	}
	if q.CategoryID > 0 {
		values.Set("category_id", strconv.FormatInt(q.CategoryID, 10))
	}
	if q.Active != nil {
		values.Set("is_active", strconv.FormatBool(*q.Active))
	}
	if q.MinStock != nil {
		values.Set("min_stock", strconv.Itoa(*q.MinStock))
	}
	return values
}

// CreateProductRequest is the body of POST /products.
type CreateProductRequest struct {
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	BasePrice    float64 `json:"base_price"`
	CurrentPrice float64 `json:"current_price"`
	IsActive     bool    `json:"is_active"`
	CategoryID   *int64  `json:"category_id"`
	SupplierID   *int64  `json:"supplier_id"`
}

// CreateProductResponse is the body returned by POST /products.
type CreateProductResponse struct {
	Message   string `json:"message"`
	ProductID int64  `json:"product_id"`
}

// Validate implements transport.Validator.
func (r *CreateProductResponse) Validate() error {
	if r.ProductID <= 0 {
		return missing("product_id")
	}
	return nil
}

// Category is a product category.
type Category struct {
	CategoryID   int64  `json:"categoryid"`
	CategoryName string `json:"categoryname"`
}

func (c Category) validate() error {
	if c.CategoryID <= 0 {
		return missing("categoryid")
	}
	if strings.TrimSpace(c.CategoryName) == "" {
		return missing("categoryname")
	}
	return nil
}

// Categories is the /categories listing.
type Categories []Category

// Validate implements transport.Validator.
func (c *Categories) Validate() error { return validateAll(*c) }

// Supplier is a supplier with the number of products it provides.
type Supplier struct {
	SupplierID   int64  `json:"supplierid"`
	CompanyName  string `json:"companyname"`
	ContactEmail string `json:"contactemail"`
	TaxNumber    string `json:"taxnumber"`
	Address      string `json:"address"`
	ProductCount int    `json:"product_count"`
}

func (s Supplier) validate() error {
	if s.SupplierID <= 0 {
		return missing("supplierid")
	}
	if strings.TrimSpace(s.CompanyName) == "" {
		return missing("companyname")
	}
	return nil
}

// Suppliers is the /suppliers listing.
type Suppliers []Supplier

// Validate implements transport.Validator.
func (s *Suppliers) Validate() error { return validateAll(*s) }

// SupplierInput is the body of POST and PUT /suppliers.
type SupplierInput struct {
	CompanyName  string `json:"company_name"`
	ContactEmail string `json:"contact_email,omitempty"`
	TaxNumber    string `json:"tax_number,omitempty"`
	Address      string `json:"address,omitempty"`
}

// CreateSupplierResponse is the body returned by POST /suppliers.
type CreateSupplierResponse struct {
	Message    string `json:"message"`
	SupplierID int64  `json:"supplier_id"`
}

// Validate implements transport.Validator.
func (r *CreateSupplierResponse) Validate() error {
	if r.SupplierID <= 0 {
		return missing("supplier_id")
	}
	return nil
}

// InventoryItem is a stock record joined with its product.
type InventoryItem struct {
	ProductID          int64   `json:"productid"`
	Title              string  `json:"title"`
	CurrentPrice       float64 `json:"currentprice"`
	StockQuantity      int     `json:"stockquantity"`
	LowStockThreshold  int     `json:"lowstockthreshold"`
	HighStockThreshold int     `json:"highstockthreshold"`
	LastRestockDate    string  `json:"lastrestockdate"`
	StockStatus        string  `json:"stock_status"`
}

func (i InventoryItem) validate() error {
	if strings.TrimSpace(i.Title) == "" {
		return missing("title")
	}
	return nil
}

// Inventory is the /inventory and /inventory/low-stock listing.
type Inventory []InventoryItem

// Validate implements transport.Validator.
func (i *Inventory) Validate() error { return validateAll(*i) }

// StockUpdate is the body of PUT /inventory/{id}.
type StockUpdate struct {
	StockQuantity      int `json:"stock_quantity"`
	LowStockThreshold  int `json:"low_stock_threshold"`
	HighStockThreshold int `json:"high_stock_threshold"`
}

// NewStockUpdate sets a quantity with the default thresholds.
func NewStockUpdate(quantity int) StockUpdate {
	return StockUpdate{
		StockQuantity:      quantity,
		LowStockThreshold:  DefaultLowStockThreshold,
		HighStockThreshold: DefaultHighStockThreshold,
	}
}

// Order is one row of the orders listing.
type Order struct {
	OrderID         int64   `json:"orderid"`
	OrderDate       string  `json:"orderdate"`
	Status          string  `json:"status"`
	TotalAmount     float64 `json:"totalamount"`
	ShippingAddress string  `json:"shippingaddress"`
	CustomerName    string  `json:"customer_name"`
	OrderItems      string  `json:"order_items"`
	Suppliers       string  `json:"suppliers"`
}

func (o Order) validate() error {
	if o.OrderID <= 0 {
		return missing("orderid")
	}
	return nil
}

// OrderPage is the body returned by GET /orders.
type OrderPage struct {
	Orders     []Order `json:"orders"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
}

// Validate implements transport.Validator.
func (p *OrderPage) Validate() error {
	if p.Orders == nil {
		return missing("orders")
	}
	if p.Page < 1 {
		return missing("page")
	}
	return validateAll(p.Orders)
}

// OrderItem is one requested product. Unit prices are never sent.
type OrderItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	UserID          int64       `json:"user_id"`
	ShippingAddress string      `json:"shipping_address"`
	Items           []OrderItem `json:"items"`
}

// OrderCreated is the body returned by POST /orders.
type OrderCreated struct {
	Message string `json:"message"`
	OrderID int64  `json:"order_id"`
}

// Validate implements transport.Validator.
func (o *OrderCreated) Validate() error {
	if o.OrderID <= 0 {
		return missing("order_id")
	}
	return nil
}

// PriceChange is one price history record.
type PriceChange struct {
	HistoryID  int64   `json:"historyid"`
	ProductID  int64   `json:"productid"`
	Title      string  `json:"title"`
	OldPrice   float64 `json:"oldprice"`
	NewPrice   float64 `json:"newprice"`
	ChangeDate string  `json:"changedate"`
	Reason     string  `json:"reason"`
}

func (p PriceChange) validate() error {
	if p.ProductID <= 0 {
		return missing("productid")
	}
	return nil
}

// PriceHistory is the /price-history listing, newest first.
type PriceHistory []PriceChange

// Validate implements transport.Validator.
func (h *PriceHistory) Validate() error { return validateAll(*h) }

// DashboardStats is the body returned by GET /dashboard/stats.
type DashboardStats struct {
	TotalProducts   int     `json:"total_products"`
	TotalCategories int     `json:"total_categories"`
	TotalOrders     int     `json:"total_orders"`
	TotalRevenue    float64 `json:"total_revenue"`
	LowStockCount   int     `json:"low_stock_count"`
	AveragePrice    float64 `json:"average_price"`
}

// UnmarshalJSON rejects payloads that omit any counter.
func (s *DashboardStats) UnmarshalJSON(data []byte) error {
	if err := requireKeys(data, "total_products", "total_categories", "total_orders", "total_revenue", "low_stock_count", "average_price"); err != nil {
		return err
	}
	type alias DashboardStats
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*s = DashboardStats(decoded)
	return nil
}

// CategoryShare is one slice of the category distribution.
type CategoryShare struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func (c CategoryShare) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return missing("name")
	}
	return nil
}

// CategoryDistribution is the body returned by GET /dashboard/category-distribution.
type CategoryDistribution []CategoryShare

// Validate implements transport.Validator.
func (d *CategoryDistribution) Validate() error { return validateAll(*d) }

// SupplierRevenue is revenue attributed to one supplier.
type SupplierRevenue struct {
	CompanyName  string  `json:"companyname"`
	TotalRevenue float64 `json:"total_revenue"`
}

func (s SupplierRevenue) validate() error {
	if strings.TrimSpace(s.CompanyName) == "" {
		return missing("companyname")
	}
	return nil
}

// SupplierRevenues is the body returned by GET /dashboard/supplier-revenue.
type SupplierRevenues []SupplierRevenue

// Validate implements transport.Validator.
func (s *SupplierRevenues) Validate() error { return validateAll(*s) }

// MonthlyRevenue is revenue for one month. The API returns newest first.
type MonthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

func (m MonthlyRevenue) validate() error {
	if strings.TrimSpace(m.Month) == "" {
		return missing("month")
	}
	return nil
}

// MonthlyRevenues is the body returned by GET /dashboard/monthly-revenue.
type MonthlyRevenues []MonthlyRevenue

// Validate implements transport.Validator.
func (m *MonthlyRevenues) Validate() error { return validateAll(*m) }

// TopSpender is one row of the VIP leaderboard, ranked by the API.
type TopSpender struct {
	FullName   string  `json:"fullname"`
	Email      string  `json:"email"`
	OrderCount int     `json:"order_count"`
	TotalSpent float64 `json:"total_spent"`
}

func (t TopSpender) validate() error {
	if strings.TrimSpace(t.FullName) == "" {
		return missing("fullname")
	}
	return nil
}

// TopSpenders is the body returned by GET /dashboard/vip-users.
type TopSpenders []TopSpender

// Validate implements transport.Validator.
func (t *TopSpenders) Validate() error { return validateAll(*t) }

// CampaignRequest is the body of POST /campaigns/apply.
type CampaignRequest struct {
	CategoryID         int64   `json:"category_id"`
	DiscountPercentage float64 `json:"discount_percentage"`
}

// Message is the acknowledgement returned by most writes.
type Message struct {
	Message string `json:"message"`
}

// ErrInvalidID is returned when a path identifier is not positive.
var ErrInvalidID = errors.New("api: identifier must be positive")
