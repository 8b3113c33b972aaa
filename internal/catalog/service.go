package catalog

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/retail-console/internal/api"
	"finitefield.org/retail-console/internal/format"
	"finitefield.org/retail-console/internal/metrics"
	"finitefield.org/retail-console/internal/textutil"
	"finitefield.org/retail-console/internal/transport"
)

// Campaign discount bounds, inclusive.
const (
	MinDiscount = 1
	MaxDiscount = 99
)

var (
	// ErrInvalidProduct is returned when a product form fails local validation.
	ErrInvalidProduct = errors.New("catalog: invalid product")
	// ErrInvalidStock is returned for negative stock quantities.
	ErrInvalidStock = errors.New("catalog: invalid stock quantity")
	// ErrInvalidDiscount is returned when a campaign discount is out of range.
	ErrInvalidDiscount = errors.New("catalog: invalid discount")
	// ErrInvalidSupplier is returned when a supplier form fails local validation.
	ErrInvalidSupplier = errors.New("catalog: invalid supplier")
)

// API is the subset of the API client used by the catalog views.
type API interface {
	Products(ctx context.Context, q api.ProductQuery) ([]api.Product, bool)
	CreateProduct(ctx context.Context, req api.CreateProductRequest) (api.CreateProductResponse, error)
	DeleteProduct(ctx context.Context, productID int64) error
	Categories(ctx context.Context) ([]api.Category, bool)
	Inventory(ctx context.Context) ([]api.InventoryItem, bool)
	UpdateStock(ctx context.Context, productID int64, update api.StockUpdate) error
	PriceHistory(ctx context.Context, productID int64) ([]api.PriceChange, bool)
	Suppliers(ctx context.Context) ([]api.Supplier, bool)
	CreateSupplier(ctx context.Context, in api.SupplierInput) (api.CreateSupplierResponse, error)
	UpdateSupplier(ctx context.Context, supplierID int64, in api.SupplierInput) error
	DeleteSupplier(ctx context.Context, supplierID int64) error
	ApplyCampaign(ctx context.Context, req api.CampaignRequest) (api.Message, error)
}

// Service prepares catalog listings and performs admin catalog writes.
type Service struct {
	api    API
	format *format.Formatter
	logger *zap.Logger
}

// NewService constructs a Service.
func NewService(client API, f *format.Formatter, logger *zap.Logger) *Service {
	if f == nil {
		f = format.New("", "en")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: client, format: f, logger: logger.Named("catalog")}
}

// ProductCard is a storefront tile.
type ProductCard struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Category    string             `json:"category"`
	Price       string             `json:"price"`
	UnitPrice   float64            `json:"unitPrice"`
	Stock       int                `json:"stock"`
	Level       metrics.StockLevel `json:"level"`
}

// Storefront lists active, in-stock products matching search and category.
func (s *Service) Storefront(ctx context.Context, search string, categoryID int64) ([]ProductCard, bool) {
	products, ok := s.api.Products(ctx, api.StorefrontQuery(search, categoryID))
	if !ok {
		return nil, false
	}
	cards := make([]ProductCard, 0, len(products))
	for _, p := range products {
		cards = append(cards, ProductCard{
			ID:          p.ProductID,
			Title:       textutil.Plain(p.Title),
			Description: textutil.Plain(p.Description),
			Category:    textutil.Plain(p.CategoryName),
			Price:       s.format.Currency(p.CurrentPrice),
			UnitPrice:   p.CurrentPrice,
			Stock:       p.StockQuantity,
			Level:       metrics.StockBadge(p.StockQuantity),
		})
	}
	return cards, true
}

// CategoryOption is one entry of the category filter.
type CategoryOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Categories lists the category filter options.
func (s *Service) Categories(ctx context.Context) ([]CategoryOption, bool) {
	categories, ok := s.api.Categories(ctx)
	if !ok {
		return nil, false
	}
	out := make([]CategoryOption, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryOption{ID: c.CategoryID, Name: textutil.Plain(c.CategoryName)})
	}
	return out, true
}

// ProductRow is one row of the admin product table.
type ProductRow struct {
	ID           int64              `json:"id"`
	Title        string             `json:"title"`
	Category     string             `json:"category"`
	Supplier     string             `json:"supplier"`
	BasePrice    string             `json:"basePrice"`
	CurrentPrice string             `json:"currentPrice"`
	Stock        int                `json:"stock"`
	Level        metrics.StockLevel `json:"level"`
	Tone         string             `json:"tone"`
	Active       bool               `json:"active"`
}

// Products lists every product for the admin table.
func (s *Service) Products(ctx context.Context) ([]ProductRow, bool) {
	products, ok := s.api.Products(ctx, api.ProductQuery{})
	if !ok {
		return nil, false
	}
	rows := make([]ProductRow, 0, len(products))
	for _, p := range products {
		level := metrics.StockBadge(p.StockQuantity)
		rows = append(rows, ProductRow{
			ID:           p.ProductID,
			Title:        textutil.Plain(p.Title),
			Category:     textutil.Plain(p.CategoryName),
			Supplier:     textutil.Plain(p.SupplierName),
			BasePrice:    s.format.Currency(p.BasePrice),
			CurrentPrice: s.format.Currency(p.CurrentPrice),
			Stock:        p.StockQuantity,
			Level:        level,
			Tone:         level.Tone(),
			Active:       p.IsActive,
		})
	}
	return rows, true
}

// ProductInput is the admin product form.
type ProductInput struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	BasePrice    float64 `json:"basePrice"`
	CurrentPrice float64 `json:"currentPrice"`
	CategoryID   int64   `json:"categoryId"`
	SupplierID   int64   `json:"supplierId"`
}

// CreateProduct validates the form and creates an active product.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (int64, error) {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return 0, transport.Invalid("Title is required", ErrInvalidProduct)
	case in.BasePrice <= 0 || math.IsNaN(in.BasePrice):
		return 0, transport.Invalid("Base price must be greater than zero", ErrInvalidProduct)
	case in.CurrentPrice <= 0 || math.IsNaN(in.CurrentPrice):
		return 0, transport.Invalid("Current price must be greater than zero", ErrInvalidProduct)
	}
	req := api.CreateProductRequest{
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		BasePrice:    in.BasePrice,
		CurrentPrice: in.CurrentPrice,
		IsActive:     true,
	}
	if in.CategoryID > 0 {
		id := in.CategoryID
		req.CategoryID = &id
	}
	if in.SupplierID > 0 {
		id := in.SupplierID
		req.SupplierID = &id
	}
	resp, err := s.api.CreateProduct(ctx, req)
	if err != nil {
		return 0, err
	}
	s.logger.Info("product created", zap.Int64("productID", resp.ProductID))
	return resp.ProductID, nil
}

// DeleteProduct removes a product.
func (s *Service) DeleteProduct(ctx context.Context, productID int64) error {
	if err := s.api.DeleteProduct(ctx, productID); err != nil {
		return err
	}
	s.logger.Info("product deleted", zap.Int64("productID", productID))
	return nil
}

// InventoryRow is one row of the stock management table.
type InventoryRow struct {
	ProductID   int64              `json:"productId"`
	Title       string             `json:"title"`
	Price       string             `json:"price"`
	Stock       int                `json:"stock"`
	Low         int                `json:"low"`
	High        int                `json:"high"`
	LastRestock string             `json:"lastRestock"`
	Level       metrics.StockLevel `json:"level"`
	Tone        string             `json:"tone"`
}

// Inventory lists stock levels classified against each item's thresholds.
func (s *Service) Inventory(ctx context.Context) ([]InventoryRow, bool) {
	items, ok := s.api.Inventory(ctx)
	if !ok {
		return nil, false
	}
	rows := make([]InventoryRow, 0, len(items))
	for _, item := range items {
		level := metrics.ClassifyStock(item.StockQuantity, item.LowStockThreshold, item.HighStockThreshold)
		if server, ok := metrics.ParseStockLevel(item.StockStatus); ok && server != level {
			s.logger.Debug("stock status disagrees with thresholds",
				zap.Int64("productID", item.ProductID),
				zap.String("server", string(server)),
				zap.String("client", string(level)),
			)
		}
		rows = append(rows, InventoryRow{
			ProductID:   item.ProductID,
			Title:       textutil.Plain(item.Title),
			Price:       s.format.Currency(item.CurrentPrice),
			Stock:       item.StockQuantity,
			Low:         item.LowStockThreshold,
			High:        item.HighStockThreshold,
			LastRestock: format.Date(item.LastRestockDate),
			Level:       level,
			Tone:        level.Tone(),
		})
	}
	return rows, true
}

// UpdateStock sets a product's stock with the default thresholds.
func (s *Service) UpdateStock(ctx context.Context, productID int64, quantity int) error {
	if quantity < 0 {
		return transport.Invalid("Stock quantity cannot be negative", ErrInvalidStock)
	}
	if err := s.api.UpdateStock(ctx, productID, api.NewStockUpdate(quantity)); err != nil {
		return err
	}
	s.logger.Info("stock updated", zap.Int64("productID", productID), zap.Int("quantity", quantity))
	return nil
}

// ApplyCampaign discounts a category by a whole percentage between MinDiscount and MaxDiscount.
func (s *Service) ApplyCampaign(ctx context.Context, categoryID int64, discount float64) (string, error) {
	if categoryID <= 0 {
		return "", transport.Invalid("Please choose a category", ErrInvalidDiscount)
	}
	if math.IsNaN(discount) || discount < MinDiscount || discount > MaxDiscount {
		return "", transport.Invalid("Discount must be between 1 and 99", ErrInvalidDiscount)
	}
	msg, err := s.api.ApplyCampaign(ctx, api.CampaignRequest{CategoryID: categoryID, DiscountPercentage: discount})
	if err != nil {
		return "", err
	}
	s.logger.Info("campaign applied", zap.Int64("categoryID", categoryID), zap.Float64("discount", discount))
	return msg.Message, nil
}
