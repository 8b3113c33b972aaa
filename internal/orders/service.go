// Package orders pages through the admin order listing.
package orders

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"finitefield.org/retail-console/internal/api"
	"finitefield.org/retail-console/internal/format"
	"finitefield.org/retail-console/internal/metrics"
	"finitefield.org/retail-console/internal/textutil"
)

// API is the subset of the API client used for orders.
type API interface {
	Orders(ctx context.Context, page, limit int) (api.OrderPage, bool)
}

// Row is one order in the listing.
type Row struct {
	ID        int64  `json:"id"`
	Date      string `json:"date"`
	Customer  string `json:"customer"`
	Items     string `json:"items"`
	Suppliers string `json:"suppliers"`
	Address   string `json:"address"`
	Total     string `json:"total"`
	Status    string `json:"status"`
	Tone      string `json:"tone"`
}

// Listing is one loaded page.
type Listing struct {
	Rows    []Row  `json:"rows"`
	Page    int    `json:"page"`
	Pages   int    `json:"pages"`
	Label   string `json:"label"`
	HasPrev bool   `json:"hasPrev"`
	HasNext bool   `json:"hasNext"`
}

// Service keeps the current page position between loads.
type Service struct {
	api    API
	format *format.Formatter
	logger *zap.Logger

	mu   sync.Mutex
	page metrics.Pagination
}

// NewService constructs a Service starting on page one.
func NewService(client API, pageSize int, f *format.Formatter, logger *zap.Logger) *Service {
	if f == nil {
		f = format.New("", "en")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		api:    client,
		format: f,
		logger: logger.Named("orders"),
		page:   metrics.NewPagination(pageSize),
	}
}

// Pagination returns the current position.
func (s *Service) Pagination() metrics.Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Reset returns to the first page.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = metrics.NewPagination(s.page.PageSize)
}

// Load fetches the current page.
func (s *Service) Load(ctx context.Context) (Listing, bool) {
	s.mu.Lock()
	current := s.page
	s.mu.Unlock()
	return s.load(ctx, current)
}

// Next moves forward one page and loads it. On the last page it reloads in place.
func (s *Service) Next(ctx context.Context) (Listing, bool) {
	s.mu.Lock()
	target := s.page.Next()
	s.mu.Unlock()
	return s.load(ctx, target)
}

// Prev moves back one page and loads it. On the first page it reloads in place.
func (s *Service) Prev(ctx context.Context) (Listing, bool) {
	s.mu.Lock()
	target := s.page.Prev()
	s.mu.Unlock()
	return s.load(ctx, target)
}

// The position only advances once the requested page has loaded.
func (s *Service) load(ctx context.Context, target metrics.Pagination) (Listing, bool) {
	page, ok := s.api.Orders(ctx, target.Page, target.PageSize)
	if !ok {
		return Listing{}, false
	}
	s.mu.Lock()
	s.page = s.page.WithTotal(page.Page, page.TotalPages)
	current := s.page
	s.mu.Unlock()

	rows := make([]Row, 0, len(page.Orders))
	for _, o := range page.Orders {
		rows = append(rows, Row{
			ID:        o.OrderID,
			Date:      format.Date(o.OrderDate),
			Customer:  textutil.Plain(o.CustomerName),
			Items:     textutil.Plain(o.OrderItems),
			Suppliers: textutil.Plain(o.Suppliers),
			Address:   textutil.Plain(o.ShippingAddress),
			Total:     s.format.Currency(o.TotalAmount),
			Status:    o.Status,
			Tone:      format.OrderStatusTone(o.Status),
		})
	}
	s.logger.Debug("orders loaded", zap.Int("page", current.Page), zap.Int("pages", current.TotalPages), zap.Int("rows", len(rows)))
	return Listing{
		Rows:    rows,
		Page:    current.Page,
		Pages:   current.TotalPages,
		Label:   current.Label(),
		HasPrev: current.HasPrev(),
		HasNext: current.HasNext(),
	}, true
}
