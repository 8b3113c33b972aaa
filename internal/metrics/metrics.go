// Package metrics derives display values from raw API numbers: stock classification,
// price deltas, leaderboard ranks and pagination.
package metrics

import (
	"errors"
	"math"
	"strconv"
)

// Fixed thresholds used by product listings, which carry no per-item thresholds.
const (
	ListingLowStock  = 10
	ListingHighStock = 100
)

// ErrNoPriorPrice is returned when a percentage change is requested against a zero price.
var ErrNoPriorPrice = errors.New("metrics: no prior price")

// StockLevel classifies a stock quantity against its thresholds.
type StockLevel string

const (
	StockLow    StockLevel = "LOW"
	StockNormal StockLevel = "NORMAL"
	StockHigh   StockLevel = "HIGH"
)

// Tone maps the level to a badge tone.
func (l StockLevel) Tone() string {
	switch l {
	case StockLow:
		return "danger"
	case StockHigh:
		return "info"
	default:
		return "success"
	}
}

// Label is the badge text.
func (l StockLevel) Label() string {
	switch l {
	case StockLow:
		return "Low"
	case StockHigh:
		return "High"
	default:
		return "Normal"
	}
}

// ClassifyStock is LOW below low, HIGH above high and NORMAL in between, bounds inclusive.
func ClassifyStock(qty, low, high int) StockLevel {
	switch {
	case qty < low:
		return StockLow
	case qty > high:
		return StockHigh
	default:
		return StockNormal
	}
}

// ParseStockLevel accepts the API's stock_status values.
func ParseStockLevel(raw string) (StockLevel, bool) {
	switch StockLevel(raw) {
	case StockLow, StockNormal, StockHigh:
		return StockLevel(raw), true
	}
	return "", false
}

// StockBadge classifies listing quantities with the fixed thresholds.
func StockBadge(qty int) StockLevel {
	return ClassifyStock(qty, ListingLowStock, ListingHighStock)
}

// Trend is the direction of a price change.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// PriceChange describes the movement between two prices.
type PriceChange struct {
	Percent string
	Trend   Trend
}

// PriceChangePercent formats (new-old)/old*100 with one decimal and an explicit sign taken
// from the raw difference. Equal prices yield "+0.0%".
func PriceChangePercent(oldPrice, newPrice float64) (string, error) {
	if oldPrice == 0 {
		return "", ErrNoPriorPrice
	}
	diff := newPrice - oldPrice
	pct := math.Abs(diff / oldPrice * 100)
	sign := "+"
	if diff < 0 {
		sign = "-"
	}
	return sign + strconv.FormatFloat(pct, 'f', 1, 64) + "%", nil
}

// ComparePrices returns the formatted percentage together with its trend.
func ComparePrices(oldPrice, newPrice float64) (PriceChange, error) {
	pct, err := PriceChangePercent(oldPrice, newPrice)
	if err != nil {
		return PriceChange{}, err
	}
	trend := TrendFlat
	switch {
	case newPrice > oldPrice:
		trend = TrendUp
	case newPrice < oldPrice:
		trend = TrendDown
	}
	return PriceChange{Percent: pct, Trend: trend}, nil
}

var rankMedals = []string{"🥇", "🥈", "🥉", "4️⃣", "5️⃣"}

// RankLabel returns the leaderboard marker for a zero-based index.
func RankLabel(index int) string {
	if index >= 0 && index < len(rankMedals) {
		return rankMedals[index]
	}
	return strconv.Itoa(index + 1)
}

// Pagination tracks the orders listing position.
type Pagination struct {
	Page       int
	PageSize   int
	TotalPages int
}

// NewPagination starts on page one.
func NewPagination(pageSize int) Pagination {
	if pageSize <= 0 {
		pageSize = 50
	}
	return Pagination{Page: 1, PageSize: pageSize}
}

// WithTotal records the server's page count, keeping Page within range.
func (p Pagination) WithTotal(page, totalPages int) Pagination {
	if totalPages < 0 {
		totalPages = 0
	}
	if page < 1 {
		page = 1
	}
	p.Page = page
	p.TotalPages = totalPages
	return p
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }

// Next returns the following page, or p unchanged on the last page.
func (p Pagination) Next() Pagination {
	if p.HasNext() {
		p.Page++
	}
	return p
}

// Prev returns the preceding page, or p unchanged on the first page.
func (p Pagination) Prev() Pagination {
	if p.HasPrev() {
		p.Page--
	}
	return p
}

// Label renders "Page N / M", treating an empty listing as one page.
func (p Pagination) Label() string {
	total := p.TotalPages
	if total < 1 {
		total = 1
	}
	return "Page " + strconv.Itoa(p.Page) + " / " + strconv.Itoa(total)
}
