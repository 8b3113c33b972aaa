package catalog

import (
	"context"
	"errors"

	"finitefield.org/retail-console/internal/format"
	"finitefield.org/retail-console/internal/metrics"
	"finitefield.org/retail-console/internal/textutil"
)

const (
	// NoPriorPrice is shown in place of a percentage when the old price is zero.
	NoPriorPrice = "N/A"
	// ChartStartLabel labels the price before the first recorded change.
	ChartStartLabel = "Start"
)

var reasonLabels = map[string]string{
	"low_stock":       "📉 Low Stock (PRICE INCREASE)",
	"high_stock":      "📈 High Stock (DISCOUNT)",
	"campaign":        "🏷️ Campaign",
	"inflation":       "📈 Inflation",
	"demand_increase": "📈 Demand Increase",
	"manual_update":   "✏️ Manual",
}

// ReasonLabel maps a price change reason code to its display label.
// Unknown codes are shown as sent.
func ReasonLabel(reason string) string {
	if label, ok := reasonLabels[reason]; ok {
		return label
	}
	return textutil.Plain(reason)
}

// PriceHistoryRow is one row of the price history table.
type PriceHistoryRow struct {
	ProductID int64         `json:"productId"`
	Title     string        `json:"title"`
	OldPrice  string        `json:"oldPrice"`
	NewPrice  string        `json:"newPrice"`
	Change    string        `json:"change"`
	Trend     metrics.Trend `json:"trend"`
	Date      string        `json:"date"`
	Reason    string        `json:"reason"`
}

// PriceSeries is a price line chart, oldest point first.
type PriceSeries struct {
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// PriceHistory lists price changes newest first. A zero productID lists every product.
func (s *Service) PriceHistory(ctx context.Context, productID int64) ([]PriceHistoryRow, bool) {
	changes, ok := s.api.PriceHistory(ctx, productID)
	if !ok {
		return nil, false
	}
	rows := make([]PriceHistoryRow, 0, len(changes))
	for _, c := range changes {
		row := PriceHistoryRow{
			ProductID: c.ProductID,
			Title:     textutil.Plain(c.Title),
			OldPrice:  s.format.Currency(c.OldPrice),
			NewPrice:  s.format.Currency(c.NewPrice),
			Date:      format.DateTime(c.ChangeDate),
			Reason:    ReasonLabel(c.Reason),
		}
		change, err := metrics.ComparePrices(c.OldPrice, c.NewPrice)
		switch {
		case errors.Is(err, metrics.ErrNoPriorPrice):
			row.Change = NoPriorPrice
			row.Trend = metrics.TrendFlat
		default:
			row.Change = change.Percent
			row.Trend = change.Trend
		}
		rows = append(rows, row)
	}
	return rows, true
}

// PriceChart plots one product's price over time. The first point is the oldest
// recorded old price, followed by each new price.
func (s *Service) PriceChart(ctx context.Context, productID int64) (PriceSeries, bool) {
	if productID <= 0 {
		return PriceSeries{}, false
	}
	changes, ok := s.api.PriceHistory(ctx, productID)
	if !ok || len(changes) == 0 {
		return PriceSeries{}, false
	}
	oldest := changes[len(changes)-1]
	series := PriceSeries{
		Title:  textutil.Plain(oldest.Title),
		Labels: make([]string, 0, len(changes)+1),
		Values: make([]float64, 0, len(changes)+1),
	}
	series.Labels = append(series.Labels, ChartStartLabel)
	series.Values = append(series.Values, oldest.OldPrice)
	for i := len(changes) - 1; i >= 0; i-- {
		series.Labels = append(series.Labels, format.DateTime(changes[i].ChangeDate))
		series.Values = append(series.Values, changes[i].NewPrice)
	}
	return series, true
}
