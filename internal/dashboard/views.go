package dashboard

import (
	"sort"

	"finitefield.org/retail-console/internal/api"
	"finitefield.org/retail-console/internal/format"
	"finitefield.org/retail-console/internal/metrics"
	"finitefield.org/retail-console/internal/textutil"
)

// ChartLabelRunes bounds inventory chart labels.
const ChartLabelRunes = 10

// Summary holds the headline counters.
type Summary struct {
	TotalProducts   int    `json:"totalProducts"`
	TotalCategories int    `json:"totalCategories"`
	TotalOrders     int    `json:"totalOrders"`
	TotalRevenue    string `json:"totalRevenue"`
	LowStockCount   int    `json:"lowStockCount"`
	AveragePrice    string `json:"averagePrice"`
}

// Series is a labelled set of values ready for a chart.
type Series struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Labels) }

// InventoryBar is one bar in the stock chart.
type InventoryBar struct {
	Label    string             `json:"label"`
	Title    string             `json:"title"`
	Quantity int                `json:"quantity"`
	Level    metrics.StockLevel `json:"level"`
	Tone     string             `json:"tone"`
}

// InventoryChart lists bars by stock, highest first.
type InventoryChart struct {
	Bars []InventoryBar `json:"bars"`
}

// LowStockItem is one row of the low-stock alert list.
type LowStockItem struct {
	Title    string             `json:"title"`
	Quantity int                `json:"quantity"`
	Level    metrics.StockLevel `json:"level"`
	Tone     string             `json:"tone"`
}

// Spender is one leaderboard row.
type Spender struct {
	Rank       string `json:"rank"`
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	OrderCount int    `json:"orderCount"`
	TotalSpent string `json:"totalSpent"`
}

// BuildSummary formats the stats payload.
func BuildSummary(stats api.DashboardStats, f *format.Formatter) Summary {
	return Summary{
		TotalProducts:   stats.TotalProducts,
		TotalCategories: stats.TotalCategories,
		TotalOrders:     stats.TotalOrders,
		TotalRevenue:    f.Currency(stats.TotalRevenue),
		LowStockCount:   stats.LowStockCount,
		AveragePrice:    f.Currency(stats.AveragePrice),
	}
}

// BuildCategorySeries keeps the API order.
func BuildCategorySeries(shares []api.CategoryShare) Series {
	s := Series{Labels: make([]string, 0, len(shares)), Values: make([]float64, 0, len(shares))}
	for _, share := range shares {
		s.Labels = append(s.Labels, textutil.Plain(share.Name))
		s.Values = append(s.Values, float64(share.Value))
	}
	return s
}

// BuildSupplierSeries keeps the API order.
func BuildSupplierSeries(rows []api.SupplierRevenue) Series {
	s := Series{Labels: make([]string, 0, len(rows)), Values: make([]float64, 0, len(rows))}
	for _, row := range rows {
		s.Labels = append(s.Labels, textutil.Plain(row.CompanyName))
		s.Values = append(s.Values, row.TotalRevenue)
	}
	return s
}

// BuildMonthlySeries reverses the newest-first API order so the chart reads oldest to newest.
func BuildMonthlySeries(rows []api.MonthlyRevenue) Series {
	s := Series{Labels: make([]string, len(rows)), Values: make([]float64, len(rows))}
	for i, row := range rows {
		j := len(rows) - 1 - i
		s.Labels[j] = row.Month
		s.Values[j] = row.Revenue
	}
	return s
}

func classify(qty, low, high int) metrics.StockLevel {
	if low == 0 && high == 0 {
		return metrics.StockBadge(qty)
	}
	return metrics.ClassifyStock(qty, low, high)
}

// BuildLowStock classifies each alert row.
func BuildLowStock(items []api.InventoryItem) []LowStockItem {
	out := make([]LowStockItem, 0, len(items))
	for _, item := range items {
		level := classify(item.StockQuantity, item.LowStockThreshold, item.HighStockThreshold)
		out = append(out, LowStockItem{
			Title:    textutil.Plain(item.Title),
			Quantity: item.StockQuantity,
			Level:    level,
			Tone:     level.Tone(),
		})
	}
	return out
}

// BuildInventoryChart sorts by stock descending and truncates labels.
func BuildInventoryChart(items []api.InventoryItem) InventoryChart {
	bars := make([]InventoryBar, 0, len(items))
	for _, item := range items {
		title := textutil.Plain(item.Title)
		level := classify(item.StockQuantity, item.LowStockThreshold, item.HighStockThreshold)
		bars = append(bars, InventoryBar{
			Label:    textutil.Truncate(title, ChartLabelRunes),
			Title:    title,
			Quantity: item.StockQuantity,
			Level:    level,
			Tone:     level.Tone(),
		})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Quantity > bars[j].Quantity })
	return InventoryChart{Bars: bars}
}

// BuildSpenders ranks the leaderboard in API order, keeping at most limit rows.
func BuildSpenders(rows []api.TopSpender, limit int, f *format.Formatter) []Spender {
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]Spender, 0, len(rows))
	for i, row := range rows {
		out = append(out, Spender{
			Rank:       metrics.RankLabel(i),
			FullName:   textutil.Plain(row.FullName),
			Email:      row.Email,
			OrderCount: row.OrderCount,
			TotalSpent: f.Currency(row.TotalSpent),
		})
	}
	return out
}
