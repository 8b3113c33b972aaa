// Package format renders amounts, counts and dates for the console views.
package format

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const defaultSymbol = "₺"

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Formatter formats numbers for one locale and currency symbol.
type Formatter struct {
	symbol  string
	printer *message.Printer
}

// New builds a Formatter. Unknown language tags fall back to English.
func New(symbol, lang string) *Formatter {
	if strings.TrimSpace(symbol) == "" {
		symbol = defaultSymbol
	}
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
	if err != nil {
		tag = language.English
	}
	return &Formatter{symbol: symbol, printer: message.NewPrinter(tag)}
}

// Currency renders an amount with the currency symbol and at most two decimals.
func (f *Formatter) Currency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = math.Abs(amount)
	}
	return sign + f.symbol + f.printer.Sprint(number.Decimal(amount, number.MaxFractionDigits(2)))
}

// Count renders an integer with grouping separators.
func (f *Formatter) Count(n int) string {
	return f.printer.Sprint(number.Decimal(n))
}

// Date renders an API timestamp as a date, returning the input untouched when it cannot be parsed.
func Date(raw string) string {
	ts, ok := ParseTime(raw)
	if !ok {
		return raw
	}
	return ts.Format("2006-01-02")
}

// DateTime renders an API timestamp with minutes.
func DateTime(raw string) string {
	ts, ok := ParseTime(raw)
	if !ok {
		return raw
	}
	return ts.Format("2006-01-02 15:04")
}

// ParseTime accepts the timestamp layouts the API emits.
func ParseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// OrderStatusTone maps an order status to a badge tone.
func OrderStatusTone(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "completed":
		return "success"
	case "cancelled":
		return "danger"
	default:
		return "warning"
	}
}
