package cart

import (
	"sync"
)

// Line is one product in the cart. Quantity is always positive.
type Line struct {
	ProductID int64   `json:"productId"`
	Title     string  `json:"title"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

// Subtotal is the unit price times quantity.
func (l Line) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// Totals are derived from the lines on every call.
type Totals struct {
	TotalQuantity int     `json:"totalQuantity"`
	TotalAmount   float64 `json:"totalAmount"`
}

// Cart holds at most one line per product, in insertion order.
type Cart struct {
	mu    sync.RWMutex
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

func (c *Cart) indexOf(productID int64) int {
	for i, line := range c.lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

// Add increments the quantity of an existing line or appends a new line with quantity 1.
// The title and price of an existing line are kept.
func (c *Cart) Add(productID int64, title string, unitPrice float64) Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(productID); i >= 0 {
		c.lines[i].Quantity++
		return c.lines[i]
	}
	line := Line{ProductID: productID, Title: title, UnitPrice: unitPrice, Quantity: 1}
	c.lines = append(c.lines, line)
	return line
}

// Remove deletes the whole line. Unknown products are ignored.
func (c *Cart) Remove(productID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// SetQuantity overwrites the quantity of an existing line; zero or less removes it.
// It reports whether the product was in the cart.
func (c *Cart) SetQuantity(productID int64, quantity int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	if quantity <= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
		return true
	}
	c.lines[i].Quantity = quantity
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of distinct products.
func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lines)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

// Totals sums quantities and amounts.
func (c *Cart) Totals() Totals {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var t Totals
	for _, line := range c.lines {
		t.TotalQuantity += line.Quantity
		t.TotalAmount += line.Subtotal()
	}
	return t
}
