package domain

import "github.com/google/uuid"

// CategoryRef is the category information carried inside a product snapshot
type CategoryRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name,omitempty"`
	Slug string    `json:"slug,omitempty"`
}

// ProductSnapshot is the copy of catalog data held by a cart line.
// It is never updated after the line is created.
type ProductSnapshot struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description string      `json:"description,omitempty"`
	Price       int64       `json:"price"`
	Currency    string      `json:"currency"`
	Images      []string    `json:"images"`
	Category    CategoryRef `json:"category"`
	Inventory   int         `json:"inventory"`
	Features    []string    `json:"features"`
}

// CartLine is a product snapshot plus a quantity of at least one.
// The snapshot fields are flattened in JSON: {id, name, ..., quantity}.
type CartLine struct {
	ProductSnapshot
	Quantity int `json:"quantity"`
}

// Subtotal returns price x quantity for the line
func (l CartLine) Subtotal() int64 {
	return l.Price * int64(l.Quantity)
}

// Cart is the ordered set of lines for one browsing session.
// Count and Total are always derived from Lines.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// NewCart builds a cart from persisted lines, dropping anything that
// would break the one-line-per-product and quantity >= 1 invariants.
func NewCart(lines []CartLine) *Cart {
	c := &Cart{Lines: make([]CartLine, 0, len(lines))}
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 || seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		c.Lines = append(c.Lines, l)
	}
	return c
}

func (c *Cart) indexOf(id uuid.UUID) int {
	for i := range c.Lines {
		if c.Lines[i].ID == id {
			return i
		}
	}
	return -1
}

// AddItem increments the quantity of an existing line or appends a new one.
// The stored snapshot of an existing line is kept as first added.
func (c *Cart) AddItem(p ProductSnapshot) {
	if i := c.indexOf(p.ID); i >= 0 {
		c.Lines[i].Quantity++
		return
	}
	c.Lines = append(c.Lines, CartLine{ProductSnapshot: p, Quantity: 1})
}

// RemoveItem deletes the line for id. It reports whether a line was removed.
func (c *Cart) RemoveItem(id uuid.UUID) bool {
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return true
}

// UpdateQuantity sets the quantity of the line for id.
// Quantities below one and unknown ids leave the cart unchanged.
func (c *Cart) UpdateQuantity(id uuid.UUID, quantity int) bool {
	if quantity < 1 {
		return false
	}
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.Lines[i].Quantity = quantity
	return true
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Lines = c.Lines[:0]
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Count is the sum of line quantities
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Total is the sum of price x quantity over all lines
func (c *Cart) Total() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.Subtotal()
	}
	return total
}

// Currency returns the currency of the first line. Carts are single-currency.
func (c *Cart) Currency() string {
	if len(c.Lines) == 0 {
		return DefaultCurrency
	}
	return c.Lines[0].Currency
}

// Snapshot returns a deep copy of the lines
func (c *Cart) Snapshot() []CartLine {
	out := make([]CartLine, len(c.Lines))
	for i, l := range c.Lines {
		l.Images = append([]string(nil), l.Images...)
		l.Features = append([]string(nil), l.Features...)
		out[i] = l
	}
	return out
}
