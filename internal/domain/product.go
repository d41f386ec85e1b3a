package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCurrency is used when a product is created without a currency code
const DefaultCurrency = "INR"

// Product represents a product in the catalog.
// Price is stored in minor currency units.
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	Price       int64     `json:"price" db:"price"`
	Currency    string    `json:"currency" db:"currency"`
	Images      []string  `json:"images" db:"images"`
	CategoryID  uuid.UUID `json:"category_id" db:"category_id"`
	Inventory   int       `json:"inventory" db:"inventory"`
	Rating      float64   `json:"rating" db:"rating"`
	ReviewCount int       `json:"review_count" db:"review_count"`
	Features    []string  `json:"features" db:"features"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Category represents a product category
type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Ref returns the compact reference embedded in product snapshots
func (c *Category) Ref() CategoryRef {
	return CategoryRef{ID: c.ID, Name: c.Name, Slug: c.Slug}
}

// Snapshot freezes the product together with its category for use in a cart line
func (p *Product) Snapshot(category *Category) ProductSnapshot {
	snap := ProductSnapshot{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       p.Price,
		Currency:    p.Currency,
		Images:      append([]string(nil), p.Images...),
		Inventory:   p.Inventory,
		Features:    append([]string(nil), p.Features...),
	}
	if category != nil {
		snap.Category = category.Ref()
	} else {
		snap.Category = CategoryRef{ID: p.CategoryID}
	}
	return snap
}
