package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Variant is a size/weight option of a product. A nil Price means the product price applies.
type Variant struct {
	Label string           `json:"label"`
	Price *decimal.Decimal `json:"price,omitempty"`
	Stock int              `json:"stock"`
}

type Product struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Brand        string          `json:"brand"`
	CategoryID   uuid.UUID       `json:"categoryId"`
	CategoryName string          `json:"categoryName,omitempty"`
	Subcategory  string          `json:"subcategory,omitempty"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Images       []string        `json:"images"`
	Variants     []Variant       `json:"variants"`
	Stock        int             `json:"stock"`
	Rating       decimal.Decimal `json:"rating"`
	ReviewCount  int             `json:"reviewCount"`
	Relevance    int             `json:"relevance,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Variant finds the option with the given label. Labels compare case-insensitively.
func (p Product) Variant(label string) (Variant, bool) {
	for _, v := range p.Variants {
		if strings.EqualFold(v.Label, label) {
			return v, true
		}
	}
	return Variant{}, false
}

// PriceFor returns the authoritative unit price for the product or one of its variants.
func (p Product) PriceFor(variant string) (decimal.Decimal, error) {
	if variant == "" {
		return p.Price, nil
	}
	v, ok := p.Variant(variant)
	if !ok {
		return decimal.Zero, ErrInvalidInput
	}
	if v.Price != nil {
		return *v.Price, nil
	}
	return p.Price, nil
}

func (p Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

type Category struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Image         string    `json:"image,omitempty"`
	Subcategories []string  `json:"subcategories"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Slugify lowercases s and joins alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortRating    ProductSort = "rating"
	SortName      ProductSort = "name"
)

func ParseProductSort(raw string) ProductSort {
	switch s := ProductSort(raw); s {
	case SortPriceAsc, SortPriceDesc, SortRating, SortName:
		return s
	}
	return SortNewest
}

type ProductFilter struct {
	CategoryID  *uuid.UUID
	Subcategory string
	Brand       string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	InStock     bool
	Sort        ProductSort
	Page        Page
}
