package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one (user, product, variant) line. Adding the same combination again
// increases Quantity on the existing row.
type CartItem struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	ProductID uuid.UUID       `json:"productId"`
	Variant   string          `json:"variant,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Product   *Product        `json:"product,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (c *CartItem) ComputeSubtotal() {
	c.Subtotal = c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity))).Round(2)
}

// BulkResult reports the outcome of a non-transactional multi-row delete.
type BulkResult struct {
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}
