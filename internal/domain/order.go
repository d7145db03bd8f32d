package domain

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{
	OrderPending, OrderConfirmed, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range orderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further lifecycle step follows s.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, raw)
	}
	return s, nil
}

type Address struct {
	FullName   string `json:"fullName" binding:"required"`
	Phone      string `json:"phone" binding:"required"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

type OrderItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Variant   string          `json:"variant,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// StockOrder returns a copy of items sorted by product id, then variant. Stock rows are
// always locked in this order.
func StockOrder(items []OrderItem) []OrderItem {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b OrderItem) int {
		if c := bytes.Compare(a.ProductID[:], b.ProductID[:]); c != 0 {
			return c
		}
		return cmp.Compare(a.Variant, b.Variant)
	})
	return out
}

// Order is written once at checkout. Totals are frozen at creation time.
type Order struct {
	ID            uuid.UUID     `json:"id"`
	UserID        uuid.UUID     `json:"userId"`
	Items         []OrderItem   `json:"items"`
	Totals                      // subtotal, shipping, tax, total
	Address       Address       `json:"shippingAddress"`
	Payment       PaymentInfo   `json:"payment"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// TransitionPolicy decides whether an order may move from one status to another.
type TransitionPolicy interface {
	Allowed(from, to OrderStatus) bool
}

// PermissiveTransitions accepts any valid status after any other.
type PermissiveTransitions struct{}

func (PermissiveTransitions) Allowed(from, to OrderStatus) bool {
	return to.Valid()
}

// StrictTransitions enforces pending -> confirmed -> processing -> shipped -> delivered,
// with cancelled reachable from every non-terminal status.
type StrictTransitions struct{}

var forward = map[OrderStatus]OrderStatus{
	OrderPending:    OrderConfirmed,
	OrderConfirmed:  OrderProcessing,
	OrderProcessing: OrderShipped,
	OrderShipped:    OrderDelivered,
}

func (StrictTransitions) Allowed(from, to OrderStatus) bool {
	if !to.Valid() || from.Terminal() {
		return false
	}
	if to == OrderCancelled {
		return true
	}
	return forward[from] == to
}

func NewTransitionPolicy(strict bool) TransitionPolicy {
	if strict {
		return StrictTransitions{}
	}
	return PermissiveTransitions{}
}
