package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const AdminRoom = "admin_room"

func UserRoom(userID uuid.UUID) string {
	return "user_" + userID.String()
}

// Event is a transient order status notification. It is never persisted.
type Event struct {
	Room      string      `json:"room,omitempty"`
	OrderID   uuid.UUID   `json:"orderId"`
	NewStatus OrderStatus `json:"newStatus"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewStatusEvent(room string, order *Order, at time.Time) Event {
	return Event{
		Room:      room,
		OrderID:   order.ID,
		NewStatus: order.Status,
		Message:   fmt.Sprintf("Your order #%s is now %s", shortID(order.ID), order.Status),
		Timestamp: at,
	}
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
