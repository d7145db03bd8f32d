package domain

import (
	"time"

	"github.com/google/uuid"
)

type Banner struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle,omitempty"`
	Image     string    `json:"image"`
	Link      string    `json:"link,omitempty"`
	Position  int       `json:"position"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Contact struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"createdAt"`
}

type Subscriber struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type DashboardStats struct {
	Users          int                 `json:"users"`
	Products       int                 `json:"products"`
	Orders         int                 `json:"orders"`
	OrdersByStatus map[OrderStatus]int `json:"ordersByStatus"`
	Revenue        string              `json:"revenue"`
}
