package model

import "time"

const (
	ItemStatusPending   = "pending"
	ItemStatusCompleted = "completed"
)

// Item is a shopping-list entry. HouseholdID is set at creation and never
// changes; no update path accepts it.
type Item struct {
	ID          string     `json:"id"`
	HouseholdID string     `json:"household_id"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Quantity    float64    `json:"quantity"`
	Unit        string     `json:"unit"`
	Status      string     `json:"status"`
	Note        string     `json:"note"`
	DueDate     *time.Time `json:"due_date"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	Price       *float64   `json:"price"`
	PurchasedBy *string    `json:"purchased_by"`
	PurchasedAt *time.Time `json:"purchased_at"`
}
