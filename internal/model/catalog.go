package model

import "time"

const (
	CatalogKindType = "type"
	CatalogKindUnit = "unit"
)

// CatalogEntry is a household-scoped vocabulary entry: an item type
// (category label) or a unit of measure.
type CatalogEntry struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	HouseholdID string    `json:"household_id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
}
