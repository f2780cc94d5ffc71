package model

import "time"

// User is owned by the external auth/profile collaborator. The core only
// reads the identity fields and reads/writes the two household-preference
// columns.
type User struct {
	ID                    string    `json:"id"`
	Email                 string    `json:"email"`
	DisplayName           string    `json:"display_name"`
	DefaultHouseholdID    *string   `json:"default_household_id"`
	LastActiveHouseholdID *string   `json:"last_active_household_id"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Preferences is the per-user household preference record consulted during
// active-household resolution.
type Preferences struct {
	LastActiveHouseholdID *string `json:"last_active_household_id"`
	DefaultHouseholdID    *string `json:"default_household_id"`
}
