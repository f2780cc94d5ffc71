package model

import "time"

// Invitation is existence-based: a row present means pending. Acceptance or
// rejection deletes the row; no terminal-state record is kept.
type Invitation struct {
	ID          string    `json:"id"`
	FromUser    string    `json:"from_user"`
	FromEmail   string    `json:"from_email"`
	ToEmail     string    `json:"to_email"`
	HouseholdID string    `json:"household_id"`
	CreatedAt   time.Time `json:"created_at"`
}
