package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hearthware/pantree/internal/live"
	"github.com/hearthware/pantree/internal/model"
)

// ErrDuplicateInvitation reports that a pending invitation already exists
// for the same household and recipient email.
var ErrDuplicateInvitation = errors.New("invitation already pending for this email")

type InvitationStore struct {
	db  *sql.DB
	bus *live.Bus
}

func NewInvitationStore(db *sql.DB, bus *live.Bus) *InvitationStore {
	return &InvitationStore{db: db, bus: bus}
}

func scanInvitation(scanner interface{ Scan(...any) error }) (*model.Invitation, error) {
	var inv model.Invitation
	err := scanner.Scan(&inv.ID, &inv.FromUser, &inv.FromEmail, &inv.ToEmail, &inv.HouseholdID, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

const invitationCols = `id, from_user, from_email, to_email, household_id, created_at`

// Create inserts a pending invitation. The (household_id, to_email) unique
// index turns a concurrent duplicate into ErrDuplicateInvitation instead of
// a lost-guard race.
func (s *InvitationStore) Create(ctx context.Context, fromUser, fromEmail, toEmail, householdID string) (*model.Invitation, error) {
	id := uuid.NewString()
	toEmail = strings.ToLower(strings.TrimSpace(toEmail))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invitations (id, from_user, from_email, to_email, household_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, fromUser, fromEmail, toEmail, householdID, time.Now().UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateInvitation
		}
		return nil, fmt.Errorf("insert invitation: %w", err)
	}

	s.bus.Publish(live.Event{Topic: live.TopicInvitations, Scope: toEmail})
	return s.GetByID(ctx, id)
}

func (s *InvitationStore) GetByID(ctx context.Context, id string) (*model.Invitation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+invitationCols+` FROM invitations WHERE id = ?`, id)
	inv, err := scanInvitation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

// Delete removes the invitation row, resolving it. Deleting an already
// resolved (absent) invitation is a no-op.
func (s *InvitationStore) Delete(ctx context.Context, id string) error {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}

	s.bus.Publish(live.Event{Topic: live.TopicInvitations, Scope: existing.ToEmail})
	return nil
}

// ListForEmail returns pending invitations addressed to email, newest first.
func (s *InvitationStore) ListForEmail(ctx context.Context, email string) ([]model.Invitation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+invitationCols+` FROM invitations WHERE to_email = ? ORDER BY created_at DESC`,
		strings.ToLower(strings.TrimSpace(email)),
	)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []model.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}
	return invitations, rows.Err()
}
