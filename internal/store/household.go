package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hearthware/pantree/internal/live"
	"github.com/hearthware/pantree/internal/model"
)

type HouseholdStore struct {
	db  *sql.DB
	bus *live.Bus
}

func NewHouseholdStore(db *sql.DB, bus *live.Bus) *HouseholdStore {
	return &HouseholdStore{db: db, bus: bus}
}

func scanHousehold(scanner interface{ Scan(...any) error }) (*model.Household, error) {
	var h model.Household
	err := scanner.Scan(&h.ID, &h.Name, &h.OwnerID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

const householdCols = `id, name, owner_id, created_at, updated_at`

// Create inserts a household with the creator as owner and sole member, in
// one transaction. The owner is always in the member set from creation on.
func (s *HouseholdStore) Create(ctx context.Context, ownerID, name string) (*model.Household, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Explicit timestamp: CURRENT_TIMESTAMP has second precision, which
	// would make the oldest-first ordering unstable for rapid creates.
	id := uuid.NewString()
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO households (id, name, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, ownerID, now, now,
	); err != nil {
		return nil, fmt.Errorf("insert household: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO household_members (household_id, user_id) VALUES (?, ?)`,
		id, ownerID,
	); err != nil {
		return nil, fmt.Errorf("insert owner member: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.bus.Publish(live.Event{Topic: live.TopicHouseholds})
	return s.GetByID(ctx, id)
}

func (s *HouseholdStore) GetByID(ctx context.Context, id string) (*model.Household, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	h.Members, err = s.memberIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (s *HouseholdStore) Rename(ctx context.Context, id, name string) (*model.Household, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE households SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("rename household: %w", err)
	}
	s.bus.Publish(live.Event{Topic: live.TopicHouseholds})
	return s.GetByID(ctx, id)
}

// AddMember adds userID to the household's member set. Set-union semantics:
// adding an existing member is a no-op, never an error.
func (s *HouseholdStore) AddMember(ctx context.Context, householdID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO household_members (household_id, user_id) VALUES (?, ?)`,
		householdID, userID,
	)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	s.bus.Publish(live.Event{Topic: live.TopicHouseholds})
	return nil
}

// RemoveMember removes userID from the member set. A single DELETE, so
// concurrent removals cannot lose each other's writes.
func (s *HouseholdStore) RemoveMember(ctx context.Context, householdID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM household_members WHERE household_id = ? AND user_id = ?`,
		householdID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	s.bus.Publish(live.Event{Topic: live.TopicHouseholds})
	return nil
}

// IsMember reports whether userID is in the household's member set.
func (s *HouseholdStore) IsMember(ctx context.Context, householdID, userID string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM household_members WHERE household_id = ? AND user_id = ?`,
		householdID, userID,
	)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("is member: %w", err)
	}
	return n > 0, nil
}

// ListForUser returns every household whose member set contains userID,
// oldest household first so the "first household" fallback is stable.
func (s *HouseholdStore) ListForUser(ctx context.Context, userID string) ([]model.Household, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT h.id, h.name, h.owner_id, h.created_at, h.updated_at
		 FROM households h
		 JOIN household_members hm ON h.id = hm.household_id
		 WHERE hm.user_id = ?
		 ORDER BY h.created_at ASC, h.id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list households for user: %w", err)
	}
	defer rows.Close()

	var households []model.Household
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		households = append(households, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range households {
		households[i].Members, err = s.memberIDs(ctx, households[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return households, nil
}

// ListMembers returns the member set joined with user profile fields.
func (s *HouseholdStore) ListMembers(ctx context.Context, householdID string) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hm.user_id, u.email, u.display_name, hm.created_at
		 FROM household_members hm
		 JOIN users u ON u.id = hm.user_id
		 WHERE hm.household_id = ?
		 ORDER BY hm.created_at ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.UserID, &m.Email, &m.DisplayName, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *HouseholdStore) memberIDs(ctx context.Context, householdID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM household_members WHERE household_id = ? ORDER BY created_at ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list member ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
