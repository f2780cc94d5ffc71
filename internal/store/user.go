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

type UserStore struct {
	db  *sql.DB
	bus *live.Bus
}

func NewUserStore(db *sql.DB, bus *live.Bus) *UserStore {
	return &UserStore{db: db, bus: bus}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var defaultHH, lastActive sql.NullString
	err := scanner.Scan(&u.ID, &u.Email, &u.DisplayName, &defaultHH, &lastActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if defaultHH.Valid {
		u.DefaultHouseholdID = &defaultHH.String
	}
	if lastActive.Valid {
		u.LastActiveHouseholdID = &lastActive.String
	}
	return &u, nil
}

const userCols = `id, email, display_name, default_household_id, last_active_household_id, created_at, updated_at`

func (s *UserStore) Create(ctx context.Context, email, displayName string) (*model.User, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name) VALUES (?, ?, ?)`,
		id, email, displayName,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Ensure provisions the row for an externally-authenticated user. The auth
// layer owns identity; this just mirrors it so foreign keys have something
// to point at. Safe to call on every session start.
func (s *UserStore) Ensure(ctx context.Context, id, email string) (*model.User, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET email = excluded.email`,
		id, email,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetPreferences reads the two household-preference fields for resolution.
// A missing user yields empty preferences, not an error.
func (s *UserStore) GetPreferences(ctx context.Context, userID string) (model.Preferences, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT default_household_id, last_active_household_id FROM users WHERE id = ?`, userID)

	var defaultHH, lastActive sql.NullString
	err := row.Scan(&defaultHH, &lastActive)
	if err == sql.ErrNoRows {
		return model.Preferences{}, nil
	}
	if err != nil {
		return model.Preferences{}, fmt.Errorf("get preferences: %w", err)
	}

	var prefs model.Preferences
	if defaultHH.Valid {
		prefs.DefaultHouseholdID = &defaultHH.String
	}
	if lastActive.Valid {
		prefs.LastActiveHouseholdID = &lastActive.String
	}
	return prefs, nil
}

func (s *UserStore) SetLastActiveHousehold(ctx context.Context, userID, householdID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_active_household_id = ?, updated_at = ? WHERE id = ?`,
		householdID, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("set last active household: %w", err)
	}
	s.bus.Publish(live.Event{Topic: live.TopicUsers, Scope: userID})
	return nil
}

func (s *UserStore) SetDefaultHousehold(ctx context.Context, userID, householdID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET default_household_id = ?, updated_at = ? WHERE id = ?`,
		householdID, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("set default household: %w", err)
	}
	s.bus.Publish(live.Event{Topic: live.TopicUsers, Scope: userID})
	return nil
}
