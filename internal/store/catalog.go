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

// ErrDuplicateEntry reports a catalog name that already exists in the
// household, compared case-insensitively.
var ErrDuplicateEntry = errors.New("catalog entry already exists")

type CatalogStore struct {
	db  *sql.DB
	bus *live.Bus
}

func NewCatalogStore(db *sql.DB, bus *live.Bus) *CatalogStore {
	return &CatalogStore{db: db, bus: bus}
}

func catalogTopic(kind string) live.Topic {
	if kind == model.CatalogKindUnit {
		return live.TopicUnits
	}
	return live.TopicTypes
}

func scanCatalogEntry(scanner interface{ Scan(...any) error }) (*model.CatalogEntry, error) {
	var e model.CatalogEntry
	err := scanner.Scan(&e.ID, &e.Kind, &e.HouseholdID, &e.Name, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const catalogCols = `id, kind, household_id, name, created_at`

// Add inserts a vocabulary entry. The (kind, household_id, name) unique
// index compares names case-insensitively and is the only duplicate guard,
// so concurrent adds cannot slip through a read-then-write window.
func (s *CatalogStore) Add(ctx context.Context, kind, householdID, name string) (*model.CatalogEntry, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO catalog_entries (id, kind, household_id, name, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, kind, householdID, name, time.Now().UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateEntry
		}
		return nil, fmt.Errorf("insert catalog entry: %w", err)
	}

	s.bus.Publish(live.Event{Topic: catalogTopic(kind), Scope: householdID})
	return s.GetByID(ctx, id)
}

func (s *CatalogStore) GetByID(ctx context.Context, id string) (*model.CatalogEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+catalogCols+` FROM catalog_entries WHERE id = ?`, id)
	e, err := scanCatalogEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get catalog entry: %w", err)
	}
	return e, nil
}

func (s *CatalogStore) Delete(ctx context.Context, id string) error {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM catalog_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete catalog entry: %w", err)
	}

	s.bus.Publish(live.Event{Topic: catalogTopic(existing.Kind), Scope: existing.HouseholdID})
	return nil
}

// ListNames returns the household's entry names for kind, sorted
// alphabetically. Used to populate selection lists.
func (s *CatalogStore) ListNames(ctx context.Context, kind, householdID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM catalog_entries WHERE kind = ? AND household_id = ? ORDER BY name COLLATE NOCASE ASC`,
		kind, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list catalog names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan catalog name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// List returns full entries (id + name) for management views.
func (s *CatalogStore) List(ctx context.Context, kind, householdID string) ([]model.CatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+catalogCols+` FROM catalog_entries WHERE kind = ? AND household_id = ? ORDER BY name COLLATE NOCASE ASC`,
		kind, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list catalog entries: %w", err)
	}
	defer rows.Close()

	var entries []model.CatalogEntry
	for rows.Next() {
		e, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
