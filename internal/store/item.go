package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hearthware/pantree/internal/live"
	"github.com/hearthware/pantree/internal/model"
)

type ItemStore struct {
	db  *sql.DB
	bus *live.Bus
}

func NewItemStore(db *sql.DB, bus *live.Bus) *ItemStore {
	return &ItemStore{db: db, bus: bus}
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.Item, error) {
	var item model.Item
	var dueDate, purchasedAt sql.NullTime
	var price sql.NullFloat64
	var purchasedBy sql.NullString

	err := scanner.Scan(
		&item.ID, &item.HouseholdID, &item.Name, &item.Type, &item.Quantity,
		&item.Unit, &item.Status, &item.Note, &dueDate, &item.CreatedBy,
		&item.CreatedAt, &price, &purchasedBy, &purchasedAt,
	)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		item.DueDate = &dueDate.Time
	}
	if price.Valid {
		item.Price = &price.Float64
	}
	if purchasedBy.Valid {
		item.PurchasedBy = &purchasedBy.String
	}
	if purchasedAt.Valid {
		item.PurchasedAt = &purchasedAt.Time
	}
	return &item, nil
}

const itemCols = `id, household_id, name, type, quantity, unit, status, note, due_date, created_by, created_at, price, purchased_by, purchased_at`

// CreateItemParams carries the caller-supplied fields for a new item. The
// household and creator are set once here and never change afterwards.
type CreateItemParams struct {
	Name     string
	Type     string
	Quantity float64
	Unit     string
	Note     string
	DueDate  *time.Time
}

func (s *ItemStore) Create(ctx context.Context, householdID, createdBy string, p CreateItemParams) (*model.Item, error) {
	id := uuid.NewString()
	var due sql.NullTime
	if p.DueDate != nil {
		due = sql.NullTime{Time: p.DueDate.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (id, household_id, name, type, quantity, unit, status, note, due_date, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, householdID, p.Name, p.Type, p.Quantity, p.Unit, model.ItemStatusPending,
		p.Note, due, createdBy, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	s.bus.Publish(live.Event{Topic: live.TopicItems, Scope: householdID})
	return s.GetByID(ctx, id)
}

func (s *ItemStore) GetByID(ctx context.Context, id string) (*model.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemCols+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// UpdateItemParams holds the updatable fields. Nil means "leave unchanged".
// The household id is deliberately absent: it is immutable.
type UpdateItemParams struct {
	Name     *string
	Type     *string
	Quantity *float64
	Unit     *string
	Note     *string
	DueDate  *time.Time
}

func (s *ItemStore) Update(ctx context.Context, id string, p UpdateItemParams) (*model.Item, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	if p.Name != nil {
		existing.Name = *p.Name
	}
	if p.Type != nil {
		existing.Type = *p.Type
	}
	if p.Quantity != nil {
		existing.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		existing.Unit = *p.Unit
	}
	if p.Note != nil {
		existing.Note = *p.Note
	}
	if p.DueDate != nil {
		t := p.DueDate.UTC()
		existing.DueDate = &t
	}

	var due sql.NullTime
	if existing.DueDate != nil {
		due = sql.NullTime{Time: *existing.DueDate, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE items SET name = ?, type = ?, quantity = ?, unit = ?, note = ?, due_date = ? WHERE id = ?`,
		existing.Name, existing.Type, existing.Quantity, existing.Unit, existing.Note, due, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	s.bus.Publish(live.Event{Topic: live.TopicItems, Scope: existing.HouseholdID})
	return s.GetByID(ctx, id)
}

// Complete marks the item purchased, recording price, purchaser, and time.
func (s *ItemStore) Complete(ctx context.Context, id string, price float64, purchasedBy string) (*model.Item, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE items SET status = ?, price = ?, purchased_by = ?, purchased_at = ? WHERE id = ?`,
		model.ItemStatusCompleted, price, purchasedBy, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("complete item: %w", err)
	}

	s.bus.Publish(live.Event{Topic: live.TopicItems, Scope: existing.HouseholdID})
	return s.GetByID(ctx, id)
}

// RecordPurchaseParams describes a purchase logged after the fact. The
// item never passes through the pending list, and the purchase instant is
// the caller's, so spend lands in the month it actually happened.
type RecordPurchaseParams struct {
	Name        string
	Type        string
	Quantity    float64
	Unit        string
	Note        string
	Price       float64
	PurchasedAt time.Time
}

func (s *ItemStore) RecordPurchase(ctx context.Context, householdID, purchasedBy string, p RecordPurchaseParams) (*model.Item, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (id, household_id, name, type, quantity, unit, status, note, created_by, created_at, price, purchased_by, purchased_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, householdID, p.Name, p.Type, p.Quantity, p.Unit, model.ItemStatusCompleted,
		p.Note, purchasedBy, time.Now().UTC(), p.Price, purchasedBy, p.PurchasedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("record purchase: %w", err)
	}

	s.bus.Publish(live.Event{Topic: live.TopicItems, Scope: householdID})
	return s.GetByID(ctx, id)
}

func (s *ItemStore) Delete(ctx context.Context, id string) error {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	s.bus.Publish(live.Event{Topic: live.TopicItems, Scope: existing.HouseholdID})
	return nil
}

// ListPending returns the household's pending items, newest first.
func (s *ItemStore) ListPending(ctx context.Context, householdID string) ([]model.Item, error) {
	return s.list(ctx,
		`SELECT `+itemCols+` FROM items WHERE household_id = ? AND status = ? ORDER BY created_at DESC, id DESC`,
		householdID, model.ItemStatusPending,
	)
}

// ListCompleted returns the household's completed items, most recently
// purchased first.
func (s *ItemStore) ListCompleted(ctx context.Context, householdID string) ([]model.Item, error) {
	return s.list(ctx,
		`SELECT `+itemCols+` FROM items WHERE household_id = ? AND status = ? ORDER BY purchased_at DESC, id DESC`,
		householdID, model.ItemStatusCompleted,
	)
}

func (s *ItemStore) list(ctx context.Context, query string, args ...any) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// pageCursor is the decoded continuation point for completed-item pages:
// the purchase instant and id of the last item on the previous page.
type pageCursor struct {
	PurchasedAt int64  `json:"p"`
	ID          string `json:"id"`
}

func encodeCursor(c pageCursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCursor(s string) (pageCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return pageCursor{}, fmt.Errorf("decode cursor: %w", err)
	}
	var c pageCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return pageCursor{}, fmt.Errorf("decode cursor: %w", err)
	}
	return c, nil
}

// ItemPage is one page of the completed-item feed. NextCursor is opaque;
// empty means the caller got everything the query saw.
type ItemPage struct {
	Items      []model.Item `json:"items"`
	NextCursor string       `json:"next_cursor"`
}

// ListCompletedPage returns up to pageSize completed items ordered by
// purchase time descending, starting after cursor (empty for the first
// page). A short page signals the end of the feed.
func (s *ItemStore) ListCompletedPage(ctx context.Context, householdID string, pageSize int, cursor string) (*ItemPage, error) {
	if pageSize <= 0 {
		pageSize = 20
	}

	query := `SELECT ` + itemCols + ` FROM items WHERE household_id = ? AND status = ?`
	args := []any{householdID, model.ItemStatusCompleted}

	if cursor != "" {
		c, err := decodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		after := time.Unix(0, c.PurchasedAt).UTC()
		query += ` AND (purchased_at < ? OR (purchased_at = ? AND id < ?))`
		args = append(args, after, after, c.ID)
	}

	query += ` ORDER BY purchased_at DESC, id DESC LIMIT ?`
	args = append(args, pageSize)

	items, err := s.list(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	page := &ItemPage{Items: items}
	if len(items) > 0 {
		last := items[len(items)-1]
		if last.PurchasedAt != nil {
			page.NextCursor = encodeCursor(pageCursor{
				PurchasedAt: last.PurchasedAt.UnixNano(),
				ID:          last.ID,
			})
		}
	}
	return page, nil
}

// TypeTotal is one row of the monthly spend breakdown.
type TypeTotal struct {
	Type  string  `json:"type"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// MonthlyReport sums completed purchases in [start, end) grouped by type.
func (s *ItemStore) MonthlyReport(ctx context.Context, householdID string, start, end time.Time) (float64, []TypeTotal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, COALESCE(SUM(price), 0), COUNT(*)
		 FROM items
		 WHERE household_id = ? AND status = ? AND purchased_at >= ? AND purchased_at < ?
		 GROUP BY type
		 ORDER BY SUM(price) DESC`,
		householdID, model.ItemStatusCompleted, start.UTC(), end.UTC(),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("monthly report: %w", err)
	}
	defer rows.Close()

	var total float64
	var byType []TypeTotal
	for rows.Next() {
		var t TypeTotal
		if err := rows.Scan(&t.Type, &t.Total, &t.Count); err != nil {
			return 0, nil, fmt.Errorf("scan report row: %w", err)
		}
		total += t.Total
		byType = append(byType, t)
	}
	return total, byType, rows.Err()
}
