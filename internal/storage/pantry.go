package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const pantryColumns = `id, user_id, name, quantity, unit, category, expires_on, created_at`

// ListPantryItems returns the user's pantry in insertion order.
func (s *Store) ListPantryItems(ctx context.Context, userID string) ([]PantryItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pantryColumns+` FROM pantry_items WHERE user_id = ? ORDER BY rowid ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing pantry items: %w", err)
	}
	defer rows.Close()

	items := []PantryItem{}
	for rows.Next() {
		p, err := scanPantryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// GetPantryItem returns one pantry item owned by userID.
func (s *Store) GetPantryItem(ctx context.Context, userID, id string) (PantryItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pantryColumns+` FROM pantry_items WHERE user_id = ? AND id = ?`, userID, id)
	p, err := scanPantryItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PantryItem{}, ErrNotFound
	}
	return p, err
}

// AddPantryItem inserts item and returns it with ID and CreatedAt filled in.
func (s *Store) AddPantryItem(ctx context.Context, item PantryItem) (PantryItem, error) {
	if item.ID == "" {
		item.ID = newID()
	}
	created := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pantry_items (`+pantryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.UserID, item.Name, item.Quantity, item.Unit, item.Category, item.ExpiresOn, created,
	)
	if err != nil {
		return PantryItem{}, fmt.Errorf("inserting pantry item: %w", err)
	}
	item.CreatedAt, _ = parseTimestamp(created)
	return item, nil
}

// UpdatePantryItem overwrites the mutable fields of an existing item.
func (s *Store) UpdatePantryItem(ctx context.Context, item PantryItem) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pantry_items SET name = ?, quantity = ?, unit = ?, category = ?, expires_on = ?
		WHERE user_id = ? AND id = ?`,
		item.Name, item.Quantity, item.Unit, item.Category, item.ExpiresOn, item.UserID, item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating pantry item: %w", err)
	}
	return checkAffected(res)
}

func (s *Store) DeletePantryItem(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pantry_items WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting pantry item: %w", err)
	}
	return checkAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPantryItem(r rowScanner) (PantryItem, error) {
	var p PantryItem
	var created string
	if err := r.Scan(&p.ID, &p.UserID, &p.Name, &p.Quantity, &p.Unit, &p.Category, &p.ExpiresOn, &created); err != nil {
		return PantryItem{}, err
	}
	t, err := parseTimestamp(created)
	if err != nil {
		return PantryItem{}, err
	}
	p.CreatedAt = t
	return p, nil
}
