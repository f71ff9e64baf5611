package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ListGroceryLists returns the user's lists with their items, oldest first.
func (s *Store) ListGroceryLists(ctx context.Context, userID string) ([]GroceryList, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, created_at FROM grocery_lists WHERE user_id = ? ORDER BY rowid ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing grocery lists: %w", err)
	}

	lists := []GroceryList{}
	for rows.Next() {
		l, err := scanGroceryList(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range lists {
		if lists[i].Items, err = s.groceryItems(ctx, lists[i].ID); err != nil {
			return nil, err
		}
	}
	return lists, nil
}

func (s *Store) GetGroceryList(ctx context.Context, userID, id string) (GroceryList, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at FROM grocery_lists WHERE user_id = ? AND id = ?`, userID, id)
	return s.loadGroceryList(ctx, row)
}

// FindGroceryList returns the user's oldest list whose name matches
// case-insensitively.
func (s *Store) FindGroceryList(ctx context.Context, userID, name string) (GroceryList, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, created_at FROM grocery_lists
		WHERE user_id = ? AND lower(name) = ? ORDER BY rowid ASC LIMIT 1`,
		userID, strings.ToLower(name))
	return s.loadGroceryList(ctx, row)
}

func (s *Store) CreateGroceryList(ctx context.Context, userID, name string) (GroceryList, error) {
	l := GroceryList{ID: newID(), UserID: userID, Name: name, Items: []GroceryItem{}}
	created := s.timestamp()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO grocery_lists (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`,
		l.ID, l.UserID, l.Name, created,
	); err != nil {
		return GroceryList{}, fmt.Errorf("inserting grocery list: %w", err)
	}
	l.CreatedAt, _ = parseTimestamp(created)
	return l, nil
}

// AddGroceryItem appends one display line to a list owned by userID.
func (s *Store) AddGroceryItem(ctx context.Context, userID, listID, text string) (GroceryItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return GroceryItem{}, fmt.Errorf("beginning grocery transaction: %w", err)
	}
	defer tx.Rollback()

	var owned int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM grocery_lists WHERE user_id = ? AND id = ?`, userID, listID,
	).Scan(&owned); err != nil {
		return GroceryItem{}, err
	}
	if owned == 0 {
		return GroceryItem{}, fmt.Errorf("grocery list %s: %w", listID, ErrNotFound)
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM grocery_items WHERE list_id = ?`, listID,
	).Scan(&next); err != nil {
		return GroceryItem{}, err
	}

	item := GroceryItem{ID: newID(), ListID: listID, Position: next, Text: text}
	created := s.timestamp()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO grocery_items (id, list_id, position, text, checked, created_at)
		VALUES (?, ?, ?, ?, 0, ?)`,
		item.ID, item.ListID, item.Position, item.Text, created,
	); err != nil {
		return GroceryItem{}, fmt.Errorf("inserting grocery item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return GroceryItem{}, fmt.Errorf("committing grocery item: %w", err)
	}
	item.CreatedAt, _ = parseTimestamp(created)
	return item, nil
}

func (s *Store) loadGroceryList(ctx context.Context, row *sql.Row) (GroceryList, error) {
	l, err := scanGroceryList(row)
	if errors.Is(err, sql.ErrNoRows) {
		return GroceryList{}, ErrNotFound
	}
	if err != nil {
		return GroceryList{}, err
	}
	if l.Items, err = s.groceryItems(ctx, l.ID); err != nil {
		return GroceryList{}, err
	}
	return l, nil
}

func (s *Store) groceryItems(ctx context.Context, listID string) ([]GroceryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, list_id, position, text, checked, created_at
		FROM grocery_items WHERE list_id = ? ORDER BY position ASC`, listID)
	if err != nil {
		return nil, fmt.Errorf("listing grocery items: %w", err)
	}
	defer rows.Close()

	items := []GroceryItem{}
	for rows.Next() {
		var it GroceryItem
		var created string
		if err := rows.Scan(&it.ID, &it.ListID, &it.Position, &it.Text, &it.Checked, &created); err != nil {
			return nil, err
		}
		if it.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanGroceryList(r rowScanner) (GroceryList, error) {
	var l GroceryList
	var created string
	if err := r.Scan(&l.ID, &l.UserID, &l.Name, &created); err != nil {
		return GroceryList{}, err
	}
	t, err := parseTimestamp(created)
	if err != nil {
		return GroceryList{}, err
	}
	l.CreatedAt = t
	return l, nil
}
