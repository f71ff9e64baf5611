package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const mealColumns = `id, user_id, date, meal_type, recipe_id, title, created_at`

// mealOrder sorts a day's meals breakfast first, unknown slots last.
const mealOrder = `ORDER BY date ASC,
	CASE meal_type WHEN 'breakfast' THEN 0 WHEN 'lunch' THEN 1 WHEN 'dinner' THEN 2 WHEN 'snack' THEN 3 ELSE 4 END,
	rowid ASC`

// ListMeals returns the user's meals with from <= date <= to. Dates are
// YYYY-MM-DD strings, so lexical comparison is calendar order.
func (s *Store) ListMeals(ctx context.Context, userID, from, to string) ([]Meal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+mealColumns+` FROM meals WHERE user_id = ? AND date >= ? AND date <= ? `+mealOrder,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing meals: %w", err)
	}
	defer rows.Close()

	meals := []Meal{}
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

func (s *Store) GetMeal(ctx context.Context, userID, id string) (Meal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+mealColumns+` FROM meals WHERE user_id = ? AND id = ?`, userID, id)
	m, err := scanMeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Meal{}, ErrNotFound
	}
	return m, err
}

// SaveMeal inserts m and returns it with ID and CreatedAt filled in.
func (s *Store) SaveMeal(ctx context.Context, m Meal) (Meal, error) {
	if m.ID == "" {
		m.ID = newID()
	}
	created := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meals (`+mealColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.Date, m.MealType, m.RecipeID, m.Title, created,
	)
	if err != nil {
		return Meal{}, fmt.Errorf("inserting meal: %w", err)
	}
	m.CreatedAt, _ = parseTimestamp(created)
	return m, nil
}

// MoveMeal changes the date and slot of one meal.
func (s *Store) MoveMeal(ctx context.Context, userID, id, date, mealType string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE meals SET date = ?, meal_type = ? WHERE user_id = ? AND id = ?`,
		date, mealType, userID, id)
	if err != nil {
		return fmt.Errorf("moving meal: %w", err)
	}
	return checkAffected(res)
}

// SwapMeals exchanges the date and slot of two meals atomically.
func (s *Store) SwapMeals(ctx context.Context, userID, idA, idB string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning swap transaction: %w", err)
	}
	defer tx.Rollback()

	var dateA, typeA, dateB, typeB string
	q := `SELECT date, meal_type FROM meals WHERE user_id = ? AND id = ?`
	if err := tx.QueryRowContext(ctx, q, userID, idA).Scan(&dateA, &typeA); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("meal %s: %w", idA, ErrNotFound)
		}
		return err
	}
	if err := tx.QueryRowContext(ctx, q, userID, idB).Scan(&dateB, &typeB); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("meal %s: %w", idB, ErrNotFound)
		}
		return err
	}

	upd := `UPDATE meals SET date = ?, meal_type = ? WHERE user_id = ? AND id = ?`
	if _, err := tx.ExecContext(ctx, upd, dateB, typeB, userID, idA); err != nil {
		return fmt.Errorf("swapping meal %s: %w", idA, err)
	}
	if _, err := tx.ExecContext(ctx, upd, dateA, typeA, userID, idB); err != nil {
		return fmt.Errorf("swapping meal %s: %w", idB, err)
	}
	return tx.Commit()
}

func (s *Store) DeleteMeal(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM meals WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting meal: %w", err)
	}
	return checkAffected(res)
}

// DeleteMealsInRange removes every meal in [from, to] and reports how many
// were removed. Zero is not an error.
func (s *Store) DeleteMealsInRange(ctx context.Context, userID, from, to string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM meals WHERE user_id = ? AND date >= ? AND date <= ?`, userID, from, to)
	if err != nil {
		return 0, fmt.Errorf("clearing meals: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func scanMeal(r rowScanner) (Meal, error) {
	var m Meal
	var created string
	if err := r.Scan(&m.ID, &m.UserID, &m.Date, &m.MealType, &m.RecipeID, &m.Title, &created); err != nil {
		return Meal{}, err
	}
	t, err := parseTimestamp(created)
	if err != nil {
		return Meal{}, err
	}
	m.CreatedAt = t
	return m, nil
}
