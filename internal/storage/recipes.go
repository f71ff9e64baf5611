package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const recipeColumns = `id, user_id, name, description, instructions, servings, tags, source_url, created_at`

// ListRecipes returns the user's recipes, ingredients included, in insertion order.
func (s *Store) ListRecipes(ctx context.Context, userID string) ([]Recipe, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE user_id = ? ORDER BY rowid ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing recipes: %w", err)
	}

	recipes := []Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Release the single connection before the per-recipe ingredient queries.
	rows.Close()

	for i := range recipes {
		ings, err := s.recipeIngredients(ctx, recipes[i].ID)
		if err != nil {
			return nil, err
		}
		recipes[i].Ingredients = ings
	}
	return recipes, nil
}

// GetRecipe returns one recipe owned by userID.
func (s *Store) GetRecipe(ctx context.Context, userID, id string) (Recipe, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE user_id = ? AND id = ?`, userID, id)
	r, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Recipe{}, ErrNotFound
	}
	if err != nil {
		return Recipe{}, err
	}
	if r.Ingredients, err = s.recipeIngredients(ctx, r.ID); err != nil {
		return Recipe{}, err
	}
	return r, nil
}

// SaveRecipe inserts r with its ingredients in one transaction.
func (s *Store) SaveRecipe(ctx context.Context, r Recipe) (Recipe, error) {
	if r.ID == "" {
		r.ID = newID()
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.Ingredients == nil {
		r.Ingredients = []RecipeIngredient{}
	}
	tags, err := json.Marshal(r.Tags)
	if err != nil {
		return Recipe{}, fmt.Errorf("encoding tags: %w", err)
	}
	created := s.timestamp()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Recipe{}, fmt.Errorf("beginning recipe transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO recipes (`+recipeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Name, r.Description, r.Instructions, r.Servings, string(tags), r.SourceURL, created,
	); err != nil {
		return Recipe{}, fmt.Errorf("inserting recipe: %w", err)
	}
	for i, ing := range r.Ingredients {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recipe_ingredients (recipe_id, position, name, quantity, unit)
			VALUES (?, ?, ?, ?, ?)`,
			r.ID, i, ing.Name, ing.Quantity, ing.Unit,
		); err != nil {
			return Recipe{}, fmt.Errorf("inserting ingredient %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Recipe{}, fmt.Errorf("committing recipe: %w", err)
	}
	r.CreatedAt, _ = parseTimestamp(created)
	return r, nil
}

func (s *Store) DeleteRecipe(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM recipes WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting recipe: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = ?`, id); err != nil {
		return fmt.Errorf("deleting recipe ingredients: %w", err)
	}
	return tx.Commit()
}

func (s *Store) recipeIngredients(ctx context.Context, recipeID string) ([]RecipeIngredient, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, quantity, unit FROM recipe_ingredients WHERE recipe_id = ? ORDER BY position ASC`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("listing ingredients: %w", err)
	}
	defer rows.Close()

	ings := []RecipeIngredient{}
	for rows.Next() {
		var ing RecipeIngredient
		if err := rows.Scan(&ing.Name, &ing.Quantity, &ing.Unit); err != nil {
			return nil, err
		}
		ings = append(ings, ing)
	}
	return ings, rows.Err()
}

func scanRecipe(r rowScanner) (Recipe, error) {
	var rec Recipe
	var tags, created string
	if err := r.Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.Description, &rec.Instructions,
		&rec.Servings, &tags, &rec.SourceURL, &created); err != nil {
		return Recipe{}, err
	}
	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return Recipe{}, fmt.Errorf("decoding tags for recipe %s: %w", rec.ID, err)
	}
	t, err := parseTimestamp(created)
	if err != nil {
		return Recipe{}, err
	}
	rec.CreatedAt = t
	return rec, nil
}
