package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist or belongs
// to another user.
var ErrNotFound = errors.New("not found")

// Meal slots recognised by the planner.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

// DateLayout is the calendar-day format used for meal dates and expiry.
const DateLayout = "2006-01-02"

type PantryItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	Quantity  float64   `json:"quantity"`
	Unit      string    `json:"unit,omitempty"`
	Category  string    `json:"category,omitempty"`
	ExpiresOn string    `json:"expires_on,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type RecipeIngredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity,omitempty"`
	Unit     string  `json:"unit,omitempty"`
}

type Recipe struct {
	ID           string             `json:"id"`
	UserID       string             `json:"-"`
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	Instructions string             `json:"instructions,omitempty"`
	Servings     int                `json:"servings,omitempty"`
	Tags         []string           `json:"tags"`
	SourceURL    string             `json:"source_url,omitempty"`
	Ingredients  []RecipeIngredient `json:"ingredients"`
	CreatedAt    time.Time          `json:"created_at"`
}

type Meal struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Date      string    `json:"date"`
	MealType  string    `json:"meal_type"`
	RecipeID  string    `json:"recipe_id,omitempty"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type GroceryItem struct {
	ID        string    `json:"id"`
	ListID    string    `json:"list_id"`
	Position  int       `json:"position"`
	Text      string    `json:"text"`
	Checked   bool      `json:"checked"`
	CreatedAt time.Time `json:"created_at"`
}

type GroceryList struct {
	ID        string        `json:"id"`
	UserID    string        `json:"-"`
	Name      string        `json:"name"`
	Items     []GroceryItem `json:"items"`
	CreatedAt time.Time     `json:"created_at"`
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
