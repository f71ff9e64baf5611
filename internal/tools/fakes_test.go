package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kalambet/larder/internal/storage"
)

// memStore is an in-memory implementation of every store capability.
type memStore struct {
	mu      sync.Mutex
	seq     int
	pantry  []storage.PantryItem
	recipes []storage.Recipe
	meals   []storage.Meal
	lists   []storage.GroceryList

	failAddItem  map[string]bool // grocery item texts that fail to insert
	mealSaves    int
	failMealSave map[int]bool // 1-based SaveMeal calls that fail
}

func newMemStore() *memStore {
	return &memStore{failAddItem: map[string]bool{}, failMealSave: map[int]bool{}}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) ListPantryItems(_ context.Context, userID string) ([]storage.PantryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []storage.PantryItem{}
	for _, p := range m.pantry {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) GetPantryItem(_ context.Context, userID, id string) (storage.PantryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pantry {
		if p.UserID == userID && p.ID == id {
			return p, nil
		}
	}
	return storage.PantryItem{}, storage.ErrNotFound
}

func (m *memStore) AddPantryItem(_ context.Context, item storage.PantryItem) (storage.PantryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.ID == "" {
		item.ID = m.nextID("p")
	}
	m.pantry = append(m.pantry, item)
	return item, nil
}

func (m *memStore) UpdatePantryItem(_ context.Context, item storage.PantryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.pantry {
		if p.UserID == item.UserID && p.ID == item.ID {
			m.pantry[i] = item
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memStore) DeletePantryItem(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.pantry {
		if p.UserID == userID && p.ID == id {
			m.pantry = append(m.pantry[:i], m.pantry[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memStore) ListRecipes(_ context.Context, userID string) ([]storage.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []storage.Recipe{}
	for _, r := range m.recipes {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) GetRecipe(_ context.Context, userID, id string) (storage.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recipes {
		if r.UserID == userID && r.ID == id {
			return r, nil
		}
	}
	return storage.Recipe{}, storage.ErrNotFound
}

func (m *memStore) SaveRecipe(_ context.Context, r storage.Recipe) (storage.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = m.nextID("r")
	}
	m.recipes = append(m.recipes, r)
	return r, nil
}

func (m *memStore) DeleteRecipe(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.recipes {
		if r.UserID == userID && r.ID == id {
			m.recipes = append(m.recipes[:i], m.recipes[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memStore) ListMeals(_ context.Context, userID, from, to string) ([]storage.Meal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []storage.Meal{}
	for _, ml := range m.meals {
		if ml.UserID == userID && ml.Date >= from && ml.Date <= to {
			out = append(out, ml)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *memStore) GetMeal(_ context.Context, userID, id string) (storage.Meal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ml := range m.meals {
		if ml.UserID == userID && ml.ID == id {
			return ml, nil
		}
	}
	return storage.Meal{}, storage.ErrNotFound
}

func (m *memStore) SaveMeal(_ context.Context, ml storage.Meal) (storage.Meal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mealSaves++
	if m.failMealSave[m.mealSaves] {
		return storage.Meal{}, fmt.Errorf("insert meal: disk full")
	}
	if ml.ID == "" {
		ml.ID = m.nextID("m")
	}
	m.meals = append(m.meals, ml)
	return ml, nil
}

func (m *memStore) MoveMeal(_ context.Context, userID, id, date, mealType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ml := range m.meals {
		if ml.UserID == userID && ml.ID == id {
			m.meals[i].Date, m.meals[i].MealType = date, mealType
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memStore) SwapMeals(_ context.Context, userID, idA, idB string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, b := -1, -1
	for i, ml := range m.meals {
		if ml.UserID != userID {
			continue
		}
		switch ml.ID {
		case idA:
			a = i
		case idB:
			b = i
		}
	}
	if a < 0 || b < 0 {
		return storage.ErrNotFound
	}
	m.meals[a].Date, m.meals[b].Date = m.meals[b].Date, m.meals[a].Date
	m.meals[a].MealType, m.meals[b].MealType = m.meals[b].MealType, m.meals[a].MealType
	return nil
}

func (m *memStore) DeleteMeal(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ml := range m.meals {
		if ml.UserID == userID && ml.ID == id {
			m.meals = append(m.meals[:i], m.meals[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memStore) DeleteMealsInRange(_ context.Context, userID, from, to string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.meals[:0]
	n := 0
	for _, ml := range m.meals {
		if ml.UserID == userID && ml.Date >= from && ml.Date <= to {
			n++
			continue
		}
		kept = append(kept, ml)
	}
	m.meals = kept
	return n, nil
}

func (m *memStore) ListGroceryLists(_ context.Context, userID string) ([]storage.GroceryList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []storage.GroceryList{}
	for _, l := range m.lists {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) GetGroceryList(_ context.Context, userID, id string) (storage.GroceryList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.lists {
		if l.UserID == userID && l.ID == id {
			return l, nil
		}
	}
	return storage.GroceryList{}, storage.ErrNotFound
}

func (m *memStore) FindGroceryList(_ context.Context, userID, name string) (storage.GroceryList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.lists {
		if l.UserID == userID && strings.EqualFold(l.Name, name) {
			return l, nil
		}
	}
	return storage.GroceryList{}, storage.ErrNotFound
}

func (m *memStore) CreateGroceryList(_ context.Context, userID, name string) (storage.GroceryList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := storage.GroceryList{ID: m.nextID("l"), UserID: userID, Name: name, Items: []storage.GroceryItem{}}
	m.lists = append(m.lists, l)
	return l, nil
}

func (m *memStore) AddGroceryItem(_ context.Context, userID, listID, text string) (storage.GroceryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAddItem[text] {
		return storage.GroceryItem{}, fmt.Errorf("insert %q: disk full", text)
	}
	for i, l := range m.lists {
		if l.UserID == userID && l.ID == listID {
			item := storage.GroceryItem{ID: m.nextID("i"), ListID: listID, Position: len(l.Items), Text: text}
			m.lists[i].Items = append(m.lists[i].Items, item)
			return item, nil
		}
	}
	return storage.GroceryItem{}, storage.ErrNotFound
}

func (m *memStore) itemTexts(userID, listName string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, l := range m.lists {
		if l.UserID == userID && l.Name == listName {
			for _, it := range l.Items {
				out = append(out, it.Text)
			}
		}
	}
	return out
}
