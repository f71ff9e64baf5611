package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kalambet/larder/internal/storage"
)

func (r *Registry) registerPantryTools() {
	pantry := r.deps.Pantry

	r.register(Definition{
		Name:        "get_pantry",
		Description: "List every item in the user's pantry.",
		Parameters: Schema{Properties: map[string]Property{
			"category": {Type: "string", Description: "Only return items in this category"},
		}},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		var in struct {
			Category string `json:"category"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		items, err := pantry.ListPantryItems(ctx, uc.UserID)
		if err != nil {
			return nil, err
		}
		if in.Category == "" {
			return items, nil
		}
		filtered := []storage.PantryItem{}
		for _, it := range items {
			if strings.EqualFold(it.Category, in.Category) {
				filtered = append(filtered, it)
			}
		}
		return filtered, nil
	})

	r.register(Definition{
		Name:        "add_pantry_item",
		Description: "Add an item to the user's pantry.",
		Parameters: Schema{
			Properties: map[string]Property{
				"name":       {Type: "string", Description: "Item name, e.g. \"milk\""},
				"quantity":   {Type: "number", Description: "Amount on hand"},
				"unit":       {Type: "string", Description: "Unit for quantity, e.g. \"gallon\""},
				"category":   {Type: "string", Description: "Shelf or food group"},
				"expires_on": {Type: "string", Format: "date", Description: "Expiry date (YYYY-MM-DD)"},
			},
			Required: []string{"name"},
		},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		var in struct {
			Name      string   `json:"name"`
			Quantity  *float64 `json:"quantity"`
			Unit      string   `json:"unit"`
			Category  string   `json:"category"`
			ExpiresOn string   `json:"expires_on"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if in.Name == "" {
			return nil, errors.New("name must not be empty")
		}
		qty := 1.0
		if in.Quantity != nil {
			qty = *in.Quantity
		}
		return pantry.AddPantryItem(ctx, storage.PantryItem{
			UserID:    uc.UserID,
			Name:      in.Name,
			Quantity:  qty,
			Unit:      in.Unit,
			Category:  in.Category,
			ExpiresOn: in.ExpiresOn,
		})
	})

	r.register(Definition{
		Name:        "update_pantry_item",
		Description: "Change the quantity, unit or other details of a pantry item.",
		Parameters: Schema{
			Properties: map[string]Property{
				"id":         {Type: "string", Description: "Pantry item id"},
				"name":       {Type: "string"},
				"quantity":   {Type: "number"},
				"unit":       {Type: "string"},
				"category":   {Type: "string"},
				"expires_on": {Type: "string", Format: "date"},
			},
			Required: []string{"id"},
		},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		var in struct {
			ID        string   `json:"id"`
			Name      *string  `json:"name"`
			Quantity  *float64 `json:"quantity"`
			Unit      *string  `json:"unit"`
			Category  *string  `json:"category"`
			ExpiresOn *string  `json:"expires_on"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		item, err := pantry.GetPantryItem(ctx, uc.UserID, in.ID)
		if err != nil {
			return nil, notFound("pantry item", in.ID, err)
		}
		if in.Name != nil {
			item.Name = *in.Name
		}
		if in.Quantity != nil {
			item.Quantity = *in.Quantity
		}
		if in.Unit != nil {
			item.Unit = *in.Unit
		}
		if in.Category != nil {
			item.Category = *in.Category
		}
		if in.ExpiresOn != nil {
			item.ExpiresOn = *in.ExpiresOn
		}
		if err := pantry.UpdatePantryItem(ctx, item); err != nil {
			return nil, notFound("pantry item", in.ID, err)
		}
		return item, nil
	})

	r.register(Definition{
		Name:        "remove_pantry_item",
		Description: "Remove an item from the user's pantry.",
		Parameters: Schema{
			Properties: map[string]Property{"id": {Type: "string", Description: "Pantry item id"}},
			Required:   []string{"id"},
		},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		id, _ := args["id"].(string)
		if err := pantry.DeletePantryItem(ctx, uc.UserID, id); err != nil {
			return nil, notFound("pantry item", id, err)
		}
		return map[string]any{"id": id, "removed": true}, nil
	})
}

// notFound rewrites storage.ErrNotFound into a message naming the entity.
func notFound(kind, id string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s %q not found", kind, id)
	}
	return err
}
