package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/kalambet/larder/internal/intent"
	"github.com/kalambet/larder/internal/tools"
)

// addMeal resolves the day and stages the meal for the planner. Placement
// may need the user to confirm a recipe match, so nothing is written here.
func (d *Dispatcher) addMeal(a intent.AddMeal) Outcome {
	now := d.now()
	day, err := intent.ResolveDay(a.Day, now)
	if err != nil {
		return clarify(intent.TagAddMeal, fmt.Sprintf("Which day should I plan %s for? I didn't understand %q.", a.Food, a.Day))
	}
	return Outcome{
		Success:    true,
		Navigate:   intent.Destinations["meal-plan"],
		StagedMeal: &StagedMeal{Food: a.Food, MealType: a.MealType, Date: day.Format(intent.DateLayout)},
		Message:    fmt.Sprintf("Let's add %s for %s %s. Confirm it on your meal plan.", a.Food, a.MealType, describeDay(day, now)),
	}
}

func (d *Dispatcher) clearMeals(ctx context.Context, uc tools.UserContext, a intent.ClearMeals) Outcome {
	now := d.now()
	start, end, err := intent.ResolveRange(a.TimeRange, now)
	if err != nil {
		return clarify(intent.TagClearMeals, fmt.Sprintf("Which days should I clear? I didn't understand %q.", a.TimeRange))
	}
	span := describeRange(start, end, now)

	var out Outcome
	res := d.call(ctx, uc, &out, "clear_meals", span, rangeArgs(start, end))
	if !res.Success {
		out.Message = fmt.Sprintf("Sorry, I couldn't clear the meals %s: %s.", span, res.Error)
		return out
	}
	var data struct {
		Cleared int `json:"cleared"`
	}
	if err := decodeData(res.Data, &data); err != nil {
		d.logger.Warn("unexpected clear_meals result", "error", err)
	}

	out.Success = true
	out.Data = res.Data
	if data.Cleared == 0 {
		out.Message = fmt.Sprintf("There were no meals planned %s.", span)
	} else {
		out.Message = fmt.Sprintf("Cleared %s %s.", plural(data.Cleared, "meal"), span)
	}
	return out
}

func (d *Dispatcher) generateMeals(ctx context.Context, uc tools.UserContext, a intent.GenerateMeals) Outcome {
	now := d.now()
	start, end, err := intent.ResolveRange(a.TimeRange, now)
	if err != nil {
		return clarify(intent.TagGenerateMeals, fmt.Sprintf("Which days should I plan? I didn't understand %q.", a.TimeRange))
	}
	span := describeRange(start, end, now)

	var out Outcome
	res := d.call(ctx, uc, &out, "generate_meals", span, rangeArgs(start, end))
	if !res.Success {
		out.Message = fmt.Sprintf("Sorry, I couldn't plan meals %s: %s.", span, res.Error)
		return out
	}
	var data struct {
		Generated int                `json:"generated"`
		Failed    []tools.FailedSlot `json:"failed"`
	}
	if err := decodeData(res.Data, &data); err != nil {
		d.logger.Warn("unexpected generate_meals result", "error", err)
	}

	out.Data = res.Data
	out.Navigate = intent.Destinations["meal-plan"]
	if len(data.Failed) > 0 {
		missed := make([]string, len(data.Failed))
		for i, f := range data.Failed {
			missed[i] = f.Date + " " + f.MealType
			if day, err := time.ParseInLocation(intent.DateLayout, f.Date, now.Location()); err == nil {
				missed[i] = f.MealType + " " + describeDay(day, now)
			}
		}
		out.Message = fmt.Sprintf("Planned %d of %d meals %s. I couldn't save %s.",
			data.Generated, data.Generated+len(data.Failed), span, joinAnd(missed))
		return out
	}
	out.Success = true
	if data.Generated == 0 {
		out.Message = fmt.Sprintf("No new meals were needed %s.", span)
	} else {
		out.Message = fmt.Sprintf("Planned %s %s.", plural(data.Generated, "meal"), span)
	}
	return out
}

// plannedMeal is the part of a planned meal the dispatcher needs.
type plannedMeal struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	MealType string `json:"meal_type"`
	Title    string `json:"title"`
}

type resolvedSlot struct {
	slot  intent.Slot
	date  time.Time
	label string
	meal  *plannedMeal
}

// resolveSlots turns slot references into dates and looks up the meal in
// each. A day that cannot be resolved is returned as a clarifying outcome.
func (d *Dispatcher) resolveSlots(ctx context.Context, uc tools.UserContext, out *Outcome, tag string, slots ...intent.Slot) ([]resolvedSlot, *Outcome) {
	now := d.now()
	resolved := make([]resolvedSlot, len(slots))
	for i, s := range slots {
		day, err := intent.ResolveDay(s.Day, now)
		if err != nil {
			o := clarify(tag, fmt.Sprintf("I didn't understand the day %q. Which day did you mean?", s.Day))
			return nil, &o
		}
		resolved[i] = resolvedSlot{slot: s, date: day, label: s.MealType + " " + describeDay(day, now)}
	}

	for i := range resolved {
		r := &resolved[i]
		date := r.date.Format(intent.DateLayout)
		res := d.call(ctx, uc, out, "get_meal_plan", r.label, map[string]any{"start_date": date, "end_date": date})
		if !res.Success {
			o := *out
			o.Message = fmt.Sprintf("Sorry, I couldn't read your meal plan: %s.", res.Error)
			return nil, &o
		}
		var meals []plannedMeal
		if err := decodeData(res.Data, &meals); err != nil {
			o := *out
			o.Message = apology
			d.logger.Warn("unexpected get_meal_plan result", "error", err)
			return nil, &o
		}
		for j := range meals {
			if meals[j].MealType == r.slot.MealType {
				r.meal = &meals[j]
				break
			}
		}
	}
	return resolved, nil
}

func (d *Dispatcher) moveMeal(ctx context.Context, uc tools.UserContext, a intent.MoveMeal) Outcome {
	var out Outcome
	slots, stop := d.resolveSlots(ctx, uc, &out, intent.TagMoveMeal, a.From, a.To)
	if stop != nil {
		return *stop
	}
	from, to := slots[0], slots[1]
	if from.meal == nil {
		out.Message = fmt.Sprintf("I couldn't find a meal planned for %s.", from.label)
		return out
	}

	res := d.call(ctx, uc, &out, "move_meal", from.meal.Title, map[string]any{
		"id":        from.meal.ID,
		"date":      to.date.Format(intent.DateLayout),
		"meal_type": to.slot.MealType,
	})
	if !res.Success {
		out.Message = fmt.Sprintf("Sorry, I couldn't move %s: %s.", from.meal.Title, res.Error)
		return out
	}
	out.Success = true
	out.Data = res.Data
	out.Message = fmt.Sprintf("Moved %s from %s to %s.", from.meal.Title, from.label, to.label)
	return out
}

func (d *Dispatcher) swapMeals(ctx context.Context, uc tools.UserContext, a intent.SwapMeals) Outcome {
	var out Outcome
	slots, stop := d.resolveSlots(ctx, uc, &out, intent.TagSwapMeals, a.First, a.Second)
	if stop != nil {
		return *stop
	}
	first, second := slots[0], slots[1]

	var missing []string
	for _, s := range slots {
		if s.meal == nil {
			missing = append(missing, s.label)
		}
	}
	if len(missing) > 0 {
		out.Message = fmt.Sprintf("I couldn't find a meal planned for %s.", joinOr(missing))
		return out
	}
	if first.meal.ID == second.meal.ID {
		return clarify(intent.TagSwapMeals, "Those are the same meal. Which two meals should I swap?")
	}

	res := d.call(ctx, uc, &out, "swap_meals", first.meal.Title+" <-> "+second.meal.Title, map[string]any{
		"first_id":  first.meal.ID,
		"second_id": second.meal.ID,
	})
	if !res.Success {
		out.Message = fmt.Sprintf("Sorry, I couldn't swap those meals: %s.", res.Error)
		return out
	}
	out.Success = true
	out.Data = res.Data
	out.Message = fmt.Sprintf("Swapped %s (%s) with %s (%s).", first.meal.Title, first.label, second.meal.Title, second.label)
	return out
}

func rangeArgs(start, end time.Time) map[string]any {
	return map[string]any{
		"start_date": start.Format(intent.DateLayout),
		"end_date":   end.Format(intent.DateLayout),
	}
}
