package meal

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bububa/meal-agents/agents"
	"github.com/bububa/meal-agents/components"
)

const (
	// UncertaintyPenalty confidence share lost when every item is uncertain
	UncertaintyPenalty = 0.25
	// maxNamedItems items named in the meal name before summarising
	maxNamedItems = 3
	// UnidentifiedMeal meal name when no item was identified
	UnidentifiedMeal = "Unidentified meal"
)

// Totals sums nutrition over items having all four fields. Partial items
// are skipped.
func Totals(items []FoodItem) NutritionFacts {
	var ret NutritionFacts
	for _, item := range items {
		facts, ok := item.Nutrition()
		if !ok {
			continue
		}
		ret.Calories += facts.Calories
		ret.Carbs += facts.Carbs
		ret.Protein += facts.Protein
		ret.Fat += facts.Fat
	}
	return ret
}

// Confidence scores the report completeness in [0,100]:
//
//	round(100 * complete/total * (1 - 0.25 * uncertain/total))
//
// A meal without items scores 0.
func Confidence(items []FoodItem) int {
	total := len(items)
	if total == 0 {
		return 0
	}
	var complete, uncertain int
	for _, item := range items {
		if item.HasNutrition() {
			complete++
		}
		if item.Uncertain {
			uncertain++
		}
	}
	completeness := float64(complete) / float64(total)
	uncertainty := float64(uncertain) / float64(total)
	score := int(math.Round(100 * completeness * (1 - UncertaintyPenalty*uncertainty)))
	return min(max(score, 0), 100)
}

// FoodName derives the meal name from item names
func FoodName(items []FoodItem) string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		if name := strings.TrimSpace(item.Name); name != "" {
			names = append(names, name)
		}
	}
	switch n := len(names); {
	case n == 0:
		return UnidentifiedMeal
	case n == 1:
		return names[0]
	case n <= maxNamedItems:
		return strings.Join(names[:n-1], ", ") + " and " + names[n-1]
	default:
		return fmt.Sprintf("%s and %d more items", strings.Join(names[:maxNamedItems-1], ", "), n-maxNamedItems+1)
	}
}

// Describe writes a short synthesis of the meal
func Describe(items []FoodItem, totals NutritionFacts) string {
	if len(items) == 0 {
		return "No food or beverage items were identified in the image."
	}
	parts := make([]string, 0, len(items))
	var missing []string
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s (%s)", item.Name, item.Portion))
		if !item.HasNutrition() {
			missing = append(missing, item.Name)
		}
	}
	var b strings.Builder
	b.WriteString("The meal contains ")
	b.WriteString(joinAnd(parts))
	b.WriteString(".")
	if len(missing) == len(items) {
		b.WriteString(" Nutrition data could not be found for any item, so no totals are available.")
		return b.String()
	}
	fmt.Fprintf(&b, " It provides about %s kcal with %sg carbs, %sg protein and %sg fat.",
		amount(totals.Calories), amount(totals.Carbs), amount(totals.Protein), amount(totals.Fat))
	if macros := totals.Carbs*4 + totals.Protein*4 + totals.Fat*9; macros > 0 {
		fmt.Fprintf(&b, " Energy split: %d%% carbs, %d%% protein, %d%% fat.",
			int(math.Round(totals.Carbs*4*100/macros)),
			int(math.Round(totals.Protein*4*100/macros)),
			int(math.Round(totals.Fat*9*100/macros)))
	}
	if len(missing) > 0 {
		pronoun := "it"
		if len(missing) > 1 {
			pronoun = "them"
		}
		fmt.Fprintf(&b, " No nutrition data was found for %s, so the totals exclude %s.", joinAnd(missing), pronoun)
	}
	return b.String()
}

// Aggregate builds the final report from researched items. It performs no
// external call.
func Aggregate(items []FoodItem) *MealReport {
	items = CloneItems(items)
	totals := Totals(items)
	return &MealReport{
		FoodName:    FoodName(items),
		Confidence:  Confidence(items),
		Calories:    totals.Calories,
		Carbs:       totals.Carbs,
		Protein:     totals.Protein,
		Fat:         totals.Fat,
		Description: Describe(items, totals),
		Items:       items,
	}
}

// aggregator runs Aggregate as a chain step
type aggregator struct{}

var _ agents.ChainableAgent = aggregator{}

func (aggregator) Name() string {
	return Aggregating.String()
}

func (aggregator) RunForChain(_ context.Context, input any, _ *components.LLMResponse) (any, error) {
	list, ok := input.(*ItemList)
	if !ok {
		return nil, agents.ErrInvalidInputSchema
	}
	return Aggregate(list.Items), nil
}

func joinAnd(v []string) string {
	switch len(v) {
	case 0:
		return ""
	case 1:
		return v[0]
	}
	return strings.Join(v[:len(v)-1], ", ") + " and " + v[len(v)-1]
}

func amount(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
