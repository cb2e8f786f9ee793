package meal

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// quantityWords are units, sizes and counts that make a portion concrete
var quantityWords = map[string]struct{}{
	"g": {}, "gram": {}, "grams": {}, "kg": {}, "mg": {}, "oz": {}, "ounce": {}, "ounces": {}, "lb": {}, "lbs": {},
	"ml": {}, "l": {}, "liter": {}, "liters": {}, "litre": {}, "litres": {}, "cl": {}, "dl": {},
	"cup": {}, "cups": {}, "tbsp": {}, "tablespoon": {}, "tablespoons": {}, "tsp": {}, "teaspoon": {}, "teaspoons": {},
	"slice": {}, "slices": {}, "piece": {}, "pieces": {}, "bowl": {}, "bowls": {}, "plate": {}, "plates": {},
	"glass": {}, "glasses": {}, "can": {}, "cans": {}, "bottle": {}, "bottles": {}, "mug": {}, "fillet": {},
	"scoop": {}, "scoops": {}, "stick": {}, "sticks": {}, "wedge": {}, "wedges": {}, "strip": {}, "strips": {},
	"small": {}, "medium": {}, "large": {}, "whole": {}, "half": {}, "quarter": {}, "dozen": {}, "pair": {},
	"one": {}, "two": {}, "three": {}, "four": {}, "five": {}, "six": {}, "seven": {}, "eight": {}, "nine": {}, "ten": {},
	"single": {}, "double": {},
}

// ConcretePortion reports whether a portion names a measurable quantity
// rather than a vague term like "some" or "a serving".
func ConcretePortion(portion string) bool {
	for _, r := range portion {
		if unicode.IsDigit(r) {
			return true
		}
	}
	words := strings.FieldsFunc(strings.ToLower(portion), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if _, ok := quantityWords[w]; ok {
			return true
		}
	}
	return false
}

// NewValidator returns a validator knowing the portion and notblank rules
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// registration only fails on an empty tag or nil func
	_ = v.RegisterValidation("portion", func(fl validator.FieldLevel) bool {
		return ConcretePortion(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}
