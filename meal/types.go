package meal

import (
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/bububa/meal-agents/schema"
)

// ErrInvalidImage payload is empty or not an image
var ErrInvalidImage = errors.New("invalid meal image")

// MealImage is the raw photo to analyse
type MealImage struct {
	Data     []byte
	MimeType string
}

// NewMealImage checks data is an image and fills its media type. A declared
// type is kept when it is an image type, otherwise the type is sniffed.
func NewMealImage(data []byte, mimeType string) (MealImage, error) {
	if len(data) == 0 {
		return MealImage{}, ErrInvalidImage
	}
	mimeType = strings.TrimSpace(mimeType)
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = mimetype.Detect(data).String()
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return MealImage{}, ErrInvalidImage
	}
	return MealImage{Data: data, MimeType: mimeType}, nil
}

// Extension returns the file extension matching the image type, with dot
func (m MealImage) Extension() string {
	if mt := mimetype.Lookup(m.MimeType); mt != nil {
		return mt.Extension()
	}
	return mimetype.Detect(m.Data).Extension()
}

// Request is one analysis request
type Request struct {
	Image MealImage
	// Hint optional free text from the user, e.g. "lunch at the office"
	Hint string
}

// Attachement returns the image as a message attachement
func (r Request) Attachement() *schema.Attachement {
	if len(r.Image.Data) == 0 {
		return nil
	}
	return schema.NewImageAttachement(r.Image.Data, r.Image.MimeType)
}

// NutritionFacts nutrition of a single item at its portion
type NutritionFacts struct {
	Calories float64 `json:"calories" validate:"gte=0"`
	Carbs    float64 `json:"carbs" validate:"gte=0"`
	Protein  float64 `json:"protein" validate:"gte=0"`
	Fat      float64 `json:"fat" validate:"gte=0"`
}

// FoodItem one food or beverage tracked through the pipeline.
// Nutrition fields are either all set or all unset.
type FoodItem struct {
	Name              string   `json:"name"`
	Portion           string   `json:"portion"`
	VisualDescription string   `json:"visual_description"`
	Calories          *float64 `json:"calories,omitempty"`
	Carbs             *float64 `json:"carbs,omitempty"`
	Protein           *float64 `json:"protein,omitempty"`
	Fat               *float64 `json:"fat,omitempty"`
	// Brand hint from identification, used to prefer branded data
	Brand string `json:"-"`
	// Uncertain identification flagged doubt about the item
	Uncertain bool `json:"-"`
	// LookupFailed research found no usable data
	LookupFailed bool `json:"-"`
}

// HasNutrition reports whether all four nutrition fields are set
func (i FoodItem) HasNutrition() bool {
	return i.Calories != nil && i.Carbs != nil && i.Protein != nil && i.Fat != nil
}

// Nutrition returns the item nutrition when complete
func (i FoodItem) Nutrition() (NutritionFacts, bool) {
	if !i.HasNutrition() {
		return NutritionFacts{}, false
	}
	return NutritionFacts{
		Calories: *i.Calories,
		Carbs:    *i.Carbs,
		Protein:  *i.Protein,
		Fat:      *i.Fat,
	}, true
}

// SetNutrition sets all four nutrition fields
func (i *FoodItem) SetNutrition(v NutritionFacts) {
	i.Calories = floatPtr(v.Calories)
	i.Carbs = floatPtr(v.Carbs)
	i.Protein = floatPtr(v.Protein)
	i.Fat = floatPtr(v.Fat)
	i.LookupFailed = false
}

// ClearNutrition unsets all four nutrition fields
func (i *FoodItem) ClearNutrition() {
	i.Calories = nil
	i.Carbs = nil
	i.Protein = nil
	i.Fat = nil
}

// Clone returns a deep copy
func (i FoodItem) Clone() FoodItem {
	ret := i
	ret.Calories = clonePtr(i.Calories)
	ret.Carbs = clonePtr(i.Carbs)
	ret.Protein = clonePtr(i.Protein)
	ret.Fat = clonePtr(i.Fat)
	return ret
}

// ItemList is the data contract handed from one stage to the next
type ItemList struct {
	schema.Base
	Items []FoodItem `json:"items"`
	// LookupErrors per item research failures carried forward
	LookupErrors []*ItemLookupError `json:"-"`
}

// Clone returns a deep copy so the receiving stage owns its data
func (l *ItemList) Clone() *ItemList {
	ret := &ItemList{
		Items: CloneItems(l.Items),
	}
	if len(l.LookupErrors) > 0 {
		ret.LookupErrors = append([]*ItemLookupError(nil), l.LookupErrors...)
	}
	return ret
}

// CloneItems deep copies items, never returning nil
func CloneItems(items []FoodItem) []FoodItem {
	ret := make([]FoodItem, len(items))
	for idx, item := range items {
		ret[idx] = item.Clone()
	}
	return ret
}

// MealReport is the terminal artifact of the pipeline
type MealReport struct {
	FoodName    string     `json:"foodName"`
	Confidence  int        `json:"confidence"`
	Calories    float64    `json:"calories"`
	Carbs       float64    `json:"carbs"`
	Protein     float64    `json:"protein"`
	Fat         float64    `json:"fat"`
	Description string     `json:"description"`
	Items       []FoodItem `json:"items"`
}

func (r MealReport) Attachement() *schema.Attachement {
	return nil
}

func floatPtr(v float64) *float64 {
	return &v
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return floatPtr(*v)
}
