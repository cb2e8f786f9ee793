package meal

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/bububa/meal-agents/components"
	"github.com/bububa/meal-agents/components/inference"
	"github.com/bububa/meal-agents/tools"
)

// jpegHeader is enough for mimetype to sniff image/jpeg
var jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}

// fakeInference answers identification with a fixed text and research with a
// text per item name. Unknown items are reported as not found.
type fakeInference struct {
	mu            sync.Mutex
	identify      string
	identifyErr   error
	nutrition     map[string]string
	researchErr   error
	identifyCalls int
	researchCalls int
	researched    []string
}

func (c *fakeInference) Provider() inference.Provider {
	return "fake"
}

func (c *fakeInference) Generate(ctx context.Context, req *inference.Request, resp *components.LLMResponse) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	resp.Usage = &components.LLMUsage{InputTokens: 100, OutputTokens: 20}
	if strings.Contains(req.SystemPrompt, "expert food analyst") {
		c.identifyCalls++
		if c.identifyErr != nil {
			return c.identifyErr
		}
		resp.Text = c.identify
		return nil
	}
	c.researchCalls++
	if c.researchErr != nil {
		return c.researchErr
	}
	var in researchInput
	if len(req.Messages) > 0 {
		if err := json.Unmarshal([]byte(req.Messages[0].StringifiedContent()), &in); err != nil {
			return err
		}
	}
	c.researched = append(c.researched, in.Item.Name)
	if text, ok := c.nutrition[in.Item.Name]; ok {
		resp.Text = text
		return nil
	}
	resp.Text = `{"found": false}`
	return nil
}

// fakeSearcher returns one snippet per query unless the query mentions an
// item listed in fail or empty
type fakeSearcher struct {
	tools.Config
	mu      sync.Mutex
	fail    map[string]error
	empty   map[string]bool
	onQuery func(query string)
	queries []string
}

func (s *fakeSearcher) Search(ctx context.Context, query string) ([]tools.Snippet, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	onQuery := s.onQuery
	s.mu.Unlock()
	if onQuery != nil {
		onQuery(query)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for name, err := range s.fail {
		if strings.Contains(query, name) {
			return nil, err
		}
	}
	for name := range s.empty {
		if strings.Contains(query, name) {
			return nil, nil
		}
	}
	return []tools.Snippet{{
		Title:   "Nutrition facts",
		URL:     "https://example.com/nutrition",
		Content: "Nutrition facts for " + query,
	}}, nil
}

func (s *fakeSearcher) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

type fakeScraper struct {
	tools.Config
	content string
	err     error
	links   []string
}

func (s *fakeScraper) Scrape(_ context.Context, link string) (string, error) {
	s.links = append(s.links, link)
	return s.content, s.err
}

var errSearchDown = errors.New("search backend down")

const pizzaIdentification = `{"items": [{"name": "Pepperoni Pizza Slice", "portion": "1 slice (~120g)", "visual_description": "Thin crust slice with pepperoni"}]}`

const pizzaNutrition = `{"found": true, "calories": 298, "carbs": 34, "protein": 12, "fat": 13, "source": "https://example.com/pizza"}`

const threeItemIdentification = "```json\n" + `{"items": [
	{"name": "Grilled Chicken Breast", "portion": "150g", "visual_description": "Sliced grilled chicken"},
	{"name": "White Rice", "portion": "1 cup", "visual_description": "Steamed white rice"},
	{"name": "Mystery Sauce", "portion": "2 tbsp", "visual_description": "Brown sauce", "uncertain": false}
]}` + "\n```"

func threeItemNutrition() map[string]string {
	return map[string]string{
		"Grilled Chicken Breast": `{"found": true, "calories": 248, "carbs": 0, "protein": 46, "fat": 5.4}`,
		"White Rice":             `{"found": true, "calories": 205, "carbs": 45, "protein": 4.3, "fat": 0.4}`,
	}
}

func testImage() MealImage {
	return MealImage{Data: jpegHeader, MimeType: "image/jpeg"}
}
