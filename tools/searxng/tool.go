package searxng

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bububa/meal-agents/schema"
	"github.com/bububa/meal-agents/tools"
)

type Category = string

const (
	EmptyCategory   Category = ""
	GeneralCategory Category = "general"
	NewsCategory    Category = "news"
)

// DefaultEngines upstream engines used when none is configured
const DefaultEngines = "bing,duckduckgo,google,startpage"

// Input Schema for input to a tool for searching for information, news, references, and other content using SearxNG.
// Returns a list of search results with a short description or content snippet and URLs for further exploration
type Input struct {
	schema.Base
	// Queries list of search queries.
	Queries []string `json:"queries" jsonschema:"title=queries,description=List of search queries." validate:"required"`
	// Category: Category of the search queries."
	Category Category `json:"category,omitempty" jsonschema:"title=category,enum=general,enum=news,default=general,description=Category of the search queries."`
}

func NewInput(category Category, queries []string) *Input {
	return &Input{
		Queries:  queries,
		Category: category,
	}
}

// SearchResultItem represents a single search result item
type SearchResultItem struct {
	// URL The URL of the search result
	URL string `json:"url"`
	// Title The title of the search result
	Title string `json:"title"`
	// Content The content snippet of the search result
	Content string `json:"content,omitempty"`
	// Query The query used to obtain this search result
	Query string `json:"query,omitempty"`
	// Category The category of the search result
	Category Category `json:"category,omitempty"`
	// Metadata extra metadata returned by the engine
	Metadata string `json:"metadata,omitempty"`
	// PublishedDate publication date of the result
	PublishedDate string `json:"publishedDate,omitempty"`
}

// SearchResponse represents the entire response from the search engine
type SearchResponse struct {
	Query           string             `json:"query"`
	NumberOfResults int                `json:"number_of_results"`
	Results         []SearchResultItem `json:"results"`
}

// Output represents the output of the SearxNG search tool.
type Output struct {
	schema.Base
	// Results List of search result items
	Results []SearchResultItem `json:"results,omitempty" jsonschema:"title=results,description=List of search result items"`
	// Category The category of the search results
	Category Category `json:"category,omitempty"`
}

type Config struct {
	tools.Config
	language   string
	baseURL    string
	engines    string
	maxResults int
	httpClient *http.Client
}

// SearxngSearch is a tool for performing searches on SearxNG based on the provided queries and category.
type SearxngSearch struct {
	Config
}

var _ tools.Searcher = (*SearxngSearch)(nil)

func New(opts ...Option) *SearxngSearch {
	ret := new(SearxngSearch)
	for _, opt := range opts {
		opt(&ret.Config)
	}
	if ret.Title() == "" {
		ret.SetTitle("SearxngSearchTool")
	}
	if ret.maxResults == 0 {
		ret.maxResults = 10
	}
	if ret.engines == "" {
		ret.engines = DefaultEngines
	}
	if ret.httpClient == nil {
		ret.httpClient = http.DefaultClient
	}
	ret.baseURL = strings.TrimRight(ret.baseURL, "/")
	return ret
}

// Run Runs the SearxNGTool synchronously with the given parameters.
// Results from every query are merged, deduplicated by URL, stripped of items
// without a URL or title, and capped at the configured max results.
func (t *SearxngSearch) Run(ctx context.Context, input *Input, output *Output) error {
	if len(input.Queries) == 0 {
		return errors.New("searxng: no queries")
	}
	seen := make(map[string]struct{})
	results := make([]SearchResultItem, 0, t.maxResults)
	for _, query := range input.Queries {
		items, err := t.fetchSearchResults(ctx, query, input.Category)
		if err != nil {
			return err
		}
		for _, item := range items {
			if item.URL == "" || item.Title == "" {
				continue
			}
			if _, ok := seen[item.URL]; ok {
				continue
			}
			seen[item.URL] = struct{}{}
			results = append(results, item)
		}
	}
	if len(results) > t.maxResults {
		results = results[:t.maxResults]
	}
	output.Results = results
	output.Category = input.Category
	return nil
}

// Search implements tools.Searcher
func (t *SearxngSearch) Search(ctx context.Context, query string) ([]tools.Snippet, error) {
	output := new(Output)
	if err := t.Run(ctx, NewInput(GeneralCategory, []string{query}), output); err != nil {
		return nil, err
	}
	snippets := make([]tools.Snippet, 0, len(output.Results))
	for _, item := range output.Results {
		snippets = append(snippets, tools.Snippet{
			Title:   item.Title,
			URL:     item.URL,
			Content: item.Content,
		})
	}
	return snippets, nil
}

// fetchSearchResults queries the search engine and returns the parsed search response
func (t *SearxngSearch) fetchSearchResults(ctx context.Context, query string, category Category) ([]SearchResultItem, error) {
	values := url.Values{}
	values.Set("q", query)
	values.Set("safesearch", "0")
	values.Set("format", "json")
	values.Set("engines", t.engines)
	if t.language != "" {
		values.Set("language", t.language)
	}
	if category != "" {
		values.Set("categories", category)
	}
	searchURL := fmt.Sprintf("%s/search?%s", t.baseURL, values.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}

	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error querying search engine: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-200 response from search engine: %d", httpResp.StatusCode)
	}

	var searchResponse SearchResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&searchResponse); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	for idx := range searchResponse.Results {
		searchResponse.Results[idx].Query = query
	}

	return searchResponse.Results, nil
}
