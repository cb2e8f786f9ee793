package tools

import "context"

type ITool interface {
	SetTitle(string)
	Title() string
	SetDescription(string)
	Description() string
}

// Snippet is a ranked search result excerpt
type Snippet struct {
	// Title of the source page
	Title string `json:"title"`
	// URL of the source page
	URL string `json:"url"`
	// Content text excerpt
	Content string `json:"content,omitempty"`
}

// Searcher resolves a free text query into ranked snippets
type Searcher interface {
	ITool
	Search(ctx context.Context, query string) ([]Snippet, error)
}

// Scraper fetches a web page and returns its main content as text
type Scraper interface {
	ITool
	Scrape(ctx context.Context, link string) (string, error)
}
