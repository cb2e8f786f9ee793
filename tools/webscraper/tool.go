package webscraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"

	"github.com/bububa/meal-agents/tools"
)

// Input schema for the WebpageScraperTool.
type Input struct {
	// URL of the webpage to scrape.
	URL string `json:"url,omitempty" validate:"required,url"`
}

func NewInput(link string) *Input {
	return &Input{
		URL: link,
	}
}

// Metadata Schema for webpage metadata
type Metadata struct {
	// Title is the title of the webpage.
	Title string `json:"title,omitempty"`
	// Description is the meta description of the webpage.
	Description string `json:"description,omitempty"`
	// SiteName is the name of the website.
	SiteName string `json:"sitename,omitempty"`
	// Domain is the domain name of the website.
	Domain string `json:"domain,omitempty"`
}

// Output Schema for the output of the WebpageScraperTool.
type Output struct {
	// Content The scraped content in markdown format.
	Content string `json:"content,omitempty"`
	// Metadata is metadata about the scraped webpage.
	Metadata *Metadata `json:"metadata,omitempty"`
}

type Config struct {
	tools.Config
	// userAgent User agent string to use for requests.
	userAgent string
	// timeout Timeout for HTTP requests
	timeout time.Duration
	// maxContentLength Maximum content length in bytes to process.
	maxContentLength int64
	httpClient       *http.Client
}

type Webscraper struct {
	Config
}

var _ tools.Scraper = (*Webscraper)(nil)

var blankLines = regexp.MustCompile(`\r?\n{2,}`)

func New(opts ...Option) *Webscraper {
	ret := new(Webscraper)
	for _, opt := range opts {
		opt(&ret.Config)
	}
	if ret.Title() == "" {
		ret.SetTitle("WebscraperTool")
	}
	if ret.userAgent == "" {
		ret.userAgent = DefaultUserAgent
	}
	if ret.timeout == 0 {
		ret.timeout = 30 * time.Second
	}
	if ret.maxContentLength == 0 {
		ret.maxContentLength = 1_000_000
	}
	if ret.httpClient == nil {
		ret.httpClient = &http.Client{Timeout: ret.timeout}
	}
	return ret
}

func (t *Webscraper) Run(ctx context.Context, input *Input, output *Output) error {
	parsedURL, err := url.ParseRequestURI(input.URL)
	if err != nil {
		return err
	}
	doc, err := t.fetch(ctx, input.URL)
	if err != nil {
		return err
	}
	meta := &Metadata{Domain: parsedURL.Host}
	t.extractMetadata(doc, meta)
	markdown, err := htmltomarkdown.ConvertString(
		t.extractMainContent(doc),
		converter.WithDomain(fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)),
	)
	if err != nil {
		return err
	}
	output.Content = t.cleanMarkdownContent(markdown)
	output.Metadata = meta
	return nil
}

// Scrape implements tools.Scraper
func (t *Webscraper) Scrape(ctx context.Context, link string) (string, error) {
	output := new(Output)
	if err := t.Run(ctx, NewInput(link), output); err != nil {
		return "", err
	}
	return output.Content, nil
}

func (t *Webscraper) fetch(ctx context.Context, link string) (*goquery.Document, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", t.userAgent)
	httpReq.Header.Set("Accept", DefaultAccept)
	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-200 response from %s: %d", link, httpResp.StatusCode)
	}
	return goquery.NewDocumentFromReader(io.LimitReader(httpResp.Body, t.maxContentLength))
}

func (t *Webscraper) extractMetadata(doc *goquery.Document, meta *Metadata) {
	meta.Title = strings.TrimSpace(doc.Find("head title").Text())
	meta.Description, _ = doc.Find("meta[name='description']").Attr("content")
	meta.SiteName, _ = doc.Find("meta[property='og:site_name']").Attr("content")
}

// extractMainContent extracts the main content from the webpage using custom heuristics
func (t *Webscraper) extractMainContent(doc *goquery.Document) string {
	for _, tag := range []string{"script", "style", "nav", "header", "footer", "aside"} {
		doc.Find(tag).Remove()
	}
	for _, selector := range []string{"main", "#content, #main", ".content, .main", "article", "body"} {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		if txt, err := sel.First().Html(); err == nil && strings.TrimSpace(txt) != "" {
			return txt
		}
	}
	html, _ := doc.Html()
	return html
}

// cleanMarkdownContent removes excessive whitespace and normalizes formatting
func (t *Webscraper) cleanMarkdownContent(content string) string {
	content = blankLines.ReplaceAllString(content, "\n\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}
