package webscraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const nutritionPage = `<html>
<head>
<title>Pepperoni Pizza Nutrition Facts</title>
<meta name="description" content="Calories in one slice of pepperoni pizza">
</head>
<body>
<nav>Home | Foods</nav>
<main>
<h1>Pepperoni Pizza</h1>
<p>One slice (120g) contains <strong>300 calories</strong>.</p>
<script>trackVisit()</script>
</main>
<footer>copyright</footer>
</body>
</html>`

func TestScrape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("expect default user agent, got %s", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(nutritionPage))
	}))
	defer srv.Close()
	tool := New()
	output := new(Output)
	if err := tool.Run(context.Background(), NewInput(srv.URL+"/pizza"), output); err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if !strings.Contains(output.Content, "# Pepperoni Pizza") {
		t.Errorf("expect heading in markdown, got %s", output.Content)
	}
	if !strings.Contains(output.Content, "**300 calories**") {
		t.Errorf("expect bold calories, got %s", output.Content)
	}
	for _, unwanted := range []string{"Home | Foods", "trackVisit", "copyright"} {
		if strings.Contains(output.Content, unwanted) {
			t.Errorf("expect %q stripped, got %s", unwanted, output.Content)
		}
	}
	if output.Metadata.Title != "Pepperoni Pizza Nutrition Facts" {
		t.Errorf("unexpected title %s", output.Metadata.Title)
	}
}

func TestScrapeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()
	tool := New()
	if _, err := tool.Scrape(context.Background(), srv.URL); err == nil {
		t.Error("expect error on 404")
	}
	if _, err := tool.Scrape(context.Background(), "not a url"); err == nil {
		t.Error("expect error on invalid url")
	}
}
