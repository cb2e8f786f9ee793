package tokencounter

import "testing"

func TestWordsTokenCounter(t *testing.T) {
	c := WordsTokenCounter{}
	text := "one slice of pepperoni pizza has about 300 calories"
	if n := c.Count(text); n != 9 {
		t.Errorf("expect 9 tokens, got %d", n)
	}
	if got := c.Truncate(text, 3); got != "one slice of" {
		t.Errorf("unexpected truncation %q", got)
	}
	if got := c.Truncate(text, 100); got != text {
		t.Errorf("expect text unchanged under budget, got %q", got)
	}
	if got := c.Truncate(text, 0); got != "" {
		t.Errorf("expect empty text for zero budget, got %q", got)
	}
}

func TestNewWithoutEncoding(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(WordsTokenCounter); !ok {
		t.Errorf("expect words counter, got %T", c)
	}
}
