package agents

import (
	"encoding/json"
	"strings"
)

const fence = "```"

// ExtractJSON returns the JSON object embedded in model generated text.
// A fenced ```json block wins when it holds valid JSON, otherwise the text is
// scanned for top level balanced {...} blocks and the last valid one is kept.
func ExtractJSON(text string) (string, error) {
	candidates := JSONCandidates(text)
	if len(candidates) == 0 {
		return "", ErrNoJSON
	}
	return candidates[0], nil
}

// JSONCandidates returns every JSON object found in text, most likely answer
// first: the whole text, fenced blocks in order, then balanced {...} blocks
// from last to first.
func JSONCandidates(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var (
		ret  []string
		seen = make(map[string]struct{})
	)
	add := func(block string) {
		if _, ok := seen[block]; ok {
			return
		}
		seen[block] = struct{}{}
		ret = append(ret, block)
	}
	if strings.HasPrefix(text, "{") && json.Valid([]byte(text)) {
		add(text)
	}
	for _, block := range fencedBlocks(text) {
		add(block)
	}
	blocks := braceBlocks(text)
	for i := len(blocks) - 1; i >= 0; i-- {
		if json.Valid([]byte(blocks[i])) {
			add(blocks[i])
		}
	}
	return ret
}

func fencedBlocks(text string) []string {
	var (
		ret  []string
		rest = text
	)
	for {
		start := strings.Index(rest, fence)
		if start < 0 {
			return ret
		}
		rest = rest[start+len(fence):]
		// skip the language tag
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "{[") {
			rest = rest[nl+1:]
		}
		end := strings.Index(rest, fence)
		if end < 0 {
			return ret
		}
		block := strings.TrimSpace(rest[:end])
		rest = rest[end+len(fence):]
		if strings.HasPrefix(block, "{") && json.Valid([]byte(block)) {
			ret = append(ret, block)
		}
	}
}

// braceBlocks collects top level brace balanced substrings, ignoring braces
// inside JSON string literals.
func braceBlocks(text string) []string {
	var (
		blocks   []string
		depth    int
		start    = -1
		inString bool
		escaped  bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				blocks = append(blocks, text[start:i+1])
				start = -1
			}
		}
	}
	return blocks
}
