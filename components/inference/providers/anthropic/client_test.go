package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/bububa/meal-agents/components"
	"github.com/bububa/meal-agents/components/inference"
	"github.com/bububa/meal-agents/schema"
)

func TestGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test","content":[{"type":"text","text":"{\"found\":false}"}],"usage":{"input_tokens":7,"output_tokens":3}}`))
	}))
	defer srv.Close()
	clt := New(anthropic.NewClient("test-key", anthropic.WithBaseURL(srv.URL+"/v1")), inference.WithModel("claude-test"))
	req := &inference.Request{
		SystemPrompt: "nutrition researcher",
		Messages:     []components.Message{*components.NewMessage(components.UserRole, schema.String("pizza"))},
	}
	resp := new(components.LLMResponse)
	if err := clt.Generate(context.Background(), req, resp); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Text != `{"found":false}` {
		t.Errorf("unexpected text %s", resp.Text)
	}
	if resp.Usage == nil || resp.Usage.InputTokens != 7 {
		t.Errorf("unexpected usage %+v", resp.Usage)
	}
	if got["system"] != "nutrition researcher" {
		t.Errorf("expect system prompt, got %v", got["system"])
	}
	if got["max_tokens"] != float64(DefaultMaxTokens) {
		t.Errorf("expect default max tokens, got %v", got["max_tokens"])
	}
}
