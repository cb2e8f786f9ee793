package meal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/bububa/meal-agents/components/inference"
	"github.com/bububa/meal-agents/components/inference/providers/openai"
	"github.com/bububa/meal-agents/logging"
)

func TestAnalyzeInferenceClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	cfg := goopenai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	cfg.HTTPClient = &http.Client{Timeout: 50 * time.Millisecond}
	clt := openai.New(goopenai.NewClientWithConfig(cfg), inference.WithModel("gpt-4o-mini"))

	p, err := New(Config{Client: clt, Searcher: new(fakeSearcher)}, WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	run, err := p.Analyze(context.Background(), Request{Image: testImage()})
	var cancelErr *CancelledError
	if errors.As(err, &cancelErr) {
		t.Fatalf("a collaborator timeout is not a cancellation: %v", err)
	}
	var upstreamErr *UpstreamUnavailableError
	if !errors.As(err, &upstreamErr) || upstreamErr.Stage != Identifying || upstreamErr.Collaborator != CollaboratorInference {
		t.Fatalf("expect identification inference outage, got %T %v", err, err)
	}
	if !inference.IsUnavailable(err) {
		t.Error("expect the provider error in the chain")
	}
	if run.State != Failed || run.Report != nil {
		t.Errorf("expect failed run without report, got %+v", run)
	}
}
