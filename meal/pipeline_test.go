package meal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bububa/meal-agents/components/inference"
	"github.com/bububa/meal-agents/logging"
)

func newTestPipeline(t *testing.T, clt *fakeInference, searcher *fakeSearcher, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	p, err := New(Config{Client: clt, Searcher: searcher, Model: "test-model"}, opts...)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func TestAnalyzePizza(t *testing.T) {
	clt := &fakeInference{
		identify:  pizzaIdentification,
		nutrition: map[string]string{"Pepperoni Pizza Slice": pizzaNutrition},
	}
	var transitions []Transition
	p := newTestPipeline(t, clt, new(fakeSearcher), WithStateHook(func(_ context.Context, _ *Run, tr Transition) {
		transitions = append(transitions, tr)
	}))
	run, err := p.Analyze(context.Background(), Request{Image: testImage(), Hint: "lunch"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if run.State != Complete || run.Report == nil || run.Err != nil {
		t.Fatalf("expect complete run with report, got %+v", run)
	}
	report := run.Report
	expect := []FoodItem{{
		Name:              "Pepperoni Pizza Slice",
		Portion:           "1 slice (~120g)",
		VisualDescription: "Thin crust slice with pepperoni",
		Calories:          floatPtr(298),
		Carbs:             floatPtr(34),
		Protein:           floatPtr(12),
		Fat:               floatPtr(13),
	}}
	if diff := cmp.Diff(expect, report.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	if report.Calories != 298 || report.Carbs != 34 || report.Protein != 12 || report.Fat != 13 {
		t.Errorf("totals must equal the single item, got %+v", report)
	}
	if report.Confidence != 100 {
		t.Errorf("expect confidence 100, got %d", report.Confidence)
	}
	if report.FoodName != "Pepperoni Pizza Slice" {
		t.Errorf("unexpected food name %s", report.FoodName)
	}
	wantStates := []State{Identifying, Researching, Aggregating, Complete}
	if len(transitions) != len(wantStates) {
		t.Fatalf("expect %d transitions, got %+v", len(wantStates), transitions)
	}
	from := Pending
	for idx, tr := range transitions {
		if tr.From != from || tr.To != wantStates[idx] {
			t.Errorf("transition %d: expect %s -> %s, got %s -> %s", idx, from, wantStates[idx], tr.From, tr.To)
		}
		from = tr.To
	}
	if diff := cmp.Diff(transitions, run.History); diff != "" {
		t.Errorf("history mismatch (-hook +run):\n%s", diff)
	}
	if run.Usage.InputTokens != 200 || run.Usage.OutputTokens != 40 {
		t.Errorf("expect usage of two calls, got %+v", run.Usage)
	}
}

func TestAnalyzePartialLookup(t *testing.T) {
	clt := &fakeInference{identify: threeItemIdentification, nutrition: threeItemNutrition()}
	p := newTestPipeline(t, clt, new(fakeSearcher))
	run, err := p.Analyze(context.Background(), Request{Image: testImage()})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	report := run.Report
	if len(report.Items) != 3 {
		t.Fatalf("expect 3 items, got %d", len(report.Items))
	}
	names := []string{report.Items[0].Name, report.Items[1].Name, report.Items[2].Name}
	if diff := cmp.Diff([]string{"Grilled Chicken Breast", "White Rice", "Mystery Sauce"}, names); diff != "" {
		t.Errorf("item order changed (-want +got):\n%s", diff)
	}
	sauce := report.Items[2]
	if sauce.Calories != nil || sauce.Carbs != nil || sauce.Protein != nil || sauce.Fat != nil {
		t.Errorf("unresolved item must keep nutrition unset, got %+v", sauce)
	}
	if !sauce.LookupFailed {
		t.Error("expect unresolved item flagged")
	}
	if report.Calories != 453 || math.Abs(report.Protein-50.3) > 1e-9 || math.Abs(report.Fat-5.8) > 1e-9 || report.Carbs != 45 {
		t.Errorf("totals must sum the two resolved items, got %+v", report)
	}
	if report.Confidence != 67 {
		t.Errorf("expect confidence 67 for 2/3 complete, got %d", report.Confidence)
	}
	if len(run.LookupErrors) != 1 {
		t.Fatalf("expect one lookup error, got %v", run.LookupErrors)
	}
	lookupErr := run.LookupErrors[0]
	if lookupErr.Index != 2 || lookupErr.Item != "Mystery Sauce" || !errors.Is(lookupErr, ErrNutritionNotFound) {
		t.Errorf("unexpected lookup error %v", lookupErr)
	}
}

func TestAnalyzeIdentificationUnparsable(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "prose", text: "This looks like a delicious pizza!"},
		{name: "missing items", text: `{"food": "pizza"}`},
		{name: "empty name", text: `{"items": [{"name": " ", "portion": "1 slice"}]}`},
		{name: "vague portion", text: `{"items": [{"name": "Rice", "portion": "some"}]}`},
		{name: "missing portion", text: `{"items": [{"name": "Rice"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clt := &fakeInference{identify: tt.text}
			searcher := new(fakeSearcher)
			p := newTestPipeline(t, clt, searcher)
			run, err := p.Analyze(context.Background(), Request{Image: testImage()})
			var outputErr *StageOutputError
			if !errors.As(err, &outputErr) {
				t.Fatalf("expect StageOutputError, got %v", err)
			}
			if outputErr.Stage != Identifying || outputErr.Raw != tt.text {
				t.Errorf("unexpected error %+v", outputErr)
			}
			if stage, ok := StageOf(err); !ok || stage != Identifying {
				t.Errorf("expect identifying stage, got %s", stage)
			}
			if run.State != Failed || run.Report != nil || run.Err != err {
				t.Errorf("expect failed run without report, got %+v", run)
			}
			if n := len(searcher.Queries()); n != 0 {
				t.Errorf("research must not run after a failed identification, got %d queries", n)
			}
		})
	}
}

func TestAnalyzeIdentificationTrailingNote(t *testing.T) {
	clt := &fakeInference{
		identify:  pizzaIdentification + "\nConfidence notes: {\"note\": \"crust partly hidden\"}",
		nutrition: map[string]string{"Pepperoni Pizza Slice": pizzaNutrition},
	}
	p := newTestPipeline(t, clt, new(fakeSearcher))
	run, err := p.Analyze(context.Background(), Request{Image: testImage()})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(run.Report.Items) != 1 || run.Report.Items[0].Name != "Pepperoni Pizza Slice" {
		t.Errorf("unexpected items %+v", run.Report.Items)
	}
}

func TestAnalyzeEmptyMeal(t *testing.T) {
	p := newTestPipeline(t, &fakeInference{identify: `{"items": []}`}, new(fakeSearcher))
	run, err := p.Analyze(context.Background(), Request{Image: testImage()})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if run.Report.Confidence != 0 || run.Report.FoodName != UnidentifiedMeal || run.Report.Items == nil {
		t.Errorf("unexpected report %+v", run.Report)
	}
}

func TestAnalyzeSearchUnavailable(t *testing.T) {
	clt := &fakeInference{identify: threeItemIdentification, nutrition: threeItemNutrition()}
	searcher := &fakeSearcher{fail: map[string]error{"": errSearchDown}}
	p := newTestPipeline(t, clt, searcher)
	run, err := p.Analyze(context.Background(), Request{Image: testImage()})
	var upstreamErr *UpstreamUnavailableError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expect UpstreamUnavailableError, got %v", err)
	}
	if upstreamErr.Stage != Researching || upstreamErr.Collaborator != CollaboratorSearch {
		t.Errorf("unexpected error %+v", upstreamErr)
	}
	if !errors.Is(err, errSearchDown) {
		t.Error("expect the search error in the chain")
	}
	if run.State != Failed || run.Report != nil {
		t.Errorf("expect failed run, got %+v", run)
	}
	if clt.researchCalls != 0 {
		t.Errorf("no research inference expected without search results, got %d", clt.researchCalls)
	}
}

func TestAnalyzeSearchFailsForOneItem(t *testing.T) {
	clt := &fakeInference{identify: threeItemIdentification, nutrition: threeItemNutrition()}
	searcher := &fakeSearcher{fail: map[string]error{"White Rice": errSearchDown}}
	p := newTestPipeline(t, clt, searcher)
	run, err := p.Analyze(context.Background(), Request{Image: testImage()})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if run.Report.Confidence != 33 {
		t.Errorf("expect confidence 33 for 1/3 complete, got %d", run.Report.Confidence)
	}
	if len(run.LookupErrors) != 2 {
		t.Fatalf("expect two lookup errors, got %v", run.LookupErrors)
	}
	if !errors.Is(run.LookupErrors[0], ErrSearchFailed) || run.LookupErrors[0].Index != 1 {
		t.Errorf("unexpected first lookup error %v", run.LookupErrors[0])
	}
}

func TestAnalyzeInferenceUnavailable(t *testing.T) {
	clt := &fakeInference{identifyErr: inference.Unavailable(context.Background(), "fake", errors.New("503 overloaded"))}
	p := newTestPipeline(t, clt, new(fakeSearcher))
	run, err := p.Analyze(context.Background(), Request{Image: testImage()})
	var upstreamErr *UpstreamUnavailableError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expect UpstreamUnavailableError, got %v", err)
	}
	if upstreamErr.Stage != Identifying || upstreamErr.Collaborator != CollaboratorInference {
		t.Errorf("unexpected error %+v", upstreamErr)
	}
	if !inference.IsUnavailable(err) {
		t.Error("expect the provider error in the chain")
	}
	if run.State != Failed {
		t.Errorf("expect failed run, got %s", run.State)
	}
}

func TestAnalyzeResearchInferenceUnavailable(t *testing.T) {
	clt := &fakeInference{identify: pizzaIdentification, researchErr: inference.Unavailable(context.Background(), "fake", errors.New("timeout"))}
	p := newTestPipeline(t, clt, new(fakeSearcher))
	_, err := p.Analyze(context.Background(), Request{Image: testImage()})
	var upstreamErr *UpstreamUnavailableError
	if !errors.As(err, &upstreamErr) || upstreamErr.Stage != Researching || upstreamErr.Collaborator != CollaboratorInference {
		t.Fatalf("expect research inference outage, got %v", err)
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		clt := &fakeInference{identify: pizzaIdentification}
		p := newTestPipeline(t, clt, new(fakeSearcher))
		run, err := p.Analyze(ctx, Request{Image: testImage()})
		var cancelErr *CancelledError
		if !errors.As(err, &cancelErr) || !errors.Is(err, context.Canceled) {
			t.Fatalf("expect CancelledError wrapping context.Canceled, got %v", err)
		}
		if run.State != Failed || run.Report != nil {
			t.Errorf("expect failed run, got %+v", run)
		}
		if clt.identifyCalls != 0 {
			t.Error("no stage may run on a cancelled context")
		}
	})
	t.Run("during research", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		clt := &fakeInference{identify: threeItemIdentification, nutrition: threeItemNutrition()}
		searcher := &fakeSearcher{onQuery: func(string) { cancel() }}
		p := newTestPipeline(t, clt, searcher)
		run, err := p.Analyze(ctx, Request{Image: testImage()})
		var cancelErr *CancelledError
		if !errors.As(err, &cancelErr) || cancelErr.Stage != Researching {
			t.Fatalf("expect research cancellation, got %v", err)
		}
		if !errors.Is(err, context.Canceled) {
			t.Error("expect context.Canceled in the chain")
		}
		if run.Report != nil {
			t.Error("no partial report on cancellation")
		}
		if n := len(searcher.Queries()); n != 1 {
			t.Errorf("expect research to stop after the first query, got %d", n)
		}
	})
}

func TestAnalyzeInvalidImage(t *testing.T) {
	p := newTestPipeline(t, &fakeInference{}, new(fakeSearcher))
	for _, img := range []MealImage{{}, {Data: []byte("plain text, not a picture")}} {
		run, err := p.Analyze(context.Background(), Request{Image: img})
		if !errors.Is(err, ErrInvalidImage) || run != nil {
			t.Errorf("expect ErrInvalidImage and no run, got %v %v", run, err)
		}
	}
}

func TestAnalyzeConcurrent(t *testing.T) {
	clt := &fakeInference{identify: threeItemIdentification, nutrition: threeItemNutrition()}
	p := newTestPipeline(t, clt, new(fakeSearcher))
	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			run, err := p.Analyze(context.Background(), Request{Image: testImage(), Hint: fmt.Sprintf("request %d", i)})
			if err != nil {
				t.Errorf("analyze %d: %v", i, err)
				return
			}
			if run.Report.Confidence != 67 || len(run.Report.Items) != 3 {
				t.Errorf("analyze %d: unexpected report %+v", i, run.Report)
			}
			mu.Lock()
			seen[run.ID] = struct{}{}
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	if len(seen) != n {
		t.Errorf("expect %d distinct runs, got %d", n, len(seen))
	}
	stats := p.Stats().Snapshot()
	if stats.Started != n || stats.Completed != n || stats.Failed != 0 || stats.Running != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.LookupErrors != n {
		t.Errorf("expect one lookup error per run, got %d", stats.LookupErrors)
	}
}

func TestNewWithoutClient(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNoInference) {
		t.Errorf("expect ErrNoInference, got %v", err)
	}
}

func TestRunTimestamps(t *testing.T) {
	start := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return start.Add(time.Duration(tick) * time.Second)
	}
	clt := &fakeInference{identify: pizzaIdentification, nutrition: map[string]string{"Pepperoni Pizza Slice": pizzaNutrition}}
	p := newTestPipeline(t, clt, new(fakeSearcher), WithClock(clock))
	run, err := p.Analyze(context.Background(), Request{Image: testImage()})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got := run.Duration(); got != 4*time.Second {
		t.Errorf("expect 4s between start and completion, got %s", got)
	}
}
