package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bububa/meal-agents/meal"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "meals.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(id string, createdAt time.Time) *Record {
	egg := meal.FoodItem{Name: "Boiled Egg", Portion: "2 large eggs", VisualDescription: "Halved eggs"}
	egg.SetNutrition(meal.NutritionFacts{Calories: 156, Carbs: 1.1, Protein: 12.6, Fat: 10.6})
	toast := meal.FoodItem{Name: "Toast", Portion: "1 slice", VisualDescription: "Golden toast"}
	report := meal.Aggregate([]meal.FoodItem{egg, toast})
	return &Record{
		ID:           id,
		Report:       *report,
		Hint:         "breakfast",
		ImageKey:     "images/" + id + ".jpg",
		LookupErrors: 1,
		InputTokens:  300,
		OutputTokens: 60,
		CreatedAt:    createdAt.UTC().Truncate(time.Millisecond),
	}
}

func TestSaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	record := testRecord("run-1", time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC))
	if err := s.Save(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// internal item flags are not persisted
	expect := *record
	expect.Report.Items = meal.CloneItems(record.Report.Items)
	for idx := range expect.Report.Items {
		expect.Report.Items[idx].LookupFailed = false
	}
	if diff := cmp.Diff(&expect, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	if err := s.Save(ctx, record); err == nil {
		t.Error("expect duplicate id rejected")
	}
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expect ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, testRecord("run-1", time.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Delete(ctx, "run-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "run-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expect deleted record gone, got %v", err)
	}
	if err := s.Delete(ctx, "run-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expect ErrNotFound deleting twice, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := s.Save(ctx, testRecord(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	list, err := s.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ids := make([]string, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"c", "b"}, ids); diff != "" {
		t.Errorf("unexpected order (-want +got):\n%s", diff)
	}
	rest, err := s.List(ctx, 2, 2)
	if err != nil || len(rest) != 1 || rest[0].ID != "a" {
		t.Errorf("unexpected second page %v %v", rest, err)
	}
	n, err := s.Count(ctx)
	if err != nil || n != 3 {
		t.Errorf("expect 3 records, got %d %v", n, err)
	}
}

func TestNewRecord(t *testing.T) {
	if _, err := NewRecord(&meal.Run{}, ""); err == nil {
		t.Error("expect error for a run without report")
	}
	finished := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := &meal.Run{
		ID:           "run-9",
		Report:       meal.Aggregate(nil),
		LookupErrors: []*meal.ItemLookupError{{Index: 0, Item: "x", Err: meal.ErrNoResults}},
		FinishedAt:   finished,
	}
	run.Usage.InputTokens = 10
	r, err := NewRecord(run, "dinner")
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	if r.ID != "run-9" || r.Hint != "dinner" || r.LookupErrors != 1 || r.InputTokens != 10 || !r.CreatedAt.Equal(finished) {
		t.Errorf("unexpected record %+v", r)
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driver: DriverPostgres}
	if got := pg.rebind("SELECT * FROM meals WHERE id = ? LIMIT ? OFFSET ?"); got != "SELECT * FROM meals WHERE id = $1 LIMIT $2 OFFSET $3" {
		t.Errorf("unexpected query %s", got)
	}
	lite := &SQLStore{driver: DriverSQLite}
	if got := lite.rebind("id = ?"); got != "id = ?" {
		t.Errorf("sqlite queries must be kept, got %s", got)
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "root@/meals"); err == nil {
		t.Error("expect unsupported driver error")
	}
}
