package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"mcp-nutrisnap/internal/models"
)

func newTestStorage(t *testing.T, maxEntries int) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(maxEntries)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndGetAnalysis(t *testing.T) {
	s := newTestStorage(t, 10)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 12, 0, 0, 123000000, time.UTC)
	want := &models.Analysis{
		ID:         "a1",
		Flow:       "identifyIngredients",
		Input:      []byte(`{"photoUrl":"https://example.com/a.jpg"}`),
		Output:     []byte(`{"ingredients":[]}`),
		DurationMS: 42,
		CreatedAt:  created,
	}
	if err := s.SaveAnalysis(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetAnalysis(ctx, "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Flow != want.Flow || string(got.Input) != string(want.Input) || string(got.Output) != string(want.Output) {
		t.Fatalf("unexpected analysis %#v", got)
	}
	if got.DurationMS != 42 || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected timing %d %v", got.DurationMS, got.CreatedAt)
	}
	if !got.Succeeded() {
		t.Fatalf("expected success")
	}
}

func TestSaveFailedAnalysis(t *testing.T) {
	s := newTestStorage(t, 10)
	ctx := context.Background()

	if err := s.SaveAnalysis(ctx, &models.Analysis{
		ID:           "bad",
		Flow:         "estimateNutritionalValue",
		Input:        []byte(`{"ingredients":[]}`),
		ErrorKind:    "invalid_input",
		ErrorMessage: "ingredients must not be empty",
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetAnalysis(ctx, "bad")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Output != nil || got.Succeeded() || got.ErrorKind != "invalid_input" {
		t.Fatalf("unexpected analysis %#v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be filled in")
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	s := newTestStorage(t, 10)
	if _, err := s.GetAnalysis(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAnalyses(t *testing.T) {
	s := newTestStorage(t, 0)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	flows := []string{"identifyIngredients", "estimateNutritionalValue", "identifyIngredients"}
	for i, flow := range flows {
		if err := s.SaveAnalysis(ctx, &models.Analysis{
			ID:        fmt.Sprintf("a%d", i),
			Flow:      flow,
			Input:     []byte(`{}`),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	all, err := s.ListAnalyses(ctx, "", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "a2" || all[2].ID != "a0" {
		t.Fatalf("expected newest first, got %v", ids(all))
	}

	identify, err := s.ListAnalyses(ctx, "identifyIngredients", 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(identify) != 1 || identify[0].ID != "a2" {
		t.Fatalf("unexpected filtered list %v", ids(identify))
	}

	none, err := s.ListAnalyses(ctx, "unknown", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", none)
	}
}

func TestSaveAnalysisTrimsOldest(t *testing.T) {
	s := newTestStorage(t, 2)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		if err := s.SaveAnalysis(ctx, &models.Analysis{
			ID:        fmt.Sprintf("a%d", i),
			Flow:      "identifyIngredients",
			Input:     []byte(`{}`),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	all, err := s.ListAnalyses(ctx, "", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != "a3" || all[1].ID != "a2" {
		t.Fatalf("unexpected journal after trim %v", ids(all))
	}
	if _, err := s.GetAnalysis(ctx, "a0"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected oldest entry to be trimmed, got %v", err)
	}
}

func TestSaveAnalysisRequiresID(t *testing.T) {
	s := newTestStorage(t, 2)
	if err := s.SaveAnalysis(context.Background(), &models.Analysis{Flow: "identifyIngredients"}); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestJournalsAreIndependent(t *testing.T) {
	first := newTestStorage(t, 10)
	second := newTestStorage(t, 10)
	ctx := context.Background()

	if err := first.SaveAnalysis(ctx, &models.Analysis{ID: "only-first", Flow: "identifyIngredients", Input: []byte(`{}`)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := second.GetAnalysis(ctx, "only-first"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected journals to be separate, got %v", err)
	}
}

func ids(list []*models.Analysis) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}
