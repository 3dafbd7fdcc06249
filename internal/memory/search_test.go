package memory

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"
)

func TestSearch_ImportanceMonotonic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	shared := []float64{1, 0, 0}
	low, err := store.Add(ctx, Draft{Type: TypeFact, Content: "same words", Importance: 0.2, Embedding: shared})
	if err != nil {
		t.Fatal(err)
	}
	high, err := store.Add(ctx, Draft{Type: TypeFact, Content: "same words", Importance: 0.9, Embedding: shared})
	if err != nil {
		t.Fatal(err)
	}

	matches, err := store.Search(ctx, SearchQuery{ImportanceWeight: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Entry.ID != high.ID {
		t.Error("higher importance should rank first")
	}
	if matches[1].Entry.ID != low.ID {
		t.Error("lower importance should rank second")
	}
}

func TestSearch_LimitRespected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		_, err := store.Add(ctx, Draft{Type: TypeFact, Content: fmt.Sprintf("fact number %d", i), Importance: 0.5})
		if err != nil {
			t.Fatal(err)
		}
	}

	matches, err := store.Search(ctx, SearchQuery{Query: "fact", Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 5 {
		t.Fatalf("expected exactly 5 results, got %d", len(matches))
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Fatal("results must be sorted by descending score")
		}
	}
}

func TestSearch_TypeFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, Draft{Type: TypeFact, Content: "a fact"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Add(ctx, Draft{Type: TypePreference, Content: "a preference"}); err != nil {
		t.Fatal(err)
	}

	matches, err := store.Search(ctx, SearchQuery{Type: TypePreference})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Entry.Type != TypePreference {
		t.Fatalf("expected only the preference entry, got %d matches", len(matches))
	}
}

func TestSearch_MinImportanceFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, Draft{Type: TypeFact, Content: "minor", Importance: 0.1}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Add(ctx, Draft{Type: TypeFact, Content: "major", Importance: 0.9}); err != nil {
		t.Fatal(err)
	}

	matches, err := store.Search(ctx, SearchQuery{MinImportance: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Entry.Content != "major" {
		t.Fatalf("min-importance filter failed: %d matches", len(matches))
	}
}

func TestSearch_DimensionMismatchTolerated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Stored vector of length 512, query embedder producing length 256.
	long := make([]float64, 512)
	long[0] = 1
	if _, err := store.Add(ctx, Draft{Type: TypeFact, Content: "wide vector", Embedding: long}); err != nil {
		t.Fatal(err)
	}

	store.embedder.SetEmbedFn(func(ctx context.Context, texts []string) ([][]float64, error) {
		short := make([]float64, 256)
		short[0] = 1
		return [][]float64{short}, nil
	})

	matches, err := store.Search(ctx, SearchQuery{Query: "wide", SemanticWeight: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if math.IsNaN(matches[0].Score) || math.IsInf(matches[0].Score, 0) {
		t.Fatalf("expected a finite score, got %f", matches[0].Score)
	}
	if matches[0].Score != 1.0 {
		t.Errorf("identical direction after zero-padding should score 1.0, got %f", matches[0].Score)
	}
}

func TestSearch_TokenOverlapFallback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e, err := store.Add(ctx, Draft{Type: TypeFact, Content: "我买了一个苹果手机"})
	if err != nil {
		t.Fatal(err)
	}
	// Strip the stored vector so the semantic path degrades to token overlap.
	if _, err := store.Update(ctx, e.ID, Patch{ClearEmbedding: true}); err != nil {
		t.Fatal(err)
	}

	matches, err := store.Search(ctx, SearchQuery{Query: "苹果手机", SemanticWeight: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	// Every query character appears in the content: recall-oriented score 1.0.
	if matches[0].Score != 1.0 {
		t.Fatalf("expected overlap score 1.0, got %f", matches[0].Score)
	}
}

func TestSearch_RecencyDecay(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stale, err := store.Add(ctx, Draft{Type: TypeFact, Content: "stale"})
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := store.Add(ctx, Draft{Type: TypeFact, Content: "fresh"})
	if err != nil {
		t.Fatal(err)
	}

	// Age the first entry by two weeks of no access.
	if _, err := store.db.Exec("UPDATE memories SET accessed_at = ? WHERE id = ?",
		time.Now().Add(-14*24*time.Hour), stale.ID); err != nil {
		t.Fatal(err)
	}

	matches, err := store.Search(ctx, SearchQuery{RecencyWeight: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Entry.ID != fresh.ID {
		t.Error("recently accessed entry should rank first under recency weighting")
	}
	// Two weeks at a seven-day constant: score near e^-2.
	got := matches[1].Score
	if math.Abs(got-math.Exp(-2)) > 0.01 {
		t.Errorf("expected decay near %f, got %f", math.Exp(-2), got)
	}
}

func TestSearch_DefaultWeightsWhenAllZero(t *testing.T) {
	q := SearchQuery{}.withDefaults()
	if q.SemanticWeight != DefaultSemanticWeight || q.RecencyWeight != DefaultRecencyWeight || q.ImportanceWeight != DefaultImportanceWeight {
		t.Fatalf("expected default weights, got %f/%f/%f", q.SemanticWeight, q.RecencyWeight, q.ImportanceWeight)
	}
	if q.Limit != DefaultLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultLimit, q.Limit)
	}

	// Any explicit nonzero weight disables defaulting.
	q = SearchQuery{SemanticWeight: 1}.withDefaults()
	if q.RecencyWeight != 0 || q.ImportanceWeight != 0 {
		t.Fatal("explicit weights must not be overridden")
	}
}

func TestCosineScore_ClampsNegative(t *testing.T) {
	if got := cosineScore([]float64{1, 0}, []float64{-1, 0}); got != 0 {
		t.Fatalf("opposite vectors should clamp to 0, got %f", got)
	}
}

func TestCosineScore_ZeroVector(t *testing.T) {
	if got := cosineScore([]float64{0, 0}, []float64{1, 0}); got != 0 {
		t.Fatalf("zero vector should score 0, got %f", got)
	}
}
