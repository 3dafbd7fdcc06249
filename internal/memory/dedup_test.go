package memory

import (
	"context"
	"testing"
)

func TestFindSimilar_ExactMatchCaseFold(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e, err := store.Add(ctx, Draft{Type: TypeFact, Content: "The sky is blue"})
	if err != nil {
		t.Fatal(err)
	}

	// Case and surrounding whitespace differ; still an exact match.
	match, err := store.FindSimilar(ctx, "the sky is blue  ", TypeFact, 0)
	if err != nil {
		t.Fatal(err)
	}
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.Entry.ID != e.ID {
		t.Errorf("expected entry %s, got %s", e.ID, match.Entry.ID)
	}
	if match.Score != 1.0 {
		t.Errorf("exact match must score 1.0, got %f", match.Score)
	}
}

func TestFindSimilar_ExactMatchSurvivesEmbeddingDrift(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Stored under a foreign embedding that the fallback encoder will never
	// reproduce; the exact-match fast path must still find it.
	drifted := make([]float64, 8)
	drifted[7] = 1
	e, err := store.Add(ctx, Draft{Type: TypeFact, Content: "Paris is in France", Embedding: drifted})
	if err != nil {
		t.Fatal(err)
	}

	match, err := store.FindSimilar(ctx, "PARIS IS IN FRANCE", TypeFact, 0)
	if err != nil {
		t.Fatal(err)
	}
	if match == nil || match.Entry.ID != e.ID || match.Score != 1.0 {
		t.Fatalf("expected exact match with score 1.0, got %+v", match)
	}
}

func TestFindSimilar_ThresholdRejects(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, Draft{Type: TypeFact, Content: "completely unrelated topic"}); err != nil {
		t.Fatal(err)
	}

	match, err := store.FindSimilar(ctx, "quantum chromodynamics", TypeFact, 0.75)
	if err != nil {
		t.Fatal(err)
	}
	if match != nil {
		t.Fatalf("expected no match below threshold, got score %f", match.Score)
	}
}

func TestFindSimilar_NearDuplicateAboveThreshold(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e, err := store.Add(ctx, Draft{Type: TypePreference, Content: "user prefers dark mode themes"})
	if err != nil {
		t.Fatal(err)
	}

	// Same tokens, different order: identical bag-of-words vector under the
	// fallback encoder, so similarity is 1.0 without being an exact match.
	match, err := store.FindSimilar(ctx, "dark mode themes user prefers", TypePreference, 0.75)
	if err != nil {
		t.Fatal(err)
	}
	if match == nil {
		t.Fatal("expected a near-duplicate match")
	}
	if match.Entry.ID != e.ID {
		t.Errorf("expected entry %s, got %s", e.ID, match.Entry.ID)
	}
	if match.Score < 0.75 {
		t.Errorf("expected score >= 0.75, got %f", match.Score)
	}
}

func TestFindSimilar_TypeFilterApplies(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, Draft{Type: TypeFact, Content: "the sky is blue"}); err != nil {
		t.Fatal(err)
	}

	// Same content, different type: not a duplicate of anything episodic.
	match, err := store.FindSimilar(ctx, "the sky is blue", TypeEpisodic, 0)
	if err != nil {
		t.Fatal(err)
	}
	if match != nil {
		t.Fatal("type filter should exclude the fact entry")
	}
}

func TestFindSimilar_EmptyStore(t *testing.T) {
	store := newTestStore(t)

	match, err := store.FindSimilar(context.Background(), "anything", TypeFact, 0)
	if err != nil {
		t.Fatal(err)
	}
	if match != nil {
		t.Fatal("empty store should yield no match")
	}
}
