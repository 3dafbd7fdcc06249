package memory

import (
	"math"
	"reflect"
	"testing"
)

func TestFallbackEncoder_Deterministic(t *testing.T) {
	enc := NewFallbackEncoder(512)

	a := enc.Encode("the user prefers dark mode")
	b := enc.Encode("the user prefers dark mode")

	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical text must yield bit-identical vectors")
	}
}

func TestFallbackEncoder_Dimension(t *testing.T) {
	enc := NewFallbackEncoder(128)
	vec := enc.Encode("hello world")
	if len(vec) != 128 {
		t.Fatalf("expected 128 dims, got %d", len(vec))
	}

	// Non-positive dimension falls back to the default.
	enc = NewFallbackEncoder(0)
	if len(enc.Encode("x y")) != DefaultDimension {
		t.Fatalf("expected default dimension %d", DefaultDimension)
	}
}

func TestFallbackEncoder_Normalized(t *testing.T) {
	enc := NewFallbackEncoder(512)
	vec := enc.Encode("one two three four five")

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if math.Abs(norm-1.0) > 1e-9 {
		t.Fatalf("expected unit vector, got norm %f", norm)
	}
}

func TestFallbackEncoder_NoTokens(t *testing.T) {
	enc := NewFallbackEncoder(64)
	vec := enc.Encode("!!! ???")

	// Still the configured length, never zero-length.
	if len(vec) != 64 {
		t.Fatalf("expected 64 dims, got %d", len(vec))
	}
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("expected zero vector, got %f at index %d", v, i)
		}
	}
}

func TestFallbackEncoder_DifferentTextDiffers(t *testing.T) {
	enc := NewFallbackEncoder(512)
	a := enc.Encode("cats are mammals")
	b := enc.Encode("entropy always increases")
	if reflect.DeepEqual(a, b) {
		t.Fatal("different text should not collide on the full vector")
	}
}

func TestTokenize_WordRuns(t *testing.T) {
	got := tokenize("The Sky is BLUE, v2!")
	want := []string{"the", "sky", "is", "blue", "v2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTokenize_SingleCharDropped(t *testing.T) {
	got := tokenize("a b cd")
	want := []string{"cd"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTokenize_IdeographicPerRune(t *testing.T) {
	got := tokenize("苹果手机")
	want := []string{"苹", "果", "手", "机"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTokenize_MixedScript(t *testing.T) {
	got := tokenize("我买了iPhone15")
	want := []string{"我", "买", "了", "iphone15"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
