package memory

import (
	"context"
	"math"
	"sort"
	"time"
)

// Default scoring weights, applied when the caller leaves all three zero.
const (
	DefaultSemanticWeight   = 0.5
	DefaultRecencyWeight    = 0.2
	DefaultImportanceWeight = 0.3
)

// DefaultLimit is the result cap when SearchQuery.Limit is unset.
const DefaultLimit = 20

// recencyHalfLife is the decay constant for the recency signal, measured
// from last access so frequently retrieved memories stay fresh.
const recencyHalfLife = 7 * 24 * time.Hour

// minCandidates is the floor on the candidate set scored per search.
const minCandidates = 60

// SearchQuery describes a hybrid search. A zero value for all three weights
// selects the defaults (0.5 / 0.2 / 0.3); any nonzero weight means the
// caller chose all three explicitly. Weights need not sum to 1.
type SearchQuery struct {
	Query            string
	Type             Type // empty = all types
	MinImportance    float64
	Limit            int
	SemanticWeight   float64
	RecencyWeight    float64
	ImportanceWeight float64
}

func (q SearchQuery) withDefaults() SearchQuery {
	if q.SemanticWeight == 0 && q.RecencyWeight == 0 && q.ImportanceWeight == 0 {
		q.SemanticWeight = DefaultSemanticWeight
		q.RecencyWeight = DefaultRecencyWeight
		q.ImportanceWeight = DefaultImportanceWeight
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	return q
}

// Match pairs an entry with its hybrid score.
type Match struct {
	Entry Entry
	Score float64
}

// Search ranks stored entries against the query using a weighted sum of
// semantic similarity, recency of access, and stored importance. Retrieval
// never hard-fails for lack of semantic capability: without usable vectors
// the semantic signal degrades to token overlap.
func (s *Store) Search(ctx context.Context, q SearchQuery) ([]Match, error) {
	start := time.Now()
	q = q.withDefaults()

	// Hard filters only at the storage layer. A substring filter on the
	// query text would throw away candidates whose wording differs.
	candidateLimit := q.Limit * 3
	if candidateLimit < minCandidates {
		candidateLimit = minCandidates
	}
	candidates, err := s.Candidates(ctx, q.Type, q.MinImportance, candidateLimit)
	if err != nil {
		return nil, err
	}

	var queryVec []float64
	if q.SemanticWeight > 0 && q.Query != "" {
		queryVec = s.embedder.Generate(ctx, q.Query)
	}
	queryTokens := tokenSet(q.Query)

	now := s.now()
	matches := make([]Match, 0, len(candidates))
	for _, e := range candidates {
		semantic := semanticScore(queryVec, q.Query, queryTokens, e)
		recency := recencyScore(now, e.AccessedAt)
		score := q.SemanticWeight*semantic + q.RecencyWeight*recency + q.ImportanceWeight*e.Importance
		matches = append(matches, Match{Entry: e, Score: score})
	}

	// Stable keeps candidate order for ties, so results are reproducible.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}

	if s.metrics != nil {
		s.metrics.IncSearches()
		s.metrics.RecordSearchDuration(time.Since(start))
	}

	return matches, nil
}

// semanticScore compares the query to an entry. Cosine when both vectors are
// available, token overlap otherwise.
func semanticScore(queryVec []float64, query string, queryTokens map[string]struct{}, e Entry) float64 {
	if len(queryVec) > 0 && len(e.Embedding) > 0 {
		return cosineScore(queryVec, e.Embedding)
	}
	if query == "" {
		return 0
	}
	return tokenOverlap(queryTokens, e.Content)
}

// cosineScore is cosine similarity clamped to [0,1]. Vectors of different
// lengths are compared with the shorter zero-padded: the embedding strategy
// may have changed over the store's lifetime, and a dimension mismatch must
// never be an error. Padding only prevents failure, it does not make vectors
// from different strategies truly comparable.
func cosineScore(a, b []float64) float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		var av, bv float64
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	return sim
}

// tokenOverlap is the recall-oriented lexical score
// |query tokens found in content| / |query tokens|.
func tokenOverlap(queryTokens map[string]struct{}, content string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	contentTokens := tokenSet(content)
	hits := 0
	for tok := range queryTokens {
		if _, ok := contentTokens[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}

// recencyScore decays exponentially with time since last access, with a
// seven-day constant.
func recencyScore(now, accessedAt time.Time) float64 {
	age := now.Sub(accessedAt)
	if age < 0 {
		age = 0
	}
	return math.Exp(-float64(age) / float64(recencyHalfLife))
}
