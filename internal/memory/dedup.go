package memory

import (
	"context"
	"strings"

	"github.com/engram-oss/engram/internal/event"
)

// DefaultDedupThreshold is the minimum semantic score treated as a duplicate.
const DefaultDedupThreshold = 0.75

// dedupCandidates caps how many top matches the detector inspects.
const dedupCandidates = 5

// FindSimilar decides whether content is redundant with an existing entry of
// the same type. It runs a purely semantic search (recency and importance
// weights zeroed) over the top candidates. An exact content match after
// case-folding and trimming short-circuits with score 1.0, guaranteeing
// dedup even when embeddings have drifted. Otherwise the top candidate is
// returned only when its score meets the threshold (<= 0 selects the
// default). Returns nil when nothing qualifies; what to do with a match —
// skip the insert, merge — is the caller's policy.
func (s *Store) FindSimilar(ctx context.Context, content string, typ Type, threshold float64) (*Match, error) {
	if threshold <= 0 {
		threshold = DefaultDedupThreshold
	}

	matches, err := s.Search(ctx, SearchQuery{
		Query:          content,
		Type:           typ,
		Limit:          dedupCandidates,
		SemanticWeight: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	needle := foldContent(content)
	for _, m := range matches {
		if foldContent(m.Entry.Content) == needle {
			hit := m
			hit.Score = 1.0
			s.recordDedupHit(hit.Entry.ID)
			return &hit, nil
		}
	}

	if matches[0].Score >= threshold {
		hit := matches[0]
		s.recordDedupHit(hit.Entry.ID)
		return &hit, nil
	}
	return nil, nil
}

func (s *Store) recordDedupHit(id string) {
	if s.metrics != nil {
		s.metrics.IncDedupHits()
	}
	s.emit(event.MemoryDuplicate, id, "")
}

func foldContent(content string) string {
	return strings.ToLower(strings.TrimSpace(content))
}
