package service

import (
	"context"
	"strings"

	"github.com/castlemilk/pocketai/internal/search"
)

// SearchService answers history queries across scans and sessions.
type SearchService struct {
	index search.Index
}

func NewSearchService(index search.Index) *SearchService {
	return &SearchService{index: index}
}

// Search runs query against the history index. kind is "", "scan" or "session".
func (s *SearchService) Search(ctx context.Context, query, kind string, limit int) ([]search.Hit, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch kind {
	case "", search.KindScan, search.KindSession:
	default:
		return nil, invalid("kind", "must be %q or %q", search.KindScan, search.KindSession)
	}
	if s.index == nil {
		return []search.Hit{}, nil
	}
	hits, err := s.index.Search(ctx, search.Params{Query: strings.TrimSpace(query), Kind: kind, Limit: limit})
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	return hits, nil
}
