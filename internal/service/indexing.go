package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/castlemilk/pocketai/internal/search"
	"github.com/castlemilk/pocketai/internal/store"
	"go.uber.org/zap"
)

func scanDocument(s *store.Scan) search.Document {
	return search.Document{
		Kind:      search.KindScan,
		RecordID:  s.ID,
		Title:     s.FoodName,
		Body:      s.Analysis,
		CreatedAt: s.CreatedAt,
	}
}

func sessionDocument(s *store.Session) search.Document {
	var body strings.Builder
	for _, p := range s.Participants {
		fmt.Fprintf(&body, "%s: %s\n", p.Name, p.Perspective)
	}
	if s.AIResolution != nil {
		body.WriteString(*s.AIResolution)
	}
	return search.Document{
		Kind:      search.KindSession,
		RecordID:  s.ID,
		Title:     label(s.RelationshipContext) + " - " + label(s.ArgumentCategory),
		Body:      body.String(),
		CreatedAt: s.CreatedAt,
	}
}

// indexDocument never fails the caller; search is a convenience view over the store.
func indexDocument(ctx context.Context, idx search.Index, logger *zap.Logger, doc search.Document) {
	if idx == nil {
		return
	}
	if err := idx.Index(ctx, doc); err != nil {
		logger.Warn("failed to index document",
			zap.String("object_id", doc.ObjectID()),
			zap.Error(err))
	}
}
