// Package search indexes scans and mediation sessions for history lookup.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kinds of indexed records.
const (
	KindScan    = "scan"
	KindSession = "session"
)

const (
	defaultLimit = 20
	maxLimit     = 100
	snippetLen   = 160
)

// Document is one searchable record.
type Document struct {
	Kind      string
	RecordID  int
	Title     string
	Body      string
	CreatedAt time.Time
}

// ObjectID is the stable index key for the document.
func (d Document) ObjectID() string {
	return fmt.Sprintf("%s-%d", d.Kind, d.RecordID)
}

// Hit is a single search result.
type Hit struct {
	Kind      string    `json:"kind"`
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet"`
	CreatedAt time.Time `json:"createdAt"`
}

// Params defines the input for a search.
type Params struct {
	Query string
	// Kind restricts results to one record kind when set.
	Kind  string
	Limit int
}

// Index stores documents and answers queries over them.
type Index interface {
	Index(ctx context.Context, doc Document) error
	Search(ctx context.Context, params Params) ([]Hit, error)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// snippet shortens body to a single display line.
func snippet(body string) string {
	s := strings.Join(strings.Fields(body), " ")
	runes := []rune(s)
	if len(runes) <= snippetLen {
		return s
	}
	return string(runes[:snippetLen]) + "…"
}
