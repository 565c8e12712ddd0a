package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/algolia/algoliasearch-client-go/v4/algolia/search"
	"go.uber.org/zap"
)

// Config holds Algolia configuration.
type Config struct {
	AppID     string
	APIKey    string // Write-enabled key; the server both indexes and searches
	IndexName string
}

// AlgoliaIndex wraps the Algolia search API client.
type AlgoliaIndex struct {
	client    *search.APIClient
	indexName string
	logger    *zap.Logger
}

// NewAlgoliaIndex creates a new Algolia-backed index.
func NewAlgoliaIndex(cfg Config, logger *zap.Logger) (*AlgoliaIndex, error) {
	if cfg.AppID == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("algolia AppID and APIKey are required")
	}
	if cfg.IndexName == "" {
		cfg.IndexName = "pocketai"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := search.NewClient(cfg.AppID, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("creating algolia client: %w", err)
	}

	return &AlgoliaIndex{
		client:    client,
		indexName: cfg.IndexName,
		logger:    logger.Named("algolia"),
	}, nil
}

// Index saves doc as an Algolia record.
func (c *AlgoliaIndex) Index(ctx context.Context, doc Document) error {
	_, err := c.client.SaveObject(c.client.NewApiSaveObjectRequest(c.indexName, documentToRecord(doc)))
	if err != nil {
		return fmt.Errorf("algolia save %s: %w", doc.ObjectID(), err)
	}
	return nil
}

// Search performs a full-text search via Algolia.
func (c *AlgoliaIndex) Search(ctx context.Context, params Params) ([]Hit, error) {
	hitsPerPage := int32(clampLimit(params.Limit))
	searchParams := search.SearchParamsObjectAsSearchParams(
		search.NewSearchParamsObject().
			SetQuery(params.Query).
			SetHitsPerPage(hitsPerPage).
			SetFilters(buildFilters(params)),
	)

	resp, err := c.client.SearchSingleIndex(c.client.NewApiSearchSingleIndexRequest(c.indexName).WithSearchParams(searchParams))
	if err != nil {
		return nil, fmt.Errorf("algolia search: %w", err)
	}

	hits := make([]Hit, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		hit, ok := recordToHit(h.AdditionalProperties)
		if !ok {
			c.logger.Warn("skipping malformed hit", zap.String("objectID", h.ObjectID))
			continue
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// buildFilters constructs the Algolia filter string from search params.
func buildFilters(params Params) string {
	var parts []string
	if params.Kind != "" {
		parts = append(parts, fmt.Sprintf("Kind:%q", params.Kind))
	}
	return strings.Join(parts, " AND ")
}

func documentToRecord(doc Document) map[string]any {
	return map[string]any{
		"objectID":      doc.ObjectID(),
		"Kind":          doc.Kind,
		"RecordID":      doc.RecordID,
		"Title":         doc.Title,
		"Body":          doc.Body,
		"CreatedAtUnix": doc.CreatedAt.Unix(),
	}
}

// recordToHit converts Algolia hit properties back into a Hit.
func recordToHit(props map[string]any) (Hit, bool) {
	var hit Hit

	kind, _ := props["Kind"].(string)
	id, ok := props["RecordID"].(float64)
	if kind == "" || !ok {
		return Hit{}, false
	}
	hit.Kind = kind
	hit.ID = int(id)

	if v, ok := props["Title"].(string); ok {
		hit.Title = v
	}
	if v, ok := props["Body"].(string); ok {
		hit.Snippet = snippet(v)
	}
	if v, ok := props["CreatedAtUnix"].(float64); ok && v > 0 {
		hit.CreatedAt = time.Unix(int64(v), 0).UTC()
	}
	return hit, true
}

func int32Ptr(v int32) *int32 { return &v }

// IndexSettings is the source of truth for the Algolia index configuration.
func IndexSettings() *search.IndexSettings {
	return &search.IndexSettings{
		// priority order
		SearchableAttributes: []string{
			"Title",
			"Body",
		},
		AttributesForFaceting: []string{
			"filterOnly(Kind)",
		},
		NumericAttributesForFiltering: []string{
			"RecordID",
			"CreatedAtUnix",
		},
		// newest first after text relevance
		CustomRanking: []string{
			"desc(CreatedAtUnix)",
		},
		AttributesToRetrieve: []string{
			"objectID",
			"Kind",
			"RecordID",
			"Title",
			"Body",
			"CreatedAtUnix",
		},
		AttributesToHighlight: []string{
			"Title",
		},
		HitsPerPage:          int32Ptr(defaultLimit),
		MinWordSizefor1Typo:  int32Ptr(4),
		MinWordSizefor2Typos: int32Ptr(8),
	}
}

// ApplySettings pushes IndexSettings to the index. Algolia applies them
// asynchronously; the returned task id can be used to wait for completion.
func (c *AlgoliaIndex) ApplySettings(ctx context.Context) (int64, error) {
	resp, err := c.client.SetSettings(c.client.NewApiSetSettingsRequest(c.indexName, IndexSettings()))
	if err != nil {
		return 0, fmt.Errorf("algolia set settings: %w", err)
	}
	c.logger.Info("index settings applied",
		zap.String("index", c.indexName),
		zap.Int64("task_id", resp.TaskID))
	return resp.TaskID, nil
}

// IndexName returns the Algolia index this client writes to.
func (c *AlgoliaIndex) IndexName() string {
	return c.indexName
}
