// algolia-setup applies the history search index settings for pocketai.
//
// Usage:
//
//	POCKETAI_ALGOLIA_APP_ID=... POCKETAI_ALGOLIA_API_KEY=... go run ./scripts/algolia-setup
//	POCKETAI_ALGOLIA_INDEX=pocketai-staging go run ./scripts/algolia-setup
package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/castlemilk/pocketai/internal/config"
	"github.com/castlemilk/pocketai/internal/search"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(config.LoadOptions{})
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.AlgoliaConfigured() {
		log.Fatal("POCKETAI_ALGOLIA_APP_ID and POCKETAI_ALGOLIA_API_KEY are required")
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	idx, err := search.NewAlgoliaIndex(search.Config{
		AppID:     cfg.Algolia.AppID,
		APIKey:    cfg.Algolia.APIKey,
		IndexName: cfg.Algolia.Index,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create Algolia client: %v", err)
	}

	taskID, err := idx.ApplySettings(context.Background())
	if err != nil {
		log.Fatalf("Failed to set index settings: %v", err)
	}

	s := search.IndexSettings()
	fmt.Println()
	fmt.Println("=== Algolia Index Configuration ===")
	fmt.Printf("Index:              %s\n", idx.IndexName())
	fmt.Printf("App ID:             %s\n", cfg.Algolia.AppID)
	fmt.Printf("Task ID:            %d\n", taskID)
	fmt.Println()
	fmt.Printf("Searchable attrs:   %s\n", strings.Join(s.SearchableAttributes, ", "))
	fmt.Printf("Facet filters:      %s\n", strings.Join(s.AttributesForFaceting, ", "))
	fmt.Printf("Custom ranking:     %s\n", strings.Join(s.CustomRanking, ", "))
	fmt.Println()
	fmt.Println("Done. Settings are applied asynchronously and will be active within seconds.")
}
