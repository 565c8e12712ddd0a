package main

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	gcsstorage "cloud.google.com/go/storage"
	"github.com/castlemilk/pocketai/internal/config"
	"github.com/castlemilk/pocketai/internal/extraction"
	"github.com/castlemilk/pocketai/internal/imagestore"
	"github.com/castlemilk/pocketai/internal/search"
	"github.com/castlemilk/pocketai/internal/server"
	"github.com/castlemilk/pocketai/internal/service"
	"github.com/castlemilk/pocketai/internal/store"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// app owns the server and every client it depends on.
type app struct {
	server  *server.Server
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var clientOpts []option.ClientOption
	if cfg.Store.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.Store.CredentialsFile))
	}

	deps := service.Dependencies{
		Logger:      logger,
		RecentLimit: cfg.Server.RecentLimit,
	}

	switch cfg.Store.Backend {
	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.Store.ProjectID, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("create firestore client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		deps.Store = store.NewFirestoreStore(client)
		logger.Info("using firestore store", zap.String("project", cfg.Store.ProjectID))
	default:
		deps.Store = store.NewMemoryStore()
		logger.Info("using in-memory store")
	}

	if cfg.Images.Bucket != "" {
		client, err := gcsstorage.NewClient(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		deps.Images = imagestore.NewGCSStore(client, cfg.Images.Bucket, cfg.Images.Prefix)
	}

	if cfg.AlgoliaConfigured() {
		idx, err := search.NewAlgoliaIndex(search.Config{
			AppID:     cfg.Algolia.AppID,
			APIKey:    cfg.Algolia.APIKey,
			IndexName: cfg.Algolia.Index,
		}, logger)
		if err != nil {
			return nil, err
		}
		deps.Index = idx
	} else {
		deps.Index = search.NewMemoryIndex()
	}

	if cfg.GeminiConfigured() {
		gen, err := extraction.NewGeminiGenerator(ctx, extraction.GeminiConfig{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
		}, logger)
		if err != nil {
			return nil, err
		}
		deps.Generator = gen
	} else {
		logger.Warn("no Gemini API key configured; analyze and resolve requests will fail")
	}

	a.server = server.New(server.Options{
		Scans:          service.NewScanService(deps),
		Mediation:      service.NewMediationService(deps),
		Search:         service.NewSearchService(deps.Index),
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})
	ok = true
	return a, nil
}

// Close releases clients in reverse creation order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
