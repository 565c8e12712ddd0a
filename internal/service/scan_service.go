package service

import (
	"context"
	"fmt"

	"github.com/castlemilk/pocketai/internal/extraction"
	"github.com/castlemilk/pocketai/internal/imagestore"
	"github.com/castlemilk/pocketai/internal/search"
	"github.com/castlemilk/pocketai/internal/store"
	"go.uber.org/zap"
)

// Dependencies shared by both services. Generator, Images and Index are optional.
type Dependencies struct {
	Store       store.Store
	Generator   extraction.Generator
	Images      imagestore.ImageStore
	Index       search.Index
	Logger      *zap.Logger
	RecentLimit int
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.RecentLimit <= 0 {
		d.RecentLimit = store.DefaultRecentLimit
	}
	return d
}

var errNotConfigured = &extraction.AnalysisError{
	Code:    extraction.ErrGeminiNotConfigured,
	Message: "Gemini API key not configured",
}

// ScanService analyzes food photos and keeps the scan history.
type ScanService struct {
	deps Dependencies
}

func NewScanService(deps Dependencies) *ScanService {
	return &ScanService{deps: deps.withDefaults()}
}

// Analyze sends the photo to Gemini, extracts the verdict and persists it.
func (s *ScanService) Analyze(ctx context.Context, image []byte, contentType string) (*store.Scan, error) {
	if s.deps.Generator == nil {
		return nil, errNotConfigured
	}

	att, err := extraction.ImageAttachment(image, contentType)
	if err != nil {
		return nil, err
	}

	text, err := s.deps.Generator.Generate(ctx, ScanPrompt, att)
	if err != nil {
		return nil, fmt.Errorf("analyze image: %w", err)
	}

	fields := extraction.Extract(text, extraction.ScanDirectives)
	scan := &store.Scan{
		FoodName:   fields.SubjectName,
		IsVegan:    fields.IsPositiveClassification,
		Analysis:   text,
		Confidence: fields.ConfidencePercent,
	}

	if s.deps.Images != nil {
		url, err := s.deps.Images.Put(ctx, att.Data, att.MIMEType)
		if err != nil {
			s.deps.Logger.Warn("failed to store scan image", zap.Error(err))
		} else {
			scan.ImageURL = &url
		}
	}

	if err := s.deps.Store.CreateScan(ctx, scan); err != nil {
		return nil, fmt.Errorf("create scan: %w", err)
	}

	s.deps.Logger.Info("scan analyzed",
		zap.Int("scan_id", scan.ID),
		zap.String("food_name", scan.FoodName),
		zap.Bool("is_vegan", scan.IsVegan),
		zap.Int("confidence", scan.Confidence))

	indexDocument(ctx, s.deps.Index, s.deps.Logger, scanDocument(scan))
	return scan, nil
}

// Get returns a single scan.
func (s *ScanService) Get(ctx context.Context, id int) (*store.Scan, error) {
	return s.deps.Store.GetScan(ctx, id)
}

// ListRecent returns the newest scans first.
func (s *ScanService) ListRecent(ctx context.Context) ([]*store.Scan, error) {
	return s.deps.Store.ListRecentScans(ctx, s.deps.RecentLimit)
}
