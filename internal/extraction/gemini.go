package extraction

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiGenerator implements Generator on top of the Gemini API.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      *zap.Logger
	RetryConfig RetryConfig
}

// GeminiConfig holds configuration for the Gemini generator.
type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint, used by tests and proxies.
	BaseURL string
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, &AnalysisError{
			Code:    ErrGeminiNotConfigured,
			Message: "Gemini API key not configured",
		}
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiGenerator{
		client:      client,
		model:       cfg.Model,
		temperature: 0.4,
		logger:      logger.Named("gemini"),
		RetryConfig: DefaultGeminiRetryConfig,
	}, nil
}

// Model returns the model name requests are sent to.
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate sends the prompt and attachments to Gemini, retrying transient failures.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, attachments ...Attachment) (string, error) {
	return WithRetry(ctx, g.RetryConfig, func(ctx context.Context) (string, error) {
		return g.generateOnce(ctx, prompt, attachments)
	})
}

func (g *GeminiGenerator) generateOnce(ctx context.Context, prompt string, attachments []Attachment) (string, error) {
	parts := make([]*genai.Part, 0, len(attachments)+1)
	parts = append(parts, genai.NewPartFromText(prompt))
	for _, a := range attachments {
		parts = append(parts, genai.NewPartFromBytes(a.Data, a.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	})
	if err != nil {
		classified := classifyGeminiError(err)
		g.logger.Warn("generate content failed",
			zap.String("model", g.model),
			zap.String("code", string(classified.Code)),
			zap.Bool("retryable", classified.Retryable),
			zap.Error(err))
		return "", classified
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &AnalysisError{
			Code:      ErrEmptyResponse,
			Message:   "no response from Gemini",
			Retryable: true,
		}
	}

	g.logger.Debug("generated content",
		zap.String("model", g.model),
		zap.Int("attachments", len(attachments)),
		zap.Int("chars", len(text)))
	return text, nil
}

// classifyGeminiError converts Gemini client errors to AnalysisErrors.
func classifyGeminiError(err error) *AnalysisError {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &AnalysisError{
			Code:    ErrGeminiUnavailable,
			Message: "Gemini API request cancelled",
			Cause:   err,
		}
	}

	statusCode := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		statusCode = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		statusCode = apiErrPtr.Code
	}

	switch {
	case statusCode == 0:
		return &AnalysisError{
			Code:      ErrGeminiUnavailable,
			Message:   "Gemini API request failed",
			Retryable: true,
			Cause:     err,
		}
	case statusCode == http.StatusTooManyRequests:
		return &AnalysisError{
			Code:      ErrGeminiRateLimited,
			Message:   "Gemini API rate limited",
			Retryable: true,
			Cause:     err,
		}
	case statusCode == http.StatusBadRequest:
		return &AnalysisError{
			Code:    ErrInvalidImage,
			Message: "Gemini rejected the request",
			Cause:   err,
		}
	default:
		return &AnalysisError{
			Code:      ErrGeminiUnavailable,
			Message:   fmt.Sprintf("Gemini API error (HTTP %d)", statusCode),
			Retryable: statusCode >= 500,
			Cause:     err,
		}
	}
}
