package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

func TestNewGeminiGenerator_RequiresKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), GeminiConfig{}, zap.NewNop())
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrGeminiNotConfigured))
	assert.Contains(t, err.Error(), "Gemini API key not configured")
}

func TestClassifyGeminiError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      AnalysisErrorCode
		retryable bool
	}{
		{"network failure", errors.New("connection reset"), ErrGeminiUnavailable, true},
		{"rate limited", genai.APIError{Code: http.StatusTooManyRequests}, ErrGeminiRateLimited, true},
		{"bad request", genai.APIError{Code: http.StatusBadRequest}, ErrInvalidImage, false},
		{"server error", fmt.Errorf("wrapped: %w", genai.APIError{Code: http.StatusServiceUnavailable}), ErrGeminiUnavailable, true},
		{"forbidden", genai.APIError{Code: http.StatusForbidden}, ErrGeminiUnavailable, false},
		{"cancelled", context.Canceled, ErrGeminiUnavailable, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyGeminiError(tc.err)
			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.retryable, got.Retryable)
			assert.Equal(t, tc.err, got.Cause)
		})
	}
}

func geminiTextResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
}

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *GeminiGenerator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gen, err := NewGeminiGenerator(context.Background(), GeminiConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	}, zap.NewNop())
	require.NoError(t, err)
	gen.RetryConfig = RetryConfig{
		MaxRetries:    2,
		InitialDelay:  5 * time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BackoffFactor: 2.0,
	}
	return gen
}

func TestGeminiGenerator_Generate(t *testing.T) {
	var body string
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		assert.True(t, strings.HasSuffix(r.URL.Path, DefaultGeminiModel+":generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(geminiTextResponse("This looks like a vegan taco. 90%"))
	})

	text, err := gen.Generate(context.Background(), "Is this vegan?", Attachment{
		Data:     []byte("\x89PNG\r\n\x1a\nfake"),
		MIMEType: "image/png",
	})
	require.NoError(t, err)
	assert.Equal(t, "This looks like a vegan taco. 90%", text)
	assert.Contains(t, body, "Is this vegan?")
	assert.Contains(t, body, "image/png")
}

func TestGeminiGenerator_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(geminiTextResponse("FAIRNESS SCORE: 8"))
	})

	text, err := gen.Generate(context.Background(), "mediate")
	require.NoError(t, err)
	assert.Equal(t, "FAIRNESS SCORE: 8", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGeminiGenerator_BadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad image","status":"INVALID_ARGUMENT"}}`))
	})

	_, err := gen.Generate(context.Background(), "scan")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrInvalidImage))
	assert.Equal(t, int32(1), calls.Load())
}

func TestImageAttachment(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	t.Run("declared image type kept", func(t *testing.T) {
		a, err := ImageAttachment(png, "image/webp")
		require.NoError(t, err)
		assert.Equal(t, "image/webp", a.MIMEType)
	})

	t.Run("parameters stripped", func(t *testing.T) {
		a, err := ImageAttachment(png, "Image/JPEG; charset=binary")
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", a.MIMEType)
	})

	t.Run("sniffed when declared type is generic", func(t *testing.T) {
		a, err := ImageAttachment(png, "application/octet-stream")
		require.NoError(t, err)
		assert.Equal(t, "image/png", a.MIMEType)
	})

	t.Run("non image rejected", func(t *testing.T) {
		_, err := ImageAttachment([]byte("just some text"), "")
		assert.True(t, IsCode(err, ErrInvalidImage))
	})

	t.Run("empty rejected", func(t *testing.T) {
		_, err := ImageAttachment(nil, "image/png")
		assert.True(t, IsCode(err, ErrInvalidImage))
	})
}
