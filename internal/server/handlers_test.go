package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/castlemilk/pocketai/internal/extraction"
	"github.com/castlemilk/pocketai/internal/search"
	"github.com/castlemilk/pocketai/internal/service"
	"github.com/castlemilk/pocketai/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type testEnv struct {
	handler http.Handler
	gen     *extraction.MockGenerator
	store   *store.MemoryStore
}

func newTestEnv(t *testing.T, withGenerator bool) *testEnv {
	t.Helper()
	ctrl := gomock.NewController(t)
	env := &testEnv{store: store.NewMemoryStore()}

	deps := service.Dependencies{Store: env.store, Index: search.NewMemoryIndex()}
	if withGenerator {
		env.gen = extraction.NewMockGenerator(ctrl)
		deps.Generator = env.gen
	}

	srv := New(Options{
		Scans:          service.NewScanService(deps),
		Mediation:      service.NewMediationService(deps),
		Search:         service.NewSearchService(deps.Index),
		MaxUploadBytes: 1 << 10,
	})
	env.handler = srv.Handler()
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func imageUpload(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="lunch.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t, false)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := env.do(t, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestAnalyze(t *testing.T) {
	t.Run("stores and returns the scan", func(t *testing.T) {
		env := newTestEnv(t, true)
		env.gen.EXPECT().Generate(gomock.Any(), service.ScanPrompt, gomock.Any()).
			Return("This looks like a falafel wrap. It is vegan. 88%", nil)

		rec := env.do(t, imageUpload(t, "image", []byte("jpeg-bytes")))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		scan := decode[store.Scan](t, rec)
		assert.Equal(t, 1, scan.ID)
		assert.Equal(t, "falafel wrap", scan.FoodName)
		assert.True(t, scan.IsVegan)
		assert.Equal(t, 88, scan.Confidence)
		assert.Nil(t, scan.ImageURL)

		rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/scans/1", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/scans", nil))
		scans := decode[[]store.Scan](t, rec)
		assert.Len(t, scans, 1)

		rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/search?q=falafel", nil))
		hits := decode[[]search.Hit](t, rec)
		require.Len(t, hits, 1)
		assert.Equal(t, 1, hits[0].ID)
	})

	t.Run("missing file", func(t *testing.T) {
		env := newTestEnv(t, true)
		rec := env.do(t, imageUpload(t, "photo", []byte("jpeg-bytes")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No image file provided", decode[errorBody](t, rec).Message)
	})

	t.Run("not multipart", func(t *testing.T) {
		env := newTestEnv(t, true)
		req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		rec := env.do(t, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		env := newTestEnv(t, true)
		rec := env.do(t, imageUpload(t, "image", bytes.Repeat([]byte("x"), 4<<10)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("key not configured", func(t *testing.T) {
		env := newTestEnv(t, false)
		rec := env.do(t, imageUpload(t, "image", []byte("jpeg-bytes")))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Gemini API key not configured", decode[errorBody](t, rec).Message)
	})

	t.Run("gemini failure", func(t *testing.T) {
		env := newTestEnv(t, true)
		env.gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return("", errors.New("upstream exploded"))

		rec := env.do(t, imageUpload(t, "image", []byte("jpeg-bytes")))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decode[errorBody](t, rec)
		assert.Equal(t, "Failed to analyze image. Please try again.", body.Message)
		assert.Contains(t, body.Error, "upstream exploded")
	})
}

func TestGetScan(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/scans/12", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Scan not found", decode[errorBody](t, rec).Message)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/scans/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/scans", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, true)

	payload := `{
		"relationshipContext": "roommates",
		"argumentCategory": "household",
		"participants": [
			{"name": "Alex", "perspective": "I do all the dishes."},
			{"name": "Sam", "role": "Roommate", "perspective": "I pay more rent."},
			{"name": "", "perspective": "dropped"}
		]
	}`
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(payload)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[store.Session](t, rec)
	assert.Equal(t, store.SessionStatusActive, created.Status)
	assert.Len(t, created.Participants, 2)

	env.gen.EXPECT().Generate(gomock.Any(), gomock.Any()).
		Return("Let's share.\nFAIRNESS SCORE: 9\nACTION ITEMS:\n• Rotate dishes\n• Revisit rent split", nil)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/sessions/1/resolve", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resolved := decode[store.Session](t, rec)
	assert.Equal(t, store.SessionStatusResolved, resolved.Status)
	require.NotNil(t, resolved.FairnessScore)
	assert.Equal(t, 9, *resolved.FairnessScore)
	assert.Equal(t, []string{"Rotate dishes", "Revisit rent split"}, resolved.ActionItems)

	rec = env.do(t, httptest.NewRequest(http.MethodPatch, "/api/sessions/1", strings.NewReader(`{"status":"archived"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, store.SessionStatusArchived, decode[store.Session](t, rec).Status)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	sessions := decode[[]store.Session](t, rec)
	require.Len(t, sessions, 1)
	assert.Equal(t, store.SessionStatusArchived, sessions[0].Status)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/api/sessions/1/resolve", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionErrors(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed json", http.MethodPost, "/api/sessions", "{", http.StatusBadRequest},
		{"one participant", http.MethodPost, "/api/sessions",
			`{"relationshipContext":"family","argumentCategory":"other","participants":[{"name":"A","perspective":"x"}]}`,
			http.StatusBadRequest},
		{"unknown session", http.MethodGet, "/api/sessions/5", "", http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/sessions/zero", "", http.StatusBadRequest},
		{"resolve without key", http.MethodPost, "/api/sessions/5/resolve", "", http.StatusInternalServerError},
		{"bad status", http.MethodPatch, "/api/sessions/5", `{"status":"resolved"}`, http.StatusBadRequest},
		{"archive unknown", http.MethodPatch, "/api/sessions/5", `{"status":"archived"}`, http.StatusNotFound},
		{"bad search kind", http.MethodGet, "/api/search?q=x&kind=receipt", "", http.StatusBadRequest},
		{"bad search limit", http.MethodGet, "/api/search?q=x&limit=ten", "", http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body)))
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, false)
	req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)

	rec := env.do(t, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
