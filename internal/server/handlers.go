package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/castlemilk/pocketai/internal/service"
	"github.com/castlemilk/pocketai/internal/store"
)

const imageField = "image"

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	// leave room for the multipart envelope around the image
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+1<<20)

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "Image file is too large")
			return
		}
		writeMessage(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(imageField)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	if header.Size > s.maxUpload {
		writeMessage(w, http.StatusRequestEntityTooLarge, "Image file is too large")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "No image file provided")
		return
	}

	scan, err := s.scans.Analyze(r.Context(), data, header.Header.Get("Content-Type"))
	if err != nil {
		s.writeError(w, r, err, "Failed to analyze image. Please try again.", "Scan not found")
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	scans, err := s.scans.ListRecent(r.Context())
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch scan history", "Scan not found")
		return
	}
	if scans == nil {
		scans = []*store.Scan{}
	}
	writeJSON(w, http.StatusOK, scans)
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid scan id")
	if !ok {
		return
	}
	scan, err := s.scans.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch scan", "Scan not found")
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var in service.CreateSessionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid session payload")
		return
	}
	session, err := s.mediation.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, "Failed to create session", "Session not found")
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.mediation.ListRecent(r.Context())
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch sessions", "Session not found")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid session id")
	if !ok {
		return
	}
	session, err := s.mediation.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch session", "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type updateSessionRequest struct {
	Status store.SessionStatus `json:"status"`
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid session id")
	if !ok {
		return
	}
	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid session payload")
		return
	}
	session, err := s.mediation.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		s.writeError(w, r, err, "Failed to update session", "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleResolveSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid session id")
	if !ok {
		return
	}
	session, err := s.mediation.Resolve(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "Failed to resolve conflict. Please try again.", "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}
	hits, err := s.search.Search(r.Context(), q.Get("q"), q.Get("kind"), limit)
	if err != nil {
		s.writeError(w, r, err, "Failed to search history", "Not found")
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

func pathID(w http.ResponseWriter, r *http.Request, message string) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, message)
		return 0, false
	}
	return id, true
}
