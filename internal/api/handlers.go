package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"fragreel/internal/logging"
	"fragreel/internal/render"
	"fragreel/internal/services"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.backend.Status == nil {
		s.writeJSON(w, http.StatusOK, Status{})
		return
	}
	s.writeJSON(w, http.StatusOK, s.backend.Status(r.Context()))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.backend.Store.Stats(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, TemplateListResponse{Templates: render.Templates()})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if !s.decode(w, r, &req) {
		return
	}
	path := strings.TrimSpace(req.Path)
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		batch, err := s.backend.Ingester.IngestDirectory(r.Context(), path)
		if err != nil && len(batch.Ingested) == 0 && len(batch.Failed) == 0 {
			s.writeFailure(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, IngestResponse{Batch: &batch})
		return
	}
	summary, err := s.backend.Ingester.IngestFile(r.Context(), path)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, IngestResponse{Match: &summary})
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.backend.Store.ListMatches(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, MatchListResponse{Matches: matches})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	rec, err := s.backend.Store.GetMatch(ctx, id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if rec == nil {
		s.writeError(w, http.StatusNotFound, "match not found")
		return
	}
	detail := MatchDetail{Match: *rec}
	if detail.Rounds, err = s.backend.Store.ListRounds(ctx, id); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if detail.Players, err = s.backend.Store.ListPlayerStats(ctx, id); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if detail.Highlights, err = s.backend.Store.ListHighlights(ctx, id); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Ingester.DeleteMatch(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMatchHighlights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	rec, err := s.backend.Store.GetMatch(ctx, id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if rec == nil {
		s.writeError(w, http.StatusNotFound, "match not found")
		return
	}
	highlights, err := s.backend.Store.ListHighlights(ctx, id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, HighlightListResponse{Highlights: highlights})
}

func (s *Server) handleAllHighlights(w http.ResponseWriter, r *http.Request) {
	highlights, err := s.backend.Store.ListHighlights(r.Context(), "")
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, HighlightListResponse{Highlights: highlights})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !s.decodeOptional(w, r, &req) {
		return
	}
	task, err := s.backend.Renderer.CreateTask(r.Context(), chi.URLParam(r, "id"), req.RecordingPath, req.Template)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, TaskResponse{Task: task})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		s.writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	task, err := s.backend.Renderer.ImportExternalVideo(r.Context(), chi.URLParam(r, "id"), req.Path, req.Template)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, TaskResponse{Task: task})
}

func (s *Server) handlePlayerHistory(w http.ResponseWriter, r *http.Request) {
	steamID := chi.URLParam(r, "steamID")
	history, err := s.backend.Store.PlayerHistory(r.Context(), steamID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, PlayerHistoryResponse{SteamID: steamID, Matches: history})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.backend.Renderer.List(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, TaskListResponse{Tasks: tasks})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.backend.Renderer.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, TaskResponse{Task: task})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Renderer.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// decodeOptional accepts an empty body.
func (s *Server) decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeFailure maps err onto the taxonomy status code. Unclassified errors
// are logged since they indicate a bug or a storage failure.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError && !errors.Is(err, services.ErrSubprocess) && !errors.Is(err, services.ErrDecodeFailed) {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_error",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeError(w, status, err.Error())
}
