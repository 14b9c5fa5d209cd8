// Package server exposes the transcript engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/vidlib/transcript-engine/internal/backoff"
	"github.com/vidlib/transcript-engine/internal/engine"
	"github.com/vidlib/transcript-engine/internal/model"
	"github.com/vidlib/transcript-engine/internal/store"
)

// Fetcher is the engine surface the server needs.
type Fetcher interface {
	Fetch(ctx context.Context, videoID string) (*model.Transcript, error)
	BatchFetch(ctx context.Context, videoIDs []string, concurrency int) []engine.BatchResult
	Cache() *backoff.Cache
}

// Server handles transcript API requests.
type Server struct {
	engine Fetcher
	store  store.Store
	log    *zap.Logger
}

// New creates a Server. store may be nil, in which case nothing is persisted
// and every request goes through the engine.
func New(eng Fetcher, st store.Store) *Server {
	return &Server{
		engine: eng,
		store:  st,
		log:    zap.L().With(zap.String("component", "server")),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/transcript/{videoID}", s.handleGetTranscript)
	r.Get("/transcript/{videoID}/log", s.handleFetchLog)
	r.Delete("/transcript/{videoID}", s.handleDeleteTranscript)
	r.Get("/transcripts", s.handleListTranscripts)
	r.Post("/batch", s.handleBatch)
	r.Get("/cache", s.handleCache)

	return r
}

type transcriptResponse struct {
	VideoID        string          `json:"video_id"`
	Language       string          `json:"language"`
	SourceStrategy string          `json:"source_strategy"`
	Text           string          `json:"text"`
	Segments       []model.Segment `json:"segments"`
}

func toResponse(t *model.Transcript) transcriptResponse {
	return transcriptResponse{
		VideoID:        t.VideoID,
		Language:       t.Language,
		SourceStrategy: t.SourceStrategy,
		Text:           t.FullText(),
		Segments:       t.Segments,
	}
}

// handleGetTranscript serves from the store when possible and falls back to a
// live fetch, persisting the result.
func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if err := model.ValidateVideoID(videoID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.store != nil {
		if t, err := s.store.GetTranscript(r.Context(), videoID); err == nil {
			writeJSON(w, http.StatusOK, toResponse(t))
			return
		} else if !errors.Is(err, store.ErrNotFound) {
			s.log.Error("store lookup failed", zap.String("video_id", videoID), zap.Error(err))
		}
	}

	t, err := s.engine.Fetch(r.Context(), videoID)
	if err != nil {
		var agg *model.AggregateError
		if errors.As(err, &agg) {
			s.logFailures(r.Context(), agg)
		}
		s.writeFetchError(w, videoID, err)
		return
	}
	s.persist(r.Context(), t)
	writeJSON(w, http.StatusOK, toResponse(t))
}

func (s *Server) handleDeleteTranscript(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "no store configured")
		return
	}
	videoID := chi.URLParam(r, "videoID")
	if err := s.store.DeleteTranscript(r.Context(), videoID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transcript not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTranscripts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "no store configured")
		return
	}
	filter := store.TranscriptFilter{
		Language:       r.URL.Query().Get("language"),
		SourceStrategy: r.URL.Query().Get("source"),
		Limit:          100,
	}
	list, err := s.store.ListTranscripts(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]transcriptResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFetchLog(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "no store configured")
		return
	}
	videoID := chi.URLParam(r, "videoID")
	entries, err := s.store.ListFetchLog(r.Context(), videoID, 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []store.FetchLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type batchRequest struct {
	VideoIDs    []string `json:"video_ids"`
	Concurrency int      `json:"concurrency"`
}

type batchItemResponse struct {
	VideoID     string              `json:"video_id"`
	Transcript  *transcriptResponse `json:"transcript,omitempty"`
	Error       string              `json:"error,omitempty"`
	FailureKind model.Kind          `json:"failure_kind,omitempty"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.VideoIDs) == 0 {
		writeError(w, http.StatusBadRequest, "video_ids is required")
		return
	}

	results := s.engine.BatchFetch(r.Context(), req.VideoIDs, req.Concurrency)
	out := make([]batchItemResponse, 0, len(results))
	for _, res := range results {
		item := batchItemResponse{VideoID: res.VideoID}
		if res.Err != nil {
			item.Error = res.Err.Error()
			var agg *model.AggregateError
			if errors.As(res.Err, &agg) {
				item.FailureKind = agg.Dominant()
			}
		} else {
			s.persist(r.Context(), res.Transcript)
			tr := toResponse(res.Transcript)
			item.Transcript = &tr
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Cache().Snapshot())
}

func (s *Server) persist(ctx context.Context, t *model.Transcript) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveTranscript(ctx, t); err != nil {
		s.log.Error("persist transcript failed", zap.String("video_id", t.VideoID), zap.Error(err))
	}
	if err := s.store.LogAttempt(ctx, store.FetchLogEntry{
		VideoID:  t.VideoID,
		Strategy: t.SourceStrategy,
		Success:  true,
	}); err != nil {
		s.log.Error("log attempt failed", zap.String("video_id", t.VideoID), zap.Error(err))
	}
}

// logFailures records every failed attempt of an exhausted fetch.
func (s *Server) logFailures(ctx context.Context, agg *model.AggregateError) {
	if s.store == nil {
		return
	}
	for _, a := range agg.Attempts {
		if err := s.store.LogAttempt(ctx, store.FetchLogEntry{
			VideoID:     agg.VideoID,
			Strategy:    a.Strategy,
			Success:     false,
			FailureKind: a.Kind,
			Detail:      a.Detail,
		}); err != nil {
			s.log.Error("log attempt failed", zap.String("video_id", agg.VideoID), zap.Error(err))
		}
	}
}

// writeFetchError maps an exhausted fetch onto an HTTP status by its most
// informative failure kind.
func (s *Server) writeFetchError(w http.ResponseWriter, videoID string, err error) {
	var agg *model.AggregateError
	if !errors.As(err, &agg) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusBadGateway
	switch agg.Dominant() {
	case model.KindNotFound:
		status = http.StatusNotFound
	case model.KindAntiBotBlock, model.KindRateLimited:
		status = http.StatusServiceUnavailable
	}

	s.log.Warn("fetch exhausted",
		zap.String("video_id", videoID),
		zap.String("dominant", string(agg.Dominant())),
		zap.Int("attempted", agg.Attempted),
	)
	writeJSON(w, status, map[string]any{
		"error":        agg.Error(),
		"failure_kind": agg.Dominant(),
		"attempted":    agg.Attempted,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
