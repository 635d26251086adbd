package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/moviefinder/internal/provider"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.upstreamContext(r.Context())
	defer cancel()

	body, err := s.provider.Discover(ctx)
	if err != nil {
		s.logger.Printf("fetch discover movies: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to fetch movies", err.Error())
		return
	}
	s.respondRaw(w, http.StatusOK, body)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "Query parameter is required", "")
		return
	}

	ctx, cancel := s.upstreamContext(r.Context())
	defer cancel()

	body, err := s.provider.Search(ctx, query)
	if err != nil {
		s.logger.Printf("search movies %q: %v", query, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to search movies", err.Error())
		return
	}
	s.respondRaw(w, http.StatusOK, body)
}

func (s *Server) handleMovieDetails(w http.ResponseWriter, r *http.Request) {
	id, err := parseMovieID(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid movie id", err.Error())
		return
	}

	ctx, cancel := s.upstreamContext(r.Context())
	defer cancel()

	body, err := s.provider.Movie(ctx, id)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "Movie not found", "")
			return
		}
		s.logger.Printf("fetch movie %s: %v", id, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to fetch movie details", err.Error())
		return
	}
	s.respondRaw(w, http.StatusOK, body)
}

func (s *Server) upstreamContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.TMDBTimeoutSecs <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, time.Duration(s.cfg.TMDBTimeoutSecs)*time.Second)
}

func parseMovieID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return "", errors.New("movie id must be a positive integer")
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *Server) respondRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.Printf("failed to write response: %v", err)
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, errMsg, message string) {
	s.respondJSON(w, status, errorResponse{
		Error:   errMsg,
		Message: message,
	})
}
