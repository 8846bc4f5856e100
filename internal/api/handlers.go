package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/inlet/internal/message"
)

// handleListMessages handles GET /messages?limit=&offset=&from=&since=&q=
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	s.metrics.Query("messages")

	filter, details := s.parseFilter(r)
	if len(details) > 0 {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "invalid query", Details: details})
		return
	}

	page, err := s.store.List(r.Context(), filter)
	if err != nil {
		s.storageFailure(w, r, "list messages", err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) parseFilter(r *http.Request) (message.Filter, map[string]string) {
	q := r.URL.Query()
	details := map[string]string{}
	f := message.Filter{
		Limit: s.config.DefaultLimit,
		From:  q.Get("from"),
		Q:     q.Get("q"),
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > s.config.MaxLimit {
			details["limit"] = fmt.Sprintf("must be an integer between 1 and %d", s.config.MaxLimit)
		} else {
			f.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			details["offset"] = "must be a non-negative integer"
		} else {
			f.Offset = n
		}
	}
	if v := q.Get("since"); v != "" {
		if _, err := time.Parse(time.RFC3339, v); err != nil {
			details["since"] = "must be an RFC 3339 timestamp"
		} else {
			f.Since = v
		}
	}
	return f, details
}

// handleGetMessage handles GET /messages/{messageID}
func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	s.metrics.Query("message")

	m, err := s.store.Get(r.Context(), chi.URLParam(r, "messageID"))
	if err != nil {
		s.storageFailure(w, r, "get message", err)
		return
	}
	if m == nil {
		s.writeError(w, http.StatusNotFound, "message not found")
		return
	}
	respondJSON(w, http.StatusOK, m)
}

// handleStats handles GET /stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.metrics.Query("stats")

	st, err := s.store.Stats(r.Context())
	if err != nil {
		s.storageFailure(w, r, "compute stats", err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// handleLive handles GET /health/live. It never touches the database.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", UptimeSeconds: s.uptime()})
}

// handleReady handles GET /health/ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ready", UptimeSeconds: s.uptime()}

	if !s.config.SecretConfigured {
		resp.Status, resp.Reason = "not ready", "webhook secret not configured"
		respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	if err := s.store.Ready(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		resp.Status, resp.Reason = "not ready", "storage unavailable"
		respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) uptime() int64 {
	return int64(time.Since(s.startedAt).Seconds())
}

func (s *Server) storageFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.Error("read query failed",
		"op", op,
		"error", err,
		"request_id", middleware.GetReqID(r.Context()),
	)
	if errors.Is(err, message.ErrStorageUnavailable) {
		w.Header().Set("Retry-After", "1")
		s.writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
