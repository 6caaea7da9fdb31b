package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/poiesic/rolodex/chat"
	"github.com/poiesic/rolodex/core"
)

const maxBodyBytes = 1 << 20

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k,omitempty"`
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// SearchResponse is the body returned by GET /employees/search.
type SearchResponse struct {
	Results []core.Record `json:"results"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.responder == nil {
		writeError(w, http.StatusNotImplemented, "answer generation is not configured")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	k := DefaultTopK
	if req.TopK != nil {
		k = *req.TopK
	}

	answer, err := s.responder.Respond(r.Context(), req.Query, k)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Response: answer})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	if !params.Has("query") {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}
	k := DefaultTopK
	if raw := params.Get("top_k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("top_k must be an integer, got %q", raw))
			return
		}
		k = parsed
	}

	records, err := s.retriever.Retrieve(r.Context(), params.Get("query"), k)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: records})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if !s.retriever.Healthy() {
		writeError(w, http.StatusServiceUnavailable, core.ErrDesynchronized.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeFailure maps an operation error to a status code.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "err", err)
	}
	writeError(w, status, detail)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, chat.ErrGeneration):
		return http.StatusBadGateway, chat.ErrGeneration.Error()
	case errors.Is(err, core.ErrDesynchronized):
		return http.StatusServiceUnavailable, core.ErrDesynchronized.Error()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
