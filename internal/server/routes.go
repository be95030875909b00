package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/luisromp/personarag/internal/embeddings"
	"github.com/luisromp/personarag/internal/index"
	"github.com/luisromp/personarag/internal/llm"
)

// chatRequest is the POST /api/v1/chat payload.
type chatRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Language  string `json:"language"`
}

// chatResponse is the POST /api/v1/chat response.
type chatResponse struct {
	SessionID string   `json:"session_id"`
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	Grounded  bool     `json:"grounded"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	// Sessions are minted here so callers can hold onto an opaque ID.
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	answer, err := s.pipeline.Answer(r.Context(), sessionID, req.Question, req.Language)
	if err != nil {
		status, msg := classifyError(err)
		log.Printf("server: chat failed: %v", err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: sessionID,
		Answer:    answer.Text,
		Sources:   answer.Sources,
		Grounded:  answer.Grounded,
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	report, err := s.ingester.Run(r.Context())
	if err != nil {
		log.Printf("server: ingestion failed: %v", err)
		writeError(w, http.StatusServiceUnavailable, "ingestion failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// classifyError maps the core error taxonomy onto HTTP statuses. Provider
// and index outages, already past their retry budget, become 503s.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, llm.ErrGenerationUnavailable):
		return http.StatusServiceUnavailable, "the language model is temporarily unavailable"
	case errors.Is(err, embeddings.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable, "the embedding service is temporarily unavailable"
	case errors.Is(err, index.ErrIndexUnavailable):
		return http.StatusServiceUnavailable, "the knowledge index is temporarily unavailable"
	default:
		return http.StatusInternalServerError, "failed to generate an answer"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
