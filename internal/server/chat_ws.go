package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	SessionID string `json:"session_id"` // empty for new sessions
	Question  string `json:"question"`
	Language  string `json:"language"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type      string   `json:"type"` // "answer" or "error"
	SessionID string   `json:"session_id"`
	Answer    string   `json:"answer,omitempty"`
	Sources   []string `json:"sources,omitempty"`
	Grounded  bool     `json:"grounded"`
	Error     string   `json:"error,omitempty"`
}

// handleChatWS runs a chat conversation over one websocket connection.
// Messages on a single connection are handled sequentially, which keeps
// the per-session turn ordering the pipeline documents.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendWSError(conn, "", "invalid message format")
			continue
		}
		if req.Question == "" {
			s.sendWSError(conn, req.SessionID, "question is required")
			continue
		}

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		answer, err := s.pipeline.Answer(r.Context(), sessionID, req.Question, req.Language)
		if err != nil {
			_, msg := classifyError(err)
			log.Printf("server: websocket chat failed: %v", err)
			s.sendWSError(conn, sessionID, msg)
			continue
		}

		s.sendWS(conn, wsResponse{
			Type:      "answer",
			SessionID: sessionID,
			Answer:    answer.Text,
			Sources:   answer.Sources,
			Grounded:  answer.Grounded,
		})
	}
}

func (s *Server) sendWS(conn *websocket.Conn, resp wsResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}

func (s *Server) sendWSError(conn *websocket.Conn, sessionID, msg string) {
	s.sendWS(conn, wsResponse{Type: "error", SessionID: sessionID, Error: msg})
}
