package main

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/fingen/agent/engine"
)

// chatRequest is one incoming user message on the socket.
type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// chatFrame is one outgoing frame: a reply fragment, or done marking the end
// of the turn.
type chatFrame struct {
	Type    string `json:"type"` // "chunk" or "done"
	Content string `json:"content,omitempty"`
}

type chatHandler struct {
	engine   *engine.Engine
	upgrader websocket.Upgrader
}

func newChatHandler(eng *engine.Engine) http.Handler {
	mux := http.NewServeMux()
	h := &chatHandler{
		engine: eng,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	mux.Handle("/ws", h)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ServeHTTP upgrades the connection and serves turns until the client goes
// away. Turns on one connection run sequentially; sessions on different
// connections run concurrently.
func (h *chatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[AGENTD] Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[AGENTD] Read failed: %v", err)
			}
			return
		}

		// The engine never surfaces errors; every failure arrives as
		// in-band text fragments.
		for chunk := range h.engine.HandleMessage(ctx, req.SessionID, req.Message) {
			if err := conn.WriteJSON(chatFrame{Type: "chunk", Content: chunk}); err != nil {
				log.Printf("[AGENTD] Write failed: %v", err)
				return
			}
		}
		if err := conn.WriteJSON(chatFrame{Type: "done"}); err != nil {
			log.Printf("[AGENTD] Write failed: %v", err)
			return
		}
	}
}
