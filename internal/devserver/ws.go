package devserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is one client message: edit the named script (creating a new one
// if id is empty or names no open script) and ask for completions at
// cursorOffset.
// Grounded on the teacher's ws.go subscribe/unsubscribe envelope
// (`{"type": ..., "sql": ...}`), narrowed from live-query subscription to
// live completion requests.
type wsRequest struct {
	ID           string `json:"id"`
	InsertAt     int    `json:"insert_at"`
	InsertText   string `json:"insert_text"`
	EraseAt      int    `json:"erase_at"`
	EraseCount   int    `json:"erase_count"`
	CursorOffset uint32 `json:"cursor_offset"`
	Limit        int    `json:"limit"`
}

// handleWS upgrades the connection and, for every incoming edit request,
// applies the edit and pushes back completions at the given cursor offset.
// One websocket connection may drive several scripts by id, same as the
// teacher's WSHandler tracked several live queries per connection.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := func(msgType string, payload any) error {
		return conn.WriteJSON(map[string]any{"type": msgType, "data": payload})
	}

	ownedScripts := map[string]bool{}
	defer func() {
		for id := range ownedScripts {
			s.dropScript(id)
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				if ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway {
					zap.L().Info("ws closed", zap.Int("code", ce.Code))
				} else {
					zap.L().Warn("ws closed abnormally", zap.Int("code", ce.Code), zap.String("text", ce.Text))
				}
			} else {
				zap.L().Error("ws read error", zap.Error(err))
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			send("error", map[string]string{"error": "invalid JSON"})
			continue
		}

		sc, ok := s.lookupScript(req.ID)
		if !ok {
			id, newSc := s.newScript()
			sc = newSc
			ownedScripts[id] = true
			send("created", map[string]string{"id": id})
			req.ID = id
		}

		if req.EraseCount > 0 {
			sc.EraseRange(req.EraseAt, req.EraseCount)
		}
		if req.InsertText != "" {
			sc.InsertTextAt(req.InsertAt, req.InsertText)
		}

		limit := req.Limit
		if limit <= 0 {
			limit = 10
		}
		candidates, err := sc.CompleteAtCursor(req.CursorOffset, limit, nil)
		if err != nil {
			send("error", map[string]string{"error": err.Error()})
			continue
		}
		out := make([]candidateResponse, 0, len(candidates))
		for _, c := range candidates {
			out = append(out, candidateResponse{Name: c.Name, Score: c.Score})
		}
		send("completions", map[string]any{"id": req.ID, "candidates": out})
	}
}
