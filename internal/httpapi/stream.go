package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Eran5102/Valuation-sub003/internal/audit"
	"github.com/Eran5102/Valuation-sub003/internal/captable"
	"github.com/Eran5102/Valuation-sub003/internal/waterfall"
)

// upgrader accepts same-origin and explicit-origin-header WebSocket
// upgrades; this server has no browser-facing origin policy of its own,
// so it defers entirely to CheckOrigin's default (same-origin) unless a
// caller supplies one.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// streamEvent is one message sent down the /v1/stream WebSocket: either an
// audit-trail entry, or the final result.
type streamEvent struct {
	Type   string                    `json:"type"`
	Entry  *audit.Entry              `json:"entry,omitempty"`
	Result *waterfall.AnalysisResult `json:"result,omitempty"`
	Error  string                    `json:"error,omitempty"`
}

// handleStream upgrades the connection, runs one analysis to completion,
// then sends its audit trail entries one message each, followed by the
// final result
// (SPEC_FULL.md §11's /v1/stream streaming analysis progress endpoint).
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// The analyze request arrives as the first WebSocket message rather
	// than the HTTP request body: a GET upgrade request's body is not
	// something websocket clients (including gorilla/websocket's own
	// Dialer) can populate, so requiring it pre-upgrade would make this
	// endpoint unreachable from a real client.
	var req analyzeRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.writeStreamError(conn, err)
		return
	}

	ct := req.CapTable.Normalized()
	result, err := waterfall.Analyze(ct)
	if err != nil {
		s.writeStreamError(conn, err)
		return
	}

	for i := range result.Trail.Entries {
		entry := result.Trail.Entries[i]
		if err := conn.WriteJSON(streamEvent{Type: "trail", Entry: &entry}); err != nil {
			return
		}
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	}

	_ = conn.WriteJSON(streamEvent{Type: "result", Result: result})
}

func (s *Server) writeStreamError(conn *websocket.Conn, err error) {
	msg := err.Error()
	var ve *captable.ValidationError
	if errors.As(err, &ve) {
		msg = ve.Error()
	}
	_ = conn.WriteJSON(streamEvent{Type: "error", Error: msg})
}
