package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/martinemde/lexdraft/drafting"
	"github.com/martinemde/lexdraft/unifiedllm"
)

const wsWriteTimeout = 10 * time.Second

// WSMessageType tags the messages the server sends on /v1/documents/ws.
type WSMessageType string

const (
	WSEvent    WSMessageType = "event"
	WSChunk    WSMessageType = "chunk"
	WSRestart  WSMessageType = "restart"
	WSError    WSMessageType = "error"
	WSComplete WSMessageType = "complete"
)

// WSMessage is a server-to-client WebSocket message. The client sends one
// drafting.DraftRequest per generation; the server answers with events and
// chunks, then a single complete or error message.
type WSMessage struct {
	Type     WSMessageType        `json:"type"`
	Event    *drafting.Event      `json:"event,omitempty"`
	Text     string               `json:"text,omitempty"`
	Done     bool                 `json:"done,omitempty"`
	Endpoint *unifiedllm.Endpoint `json:"endpoint,omitempty"`
	Document string               `json:"document,omitempty"`
	Error    string               `json:"error,omitempty"`
	Kind     string               `json:"kind,omitempty"`
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(msg WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(msg)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()
	ws.SetReadLimit(maxBodyBytes)

	conn := &wsConn{conn: ws}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The read side owns cancellation: a closed socket stops the generation
	// in progress.
	requests := make(chan []byte)
	go func() {
		defer cancel()
		defer close(requests)
		for {
			mt, data, err := ws.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Debug("websocket read ended", "error", err)
				}
				return
			}
			if mt != websocket.TextMessage {
				continue
			}
			select {
			case requests <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	for data := range requests {
		var req drafting.DraftRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if conn.send(WSMessage{Type: WSError, Error: "invalid request: " + err.Error()}) != nil {
				return
			}
			continue
		}
		if err := s.streamOverWS(ctx, conn, req); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
			return
		}
	}

	conn.mu.Lock()
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	conn.mu.Unlock()
}

// streamOverWS runs one generation. It returns an error only when the
// connection can no longer be written.
func (s *Server) streamOverWS(ctx context.Context, conn *wsConn, req drafting.DraftRequest) error {
	emitter := drafting.NewEventEmitter(64)
	var (
		wg       sync.WaitGroup
		writeErr error
		errOnce  sync.Once
	)
	fail := func(err error) {
		if err != nil {
			errOnce.Do(func() { writeErr = err })
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range emitter.Events() {
			fail(conn.send(WSMessage{Type: WSEvent, Event: &ev}))
		}
	}()

	text, err := s.drafter.StreamDocument(ctx, req,
		func(delta string, done bool) {
			fail(conn.send(WSMessage{Type: WSChunk, Text: delta, Done: done}))
		},
		drafting.OnRestart(func(next unifiedllm.Endpoint) {
			fail(conn.send(WSMessage{Type: WSRestart, Endpoint: &next}))
		}),
		drafting.ObserveStream(emitter.Observe),
	)
	emitter.Close()
	wg.Wait()
	if writeErr != nil {
		return writeErr
	}

	if err != nil {
		body := newErrorBody(err)
		return conn.send(WSMessage{Type: WSError, Error: body.Error, Kind: body.Kind})
	}
	return conn.send(WSMessage{Type: WSComplete, Document: text})
}
