package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 5 * time.Second
	// Time allowed to read the next pong from the peer.
	pongWait = 30 * time.Second
	// Ping period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum input frame size.
	maxFrameSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// GET /api/v1/runs/{id}/stream
//
// The server pushes a StreamFrame for every snapshot of the run and closes
// the socket once the run is done. Clients may send StreamAction frames as
// input; invalid actions are answered with an error frame.
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("run %s: websocket upgrade: %v", sess.ID(), err)
		return
	}
	defer conn.Close()

	snaps, cancel := sess.Subscribe()
	defer cancel()

	ctx := r.Context()
	errs := make(chan EngineError, 4)
	readDone := make(chan struct{})
	report := func(e EngineError) {
		select {
		case errs <- e:
		default:
		}
	}

	go func() {
		defer close(readDone)
		conn.SetReadLimit(maxFrameSize)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Printf("run %s: stream read: %v", sess.ID(), err)
				}
				return
			}
			var action StreamAction
			if err := json.Unmarshal(msg, &action); err != nil {
				report(newEngineError(ErrTypeInvalidParams, "malformed action").With("cause", err.Error()))
				continue
			}
			if _, err := applyAction(ctx, sess, action); err != nil {
				report(newEngineError(ErrTypeInvalidInput, err.Error()).With("action", action.Type))
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run over"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(StreamFrame{Snapshot: &snap}); err != nil {
				return
			}
		case e := <-errs:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(StreamFrame{Error: &e}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-readDone:
			return
		case <-ctx.Done():
			return
		}
	}
}
