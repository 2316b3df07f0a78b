package server

import (
	"net/http"
	"time"

	"github.com/user/eoc-response-sim/internal/types"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// handleStream upgrades to a websocket and pushes a snapshot after every change.
// A slow client only ever misses intermediate snapshots, never the latest one.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates := make(chan types.GameState, 8)
	unsubscribe := s.store.Subscribe(func(current, _ types.GameState) {
		select {
		case updates <- current:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- current:
			default:
			}
		}
	})
	defer unsubscribe()

	// reads only to notice the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Info("Websocket client connected", zap.String("remote_addr", r.RemoteAddr))
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(s.store.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case st := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(st); err != nil {
				s.logger.Info("Websocket client dropped", zap.Error(err))
				return
			}
		case <-closed:
			s.logger.Info("Websocket client disconnected", zap.String("remote_addr", r.RemoteAddr))
			return
		case <-r.Context().Done():
			return
		}
	}
}
