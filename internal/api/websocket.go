package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// handleEvents streams state changes to a websocket client, starting
// with a snapshot of the current state.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.WithError(err).Error("Failed to accept websocket client")
		return
	}
	defer c.Close(websocket.StatusNormalClosure, "closing")

	logger := log.WithField("conn", uuid.NewString())
	logger.Debug("Streaming state changes to websocket client")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsub := s.source.Subscribe()
	defer unsub()

	// Reads only detect the client going away.
	go func() {
		for {
			if _, _, err := c.Read(ctx); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("WebSocket connection closed by client")
			return
		case change, ok := <-events:
			if !ok {
				return
			}
			b, err := json.Marshal(eventMessage(change))
			if err != nil {
				logger.WithError(err).Error("Failed to encode state change")
				return
			}
			if err := c.Write(ctx, websocket.MessageText, b); err != nil {
				logger.WithError(err).Debug("Failed to write to websocket client")
				return
			}
		}
	}
}
