package feed

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// Handler upgrades requests to WebSocket and streams hub snapshots as JSON.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
			CompressionMode:    websocket.CompressionNoContextTakeover,
		})
		if err != nil {
			h.logger.Warn("feed_accept_failed", zap.Error(err))
			return
		}
		h.serve(r.Context(), conn)
	})
}

// NewServeMux mounts the feed at /ws.
func (h *Hub) NewServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", h.Handler())
	return mux
}

func (h *Hub) serve(ctx context.Context, conn *websocket.Conn) {
	// Clients never send; CloseRead handles control frames and cancels on close.
	ctx = conn.CloseRead(ctx)
	snaps, cancel := h.Subscribe()
	defer cancel()
	h.logger.Info("feed_subscribed", zap.Int("subscribers", h.Subscribers()))

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "bye")
			h.logger.Info("feed_unsubscribed")
			return
		case snap, ok := <-snaps:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "hub closed")
				return
			}
			wctx, done := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, snap)
			done()
			if err != nil {
				h.logger.Debug("feed_write_failed", zap.Error(err))
				_ = conn.Close(websocket.StatusGoingAway, "write failure")
				return
			}
		case <-ticker.C:
			pctx, done := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			done()
			if err != nil {
				_ = conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}
