package ws

import (
	"context"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/katro/partyhub/internal/registry"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
	pingTimeout  = 15 * time.Second
)

// writePump drains the client's out channel onto the websocket and keeps the
// connection alive with periodic pings. Exits on context cancellation or the
// first failed write; readLoop detects the closure on its side.
func writePump(ctx context.Context, conn *websocket.Conn, c *registry.Client, logger *logrus.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer conn.Close(websocket.StatusGoingAway, "write pump stopping")

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.Out:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("client %s: websocket write failed: %v", c.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("client %s: ping failed, assuming disconnect: %v", c.ID, err)
				return
			}
		}
	}
}

// readLoop reads frames off the websocket and feeds them to handle until the
// connection closes. Non-text frames are ignored.
func readLoop(ctx context.Context, conn *websocket.Conn, c *registry.Client, logger *logrus.Logger, handle func(context.Context, *registry.Client, []byte)) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, data, err := conn.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			switch {
			case closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway:
			case strings.Contains(err.Error(), "context canceled"):
			default:
				logger.Warnf("client %s: read error: %v (close status %d)", c.ID, err, closeStatus)
			}
			return
		}
		if typ != websocket.MessageText {
			logger.Warnf("client %s: ignoring non-text message type %d", c.ID, typ)
			continue
		}

		handle(ctx, c, data)
	}
}
