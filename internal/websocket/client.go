package websocket

import (
	"context"
	"net/http"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 32
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client is one connection. The server only pushes; frames the browser
// sends are discarded.
type Client struct {
	hub  *Hub
	conn *ws.Conn
	send chan []byte
}

// ServeHTTP upgrades the request and streams notifications to it until the
// peer goes away or the request context ends.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		OriginPatterns:     h.originPatterns,
		InsecureSkipVerify: len(h.originPatterns) == 0,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", "remote", r.RemoteAddr, "origin", r.Header.Get("Origin"), "error", err)
		return
	}

	c := &Client{hub: h, conn: conn, send: make(chan []byte, sendBufferSize)}
	c.run(r.Context())
}

func (c *Client) run(ctx context.Context) {
	c.hub.register(c)
	defer c.hub.unregister(c)

	// CloseRead drains incoming frames and cancels ctx once the peer goes away.
	ctx = c.conn.CloseRead(ctx)
	if err := c.writePump(ctx); err != nil {
		c.hub.logger.Debug("client write failed", "error", err)
		c.conn.Close(ws.StatusInternalError, "write failed")
		return
	}
	c.conn.Close(ws.StatusNormalClosure, "")
}

func (c *Client) writePump(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return nil
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, ws.MessageText, msg)
			cancel()
			if err != nil {
				return err
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}
