package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Client is one live WebSocket session. SocketID is unique within the
// process's lifetime; the user identity is attached later, by an explicit
// register event.
type Client struct {
	SocketID string
	userID   string
	conn     *websocket.Conn

	// Send is the buffered channel of outbound frames. The gateway's run
	// loop writes to it; writePump drains it to the socket.
	Send chan []byte
}

// NewClient wraps an accepted WebSocket connection.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		SocketID: uuid.NewString(),
		conn:     conn,
		Send:     make(chan []byte, 256),
	}
}

// inboundEvent is the frame clients send. Only register is meaningful;
// disconnect is implicit in the transport closing.
type inboundEvent struct {
	Event  string `json:"event"`
	UserID string `json:"userId"`
}

// readPump reads frames from the socket until it closes. It is the only
// reader of the connection. The deferred disconnect keeps the shared
// directory aligned with the transport state.
func (c *Client) readPump(ctx context.Context, g *Gateway) {
	defer func() {
		g.HandleDisconnect(ctx, c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && err != io.EOF {
				slog.Debug("websocket read ended", "socket_id", c.SocketID, "error", err)
			}
			return
		}

		var event inboundEvent
		if err := json.Unmarshal(data, &event); err != nil {
			slog.Warn("ignoring unreadable client frame", "socket_id", c.SocketID, "error", err)
			continue
		}

		switch event.Event {
		case "register":
			if event.UserID == "" {
				slog.Warn("register event without userId", "socket_id", c.SocketID)
				continue
			}
			g.HandleRegister(ctx, c, event.UserID)
		default:
			slog.Debug("ignoring unknown client event", "event", event.Event, "socket_id", c.SocketID)
		}
	}
}

// writePump drains the send channel to the socket. It exits when the
// gateway closes the channel on unregister.
func (c *Client) writePump(ctx context.Context) {
	defer c.conn.Close(websocket.StatusNormalClosure, "")

	for payload := range c.Send {
		if err := c.conn.Write(ctx, websocket.MessageText, payload); err != nil {
			slog.Debug("websocket write failed", "socket_id", c.SocketID, "error", err)
			return
		}
	}
}
