package gateway

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
)

// ServeWS upgrades the request to a WebSocket session and starts the
// client's pumps. Registration happens later, when the client sends its
// register event.
func (g *Gateway) ServeWS(c echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		// Origin checking is the deployment's concern; the gateway sits
		// behind the platform's ingress.
		InsecureSkipVerify: true,
	})
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return c.String(http.StatusInternalServerError, "failed to upgrade connection")
	}

	client := NewClient(conn)
	g.HandleConnect(client)

	// The session outlives the HTTP handler, so the pumps cannot inherit
	// the request context.
	ctx := context.Background()
	go client.writePump(ctx)
	go client.readPump(ctx, g)

	return nil
}
