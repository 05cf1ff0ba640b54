// Package gateway manages this process's WebSocket sessions: registering
// users into the shared presence directory, joining local sockets to rooms,
// and fanning a message out to every socket locally joined to a room.
//
// Local join and broadcast state is owned by a single goroutine (Run); all
// mutations travel through channels, so there are no cross-socket races.
// BroadcastToRoom has no cross-process effect: cross-process coverage exists
// only because every process independently consumes the broker and re-invokes
// it.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/presence"
)

// EventNewMessage is the outbound transport event carrying a relayed chat
// message.
const EventNewMessage = "new-message"

// Envelope is the frame written to sockets.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type identifyCmd struct {
	client *Client
	userID string
	rooms  []string
}

type membershipCmd struct {
	userID string
	roomID string
	join   bool
}

type broadcastCmd struct {
	roomID  string
	payload []byte
}

// Gateway is the per-process connection manager.
type Gateway struct {
	serverID  string
	directory presence.Directory
	logger    *slog.Logger

	// Owned by the Run goroutine.
	clients     map[string]*Client            // socketID -> client
	users       map[string]map[string]*Client // userID -> socketID -> client
	rooms       map[string]map[string]*Client // roomID -> socketID -> client
	clientRooms map[string]map[string]struct{}

	register   chan *Client
	unregister chan *Client
	identify   chan identifyCmd
	membership chan membershipCmd
	broadcast  chan broadcastCmd
}

// New creates a gateway for this process. serverID identifies the process
// in the shared presence directory.
func New(serverID string, directory presence.Directory) *Gateway {
	return &Gateway{
		serverID:    serverID,
		directory:   directory,
		logger:      slog.Default().With("component", "gateway", "server_id", serverID),
		clients:     make(map[string]*Client),
		users:       make(map[string]map[string]*Client),
		rooms:       make(map[string]map[string]*Client),
		clientRooms: make(map[string]map[string]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		identify:    make(chan identifyCmd),
		membership:  make(chan membershipCmd, 16),
		broadcast:   make(chan broadcastCmd, 64),
	}
}

// Run processes lifecycle and fan-out commands until ctx is cancelled. It
// must run in its own goroutine, and it is the only goroutine that touches
// the local join state.
func (g *Gateway) Run(ctx context.Context) {
	for {
		select {
		case client := <-g.register:
			g.clients[client.SocketID] = client

		case client := <-g.unregister:
			g.drop(client)

		case cmd := <-g.identify:
			g.apply(cmd)

		case cmd := <-g.membership:
			if cmd.join {
				for _, client := range g.users[cmd.userID] {
					g.joinLocal(client, cmd.roomID)
				}
			} else {
				for _, client := range g.users[cmd.userID] {
					g.leaveLocal(client, cmd.roomID)
				}
			}

		case cmd := <-g.broadcast:
			members := g.rooms[cmd.roomID]
			g.logger.Debug("local fan-out", "room_id", cmd.roomID, "sockets", len(members))
			for _, client := range members {
				select {
				case client.Send <- cmd.payload:
				default:
					// The socket's buffer is full; it is lagging or dead.
					// Drop the frame rather than stall the loop.
					g.logger.Warn("client send buffer full, dropping frame",
						"socket_id", client.SocketID, "room_id", cmd.roomID)
				}
			}

		case <-ctx.Done():
			for _, client := range g.clients {
				g.drop(client)
			}
			return
		}
	}
}

// apply attaches a user identity to a connected socket and joins it to the
// user's rooms. Repeated registration from the same socket converges to the
// same state.
func (g *Gateway) apply(cmd identifyCmd) {
	client, ok := g.clients[cmd.client.SocketID]
	if !ok {
		// The socket disconnected while the directory writes were in
		// flight.
		return
	}
	client.userID = cmd.userID

	if g.users[cmd.userID] == nil {
		g.users[cmd.userID] = make(map[string]*Client)
	}
	g.users[cmd.userID][client.SocketID] = client

	for _, roomID := range cmd.rooms {
		g.joinLocal(client, roomID)
	}
	g.logger.Info("user registered", "user_id", cmd.userID, "socket_id", client.SocketID)
}

func (g *Gateway) joinLocal(client *Client, roomID string) {
	if g.rooms[roomID] == nil {
		g.rooms[roomID] = make(map[string]*Client)
	}
	g.rooms[roomID][client.SocketID] = client

	if g.clientRooms[client.SocketID] == nil {
		g.clientRooms[client.SocketID] = make(map[string]struct{})
	}
	g.clientRooms[client.SocketID][roomID] = struct{}{}
}

func (g *Gateway) leaveLocal(client *Client, roomID string) {
	delete(g.rooms[roomID], client.SocketID)
	if len(g.rooms[roomID]) == 0 {
		delete(g.rooms, roomID)
	}
	delete(g.clientRooms[client.SocketID], roomID)
}

// drop removes a client from every local structure and closes its send
// channel, terminating its write pump.
func (g *Gateway) drop(client *Client) {
	if _, ok := g.clients[client.SocketID]; !ok {
		return
	}
	delete(g.clients, client.SocketID)

	for roomID := range g.clientRooms[client.SocketID] {
		delete(g.rooms[roomID], client.SocketID)
		if len(g.rooms[roomID]) == 0 {
			delete(g.rooms, roomID)
		}
	}
	delete(g.clientRooms, client.SocketID)

	if client.userID != "" {
		delete(g.users[client.userID], client.SocketID)
		if len(g.users[client.userID]) == 0 {
			delete(g.users, client.userID)
		}
	}
	close(client.Send)
}

// HandleConnect admits a new socket. No directory writes happen yet; the
// gateway waits for an explicit register event.
func (g *Gateway) HandleConnect(client *Client) {
	g.register <- client
}

// HandleRegister records the connection in the shared directory and joins
// the socket locally to each of the user's rooms. Directory failures are
// logged and absorbed: a failed presence write must not crash the socket.
func (g *Gateway) HandleRegister(ctx context.Context, client *Client, userID string) {
	if err := g.directory.AddConnection(ctx, userID, client.SocketID, g.serverID); err != nil {
		g.logger.Error("presence write failed", "user_id", userID, "error", err)
	}

	rooms, err := g.directory.UserRooms(ctx, userID)
	if err != nil {
		g.logger.Error("room lookup failed", "user_id", userID, "error", err)
	}

	g.identify <- identifyCmd{client: client, userID: userID, rooms: rooms}
}

// HandleDisconnect reverse-looks-up the user and removes the connection
// from the directory. A missing mapping is not an error.
func (g *Gateway) HandleDisconnect(ctx context.Context, client *Client) {
	userID, err := g.directory.UserIDForSocket(ctx, client.SocketID)
	if err != nil {
		g.logger.Error("socket lookup failed", "socket_id", client.SocketID, "error", err)
	}
	if userID != "" {
		if err := g.directory.RemoveConnection(ctx, userID, client.SocketID); err != nil {
			g.logger.Error("presence removal failed", "user_id", userID, "error", err)
		}
	}
	g.unregister <- client
}

// JoinRoom joins every local socket of the user to the room. The shared
// membership write is the caller's responsibility; this only aligns local
// state on this process.
func (g *Gateway) JoinRoom(userID, roomID string) {
	g.membership <- membershipCmd{userID: userID, roomID: roomID, join: true}
}

// LeaveRoom removes every local socket of the user from the room.
func (g *Gateway) LeaveRoom(userID, roomID string) {
	g.membership <- membershipCmd{userID: userID, roomID: roomID, join: false}
}

// BroadcastToRoom delivers payload to every socket locally joined to the
// room on this process.
func (g *Gateway) BroadcastToRoom(roomID, event string, data any) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		g.logger.Error("encode broadcast failed", "room_id", roomID, "error", err)
		return
	}
	g.broadcast <- broadcastCmd{roomID: roomID, payload: payload}
}
