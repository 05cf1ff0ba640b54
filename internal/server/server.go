// Package server wires the HTTP surface: REST endpoints for sending and
// reading messages, room membership, and the WebSocket upgrade path.
package server

import (
	"crypto/rsa"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/config"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/gateway"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/middleware"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/relay"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/room"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/store"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/users"
)

// Server holds the HTTP dependencies.
type Server struct {
	E   *echo.Echo
	cfg *config.Config

	relay    *relay.Service
	gateway  *gateway.Gateway
	rooms    *room.Service
	messages store.MessageStore
	users    *users.Service
}

// requestValidator adapts go-playground/validator to echo's Validator
// interface.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

// New builds the echo server and mounts the routes. authKey may be nil in
// development, which disables bearer-token verification.
func New(cfg *config.Config, relaySvc *relay.Service, gw *gateway.Gateway, rooms *room.Service, messages store.MessageStore, userSvc *users.Service, authKey *rsa.PublicKey) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	s := &Server{
		E:        e,
		cfg:      cfg,
		relay:    relaySvc,
		gateway:  gw,
		rooms:    rooms,
		messages: messages,
		users:    userSvc,
	}
	s.routes(authKey)
	return s
}

func (s *Server) routes(authKey *rsa.PublicKey) {
	s.E.GET("/healthz", s.health)
	s.E.GET("/ws", s.gateway.ServeWS)

	api := s.E.Group("/api")
	if authKey != nil {
		api.Use(middleware.RequireAuth(authKey))
	}

	api.POST("/messages", s.sendMessage)
	api.GET("/messages/room/:roomId", s.roomHistory)
	api.GET("/messages/user/:userId", s.userHistory)

	api.POST("/rooms/private", s.createPrivateRoom)
	api.POST("/rooms/event", s.createEventRoom)
	api.POST("/rooms/jam", s.createJamRoom)
	api.POST("/rooms/:roomId/join", s.joinRoom)
	api.POST("/rooms/:roomId/leave", s.leaveRoom)

	api.GET("/users/:providerId", s.getUser)
}
