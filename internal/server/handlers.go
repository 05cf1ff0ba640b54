package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/domain"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/middleware"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/store"
)

type sendMessageRequest struct {
	SenderID string           `json:"senderId"`
	DestID   string           `json:"destId"`
	RoomID   string           `json:"roomId"`
	Content  string           `json:"content" validate:"required"`
	Metadata *domain.Metadata `json:"metadata"`
}

type sendMessageResponse struct {
	Status  string             `json:"status"`
	Message domain.ChatMessage `json:"message"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// sendMessage accepts a message for relay. The sender is always the
// verified token subject when auth is enabled; the body's senderId only
// matters in development.
func (s *Server) sendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	senderID := req.SenderID
	if verified, ok := middleware.UserIDFromContext(c.Request().Context()); ok {
		senderID = verified
	}

	msg := domain.ChatMessage{
		SenderID: senderID,
		DestID:   req.DestID,
		RoomID:   req.RoomID,
		Content:  req.Content,
		Metadata: req.Metadata,
	}

	persisted, err := s.relay.SendMessage(c.Request().Context(), msg)
	if err != nil {
		switch {
		case domain.IsValidation(err):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrBrokerUnavailable):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "message broker unavailable")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to relay message")
		}
	}

	return c.JSON(http.StatusAccepted, sendMessageResponse{Status: "accepted", Message: persisted})
}

// roomHistory returns a room's messages, newest first.
func (s *Server) roomHistory(c echo.Context) error {
	opts, err := queryOptions(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	messages, err := s.messages.FindByRoomID(c.Request().Context(), c.Param("roomId"), opts)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load messages")
	}
	return c.JSON(http.StatusOK, messages)
}

// userHistory returns a user's messages grouped by room.
func (s *Server) userHistory(c echo.Context) error {
	messages, err := s.messages.FindByUser(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load messages")
	}
	return c.JSON(http.StatusOK, messages)
}

type privateRoomRequest struct {
	User1ID string `json:"user1Id" validate:"required"`
	User2ID string `json:"user2Id" validate:"required"`
}

func (s *Server) createPrivateRoom(c echo.Context) error {
	var req privateRoomRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	r, err := s.rooms.CreatePrivateRoom(c.Request().Context(), req.User1ID, req.User2ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create room")
	}
	for _, userID := range r.Participants {
		s.gateway.JoinRoom(userID, r.ID)
	}
	return c.JSON(http.StatusOK, r)
}

type eventRoomRequest struct {
	EventID string `json:"eventId" validate:"required"`
}

func (s *Server) createEventRoom(c echo.Context) error {
	var req eventRoomRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	creator, _ := middleware.UserIDFromContext(c.Request().Context())
	r, err := s.rooms.CreateEventRoom(c.Request().Context(), req.EventID, creator)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create room")
	}
	if creator != "" {
		s.gateway.JoinRoom(creator, r.ID)
	}
	return c.JSON(http.StatusOK, r)
}

type jamRoomRequest struct {
	JamID string `json:"jamId" validate:"required"`
}

func (s *Server) createJamRoom(c echo.Context) error {
	var req jamRoomRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	creator, _ := middleware.UserIDFromContext(c.Request().Context())
	r, err := s.rooms.CreateJamRoom(c.Request().Context(), req.JamID, creator)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create room")
	}
	if creator != "" {
		s.gateway.JoinRoom(creator, r.ID)
	}
	return c.JSON(http.StatusOK, r)
}

type membershipRequest struct {
	UserID string `json:"userId"`
}

// joinRoom adds a user to a room in the shared directory and aligns local
// join state on this process.
func (s *Server) joinRoom(c echo.Context) error {
	userID, err := s.membershipUser(c)
	if err != nil {
		return err
	}
	roomID := c.Param("roomId")

	if err := s.rooms.Join(c.Request().Context(), userID, roomID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to join room")
	}
	s.gateway.JoinRoom(userID, roomID)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) leaveRoom(c echo.Context) error {
	userID, err := s.membershipUser(c)
	if err != nil {
		return err
	}
	roomID := c.Param("roomId")

	if err := s.rooms.Leave(c.Request().Context(), userID, roomID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to leave room")
	}
	s.gateway.LeaveRoom(userID, roomID)
	return c.NoContent(http.StatusNoContent)
}

// membershipUser prefers the verified token subject, falling back to the
// request body in development.
func (s *Server) membershipUser(c echo.Context) (string, error) {
	if verified, ok := middleware.UserIDFromContext(c.Request().Context()); ok {
		return verified, nil
	}
	var req membershipRequest
	if err := c.Bind(&req); err == nil && req.UserID != "" {
		return req.UserID, nil
	}
	return "", echo.NewHTTPError(http.StatusBadRequest, "userId is required")
}

func (s *Server) getUser(c echo.Context) error {
	user, err := s.users.GetByProviderID(c.Request().Context(), c.Param("providerId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "failed to fetch user")
	}
	return c.JSON(http.StatusOK, user)
}

// queryOptions parses before/after (RFC3339) and limit.
func queryOptions(c echo.Context) (store.QueryOptions, error) {
	var opts store.QueryOptions

	if v := c.QueryParam("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, errors.New("before must be an RFC3339 timestamp")
		}
		opts.Before = t
	}
	if v := c.QueryParam("after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, errors.New("after must be an RFC3339 timestamp")
		}
		opts.After = t
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errors.New("limit must be a non-negative integer")
		}
		opts.Limit = n
	}
	return opts, nil
}
