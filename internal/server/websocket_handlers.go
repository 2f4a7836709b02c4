package server

import (
	"encoding/json"
	"log/slog"

	"amber/internal/featureflags"
	"amber/internal/middleware"
	"amber/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// requireUpgrade rejects plain HTTP requests to the WebSocket endpoint.
func requireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired,
			models.NewValidationError("WebSocket upgrade required"))
	}
	return c.Next()
}

// requireRealtime hides the WebSocket endpoint when the realtime flag is off for the caller.
func (s *Server) requireRealtime(c *fiber.Ctx) error {
	if !s.featureFlags.Enabled(featureflags.Realtime, currentUserID(c)) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Realtime updates are disabled"))
	}
	return c.Next()
}

// WebsocketHandler handles GET /api/ws. Clients only receive: post and comment events
// arrive as {"type": ..., "payload": ...} envelopes.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals(localUserID).(uint)
		if !ok {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration refused",
				slog.Uint64("user_id", uint64(userID)),
				slog.String("error", err.Error()),
			)
			msg, _ := json.Marshal(fiber.Map{"error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, msg)
			_ = conn.Close()
			return
		}

		middleware.Logger.Info("websocket connected", slog.Uint64("user_id", uint64(userID)))
		go client.WritePump()
		client.ReadPump()
	})
}
