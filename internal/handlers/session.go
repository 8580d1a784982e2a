package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/radgate/backend/internal/radius"
)

// SessionHandler exposes session termination: disconnect every open session
// of a user, or one specific accounting session.
type SessionHandler struct {
	terminator *radius.Terminator
}

func NewSessionHandler(terminator *radius.Terminator) *SessionHandler {
	return &SessionHandler{terminator: terminator}
}

// Register mounts the /sessions routes.
func (h *SessionHandler) Register(app *fiber.App) {
	app.Post("/sessions/disconnect", h.Disconnect)
}

type disconnectRequest struct {
	Username  string `json:"username"`
	SessionID string `json:"session_id"`
}

// Disconnect targets a session id when given, otherwise every open session
// of the username. The result string aggregates per-session outcomes.
func (h *SessionHandler) Disconnect(c *fiber.Ctx) error {
	var req disconnectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	var result string
	var err error
	switch {
	case req.SessionID != "":
		result, err = h.terminator.DisconnectSession(req.SessionID)
	case req.Username != "":
		result, err = h.terminator.DisconnectUser(req.Username)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "username or session_id is required")
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"result": result})
}
