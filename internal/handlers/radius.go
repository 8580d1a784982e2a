package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/radgate/backend/internal/aaa"
)

// RadiusHandler exposes the AAA engine to FreeRADIUS's REST module.
type RadiusHandler struct {
	engine *aaa.Engine
}

func NewRadiusHandler(engine *aaa.Engine) *RadiusHandler {
	return &RadiusHandler{engine: engine}
}

// Register mounts the /radius routes.
func (h *RadiusHandler) Register(app *fiber.App) {
	group := app.Group("/radius")
	group.Post("/authorize", h.Authorize)
	group.Post("/authenticate", h.Authenticate)
	group.Post("/accounting", h.Accounting)
	group.Post("/post-auth", h.PostAuth)
}

// Authorize answers an Access-Request: 200 with the reply attribute map,
// or 403 with a Reply-Message.
func (h *RadiusHandler) Authorize(c *fiber.Ctx) error {
	var req aaa.AuthRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"Reply-Message": "Malformed request",
		})
	}

	decision, err := h.engine.Authorize(req)
	if err != nil {
		log.Printf("Authorize error for %s: %v", req.Username, err)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"Reply-Message": "Internal error",
		})
	}
	if !decision.Accept {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"Reply-Message": decision.Reason,
		})
	}
	return c.JSON(decision.Attributes)
}

// Authenticate is the password-only check: 200 empty body or 403.
func (h *RadiusHandler) Authenticate(c *fiber.Ctx) error {
	var req aaa.AuthRequest
	if err := c.BodyParser(&req); err != nil {
		return c.SendStatus(fiber.StatusForbidden)
	}

	ok, err := h.engine.Authenticate(req)
	if err != nil {
		log.Printf("Authenticate error for %s: %v", req.Username, err)
		return c.SendStatus(fiber.StatusForbidden)
	}
	if !ok {
		return c.SendStatus(fiber.StatusForbidden)
	}
	return c.JSON(fiber.Map{})
}

// Accounting always answers 204: accounting must never block the NAS, so
// processing errors are logged and swallowed.
func (h *RadiusHandler) Accounting(c *fiber.Ctx) error {
	var req aaa.AcctRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Acct: malformed request body: %v", err)
		return c.SendStatus(fiber.StatusNoContent)
	}

	if err := h.engine.Accounting(req); err != nil {
		log.Printf("Acct: processing error for %s/%s: %v", req.Username, req.SessionID, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PostAuth records the final auth outcome to the audit trail. Always 204.
func (h *RadiusHandler) PostAuth(c *fiber.Ctx) error {
	var entry aaa.PostAuthEntry
	if err := c.BodyParser(&entry); err != nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	if err := h.engine.PostAuth(entry); err != nil {
		log.Printf("PostAuth: failed to record entry for %s: %v", entry.Username, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
