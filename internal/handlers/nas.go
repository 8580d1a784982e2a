package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/radgate/backend/internal/models"
	"github.com/radgate/backend/internal/radius"
	"github.com/radgate/backend/internal/routeros"
	"github.com/radgate/backend/internal/store"
)

// NasHandler drives the outbound router clients from the management API:
// API connection tests, arbitrary commands, reachability probes, the
// shared-secret probe and CoA rate-limit pushes.
type NasHandler struct {
	nas               *store.NasDevices
	apiTimeout        time.Duration
	reachabilityProbe time.Duration
}

func NewNasHandler(nas *store.NasDevices, apiTimeout, reachabilityProbe time.Duration) *NasHandler {
	return &NasHandler{nas: nas, apiTimeout: apiTimeout, reachabilityProbe: reachabilityProbe}
}

// Register mounts the /nas routes.
func (h *NasHandler) Register(app *fiber.App) {
	group := app.Group("/nas")
	group.Post("/test-connection", h.TestConnection)
	group.Get("/:id/reachable", h.CheckReachability)
	group.Post("/:id/command", h.ExecuteCommand)
	group.Post("/:id/test-secret", h.TestSecret)
	group.Post("/:id/sessions/:sessionId/rate-limit", h.UpdateRateLimit)
}

type testConnectionRequest struct {
	IPAddress  string `json:"ip_address"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	ApiPort    int    `json:"api_port"`
	ApiVersion string `json:"api_version"`
}

// TestConnection probes a router's API login with ad hoc credentials,
// before the NAS is saved.
func (h *NasHandler) TestConnection(c *fiber.Ctx) error {
	var req testConnectionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if req.ApiPort == 0 {
		req.ApiPort = 8728
	}

	client := &routeros.Client{
		Address:    fmt.Sprintf("%s:%d", req.IPAddress, req.ApiPort),
		Username:   req.Username,
		Password:   req.Password,
		APIVersion: req.ApiVersion,
		Timeout:    h.apiTimeout,
	}
	return c.JSON(client.TestConnection())
}

// CheckReachability is a bare TCP probe of the router's API port.
func (h *NasHandler) CheckReachability(c *fiber.Ctx) error {
	nas, err := h.loadNas(c)
	if err != nil {
		return err
	}

	reachable := routeros.CheckReachability(
		fmt.Sprintf("%s:%d", nas.IPAddress, nas.ApiPort), h.reachabilityProbe)
	return c.JSON(fiber.Map{"reachable": reachable})
}

type commandRequest struct {
	Command string            `json:"command"`
	Params  map[string]string `json:"params"`
}

// ExecuteCommand runs one RouterOS API command on the NAS and returns the
// result rows. A !trap still returns the partial rows alongside the error.
func (h *NasHandler) ExecuteCommand(c *fiber.Ctx) error {
	nas, err := h.loadNas(c)
	if err != nil {
		return err
	}

	var req commandRequest
	if err := c.BodyParser(&req); err != nil || req.Command == "" {
		return fiber.NewError(fiber.StatusBadRequest, "command is required")
	}

	client := &routeros.Client{
		Address:    fmt.Sprintf("%s:%d", nas.IPAddress, nas.ApiPort),
		Username:   nas.ApiUsername,
		Password:   nas.ApiPassword,
		APIVersion: nas.ApiVersion,
		Timeout:    h.apiTimeout,
	}
	rows, err := client.ExecuteCommand(req.Command, req.Params)
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error(), "data": rows})
	}
	return c.JSON(fiber.Map{"data": rows})
}

// TestSecret verifies the NAS's RADIUS shared secret via a CoA probe.
func (h *NasHandler) TestSecret(c *fiber.Ctx) error {
	nas, err := h.loadNas(c)
	if err != nil {
		return err
	}
	return c.JSON(radius.ProbeSecret(nas.IPAddress, nas.Secret))
}

type rateLimitRequest struct {
	Username  string `json:"username"`
	RateLimit string `json:"rate_limit"`
}

// UpdateRateLimit pushes a new rate limit to a live session via CoA.
func (h *NasHandler) UpdateRateLimit(c *fiber.Ctx) error {
	nas, err := h.loadNas(c)
	if err != nil {
		return err
	}

	var req rateLimitRequest
	if err := c.BodyParser(&req); err != nil || req.RateLimit == "" {
		return fiber.NewError(fiber.StatusBadRequest, "rate_limit is required")
	}

	coa := radius.NewCoAClient(nas)
	if err := coa.UpdateRateLimit(req.Username, c.Params("sessionId"), req.RateLimit); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *NasHandler) loadNas(c *fiber.Ctx) (*models.NasDevice, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid NAS id")
	}
	nas, err := h.nas.FindByID(uint(id))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	if nas == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "NAS not found")
	}
	return nas, nil
}
