package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	store string
	ping  func() error
}

// NewHealthHandler takes the store driver name and a ping for it. A nil ping
// means there is no external database to check.
func NewHealthHandler(store string, ping func() error) *HealthHandler {
	return &HealthHandler{store: store, ping: ping}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "ok"
	dbStatus := "not configured"
	if h.ping != nil {
		dbStatus = "ok"
		if err := h.ping(); err != nil {
			dbStatus = "unhealthy: " + err.Error()
			status = "degraded"
		}
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Store:     h.store,
	})
}
