package handlers

import (
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/dto"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req, false); err != nil {
		return respondError(c, err)
	}

	resp, err := h.authService.Register(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req, false); err != nil {
		return respondError(c, err)
	}

	resp, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(resp)
}

// Me reports the tier the identity resolver assigned to this caller.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	id, _ := middleware.GetIdentity(c)
	if id.AccountID == nil {
		return respondError(c, services.ErrInvalidToken)
	}
	return c.JSON(dto.MeResponse{
		AccountID: id.AccountID,
		Role:      id.Role,
		Tier:      id.Tier,
	})
}
