package middleware

import (
	"crypto/subtle"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/config"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// StaffRequired lets a request through when it carries the configured
// X-Admin-Token or when the resolved identity is staff tier. It must run
// after ResolveIdentity.
func StaffRequired(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.AdminToken != "" {
			if given := c.Get("X-Admin-Token"); given != "" &&
				subtle.ConstantTimeCompare([]byte(given), []byte(cfg.AdminToken)) == 1 {
				c.Locals(localStaffVia, "admin_token")
				return c.Next()
			}
		}

		id, ok := GetIdentity(c)
		if !ok || id.AccountID == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		if !id.IsStaff() {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Staff access required",
			})
		}

		c.Locals(localStaffVia, "account")
		return c.Next()
	}
}
