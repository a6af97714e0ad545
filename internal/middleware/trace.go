package middleware

import (
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/logging"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Trace copies the request id set by the requestid middleware into the user
// context so service logs carry it as trace_id. It must run after requestid.
func Trace() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok && id != "" {
			c.SetUserContext(logging.WithTraceID(c.UserContext(), id))
		}
		return c.Next()
	}
}
