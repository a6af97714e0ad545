package middleware

import (
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/services"
	"github.com/gofiber/fiber/v2"
)

const (
	SessionHeader = "X-Session-Token"

	localIdentity = "identity"
	localStaffVia = "staff_via"
)

// ResolveIdentity attaches a services.Identity to every request and echoes
// the session token back so the client can reuse it.
func ResolveIdentity(resolver *services.IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := c.Get(SessionHeader)
		if session == "" {
			session = c.Query("session_id")
		}

		id := resolver.Resolve(c.UserContext(), services.ResolveInput{
			Authorization: c.Get(fiber.HeaderAuthorization),
			SessionToken:  session,
			ForwardedFor:  c.Get(fiber.HeaderXForwardedFor),
			RealIP:        c.Get("X-Real-IP"),
			RemoteAddr:    c.Context().RemoteAddr().String(),
		})

		SetIdentity(c, id)
		return c.Next()
	}
}

// SetIdentity stores id on the request and refreshes the session header.
func SetIdentity(c *fiber.Ctx, id services.Identity) {
	c.Locals(localIdentity, id)
	c.Set(SessionHeader, id.SessionToken)
}

func GetIdentity(c *fiber.Ctx) (services.Identity, bool) {
	id, ok := c.Locals(localIdentity).(services.Identity)
	return id, ok
}
