package middleware

import "github.com/gofiber/fiber/v2"

const (
	// UserIDHeader carries the id of the authenticated caller, set by the gateway.
	UserIDHeader = "X-User-ID"
	// UserIDLocalKey is the Fiber locals key holding the caller's user id.
	UserIDLocalKey = "user_id"
)

// UserID copies the gateway-provided user id into locals. Requests without
// the header pass through with an empty id.
func UserID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(UserIDLocalKey, c.Get(UserIDHeader))
		return c.Next()
	}
}

// UserIDFromLocals returns the id stored by UserID.
func UserIDFromLocals(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDLocalKey).(string)
	return id
}
