package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader propagates the request id between client and server.
	RequestIDHeader = "X-Request-ID"
	// RequestIDLocalKey is where the request id lives in Fiber's locals.
	RequestIDLocalKey = "request_id"
)

// RequestID ensures every request carries an id: an incoming X-Request-ID is
// reused, otherwise a fresh UUID is generated. The id is stored in the
// context locals and echoed on the response header.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(RequestIDLocalKey, id)
		c.Set(RequestIDHeader, id)

		return c.Next()
	}
}
