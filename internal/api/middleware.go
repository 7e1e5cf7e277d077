package api

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"subextract/internal/services"
)

const requestIDHeader = "X-Request-ID"

// requestID tags every request with an id, reusing a sane client value.
func requestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Locals("requestid", id)
		c.Set(requestIDHeader, id)
		c.SetUserContext(services.WithRequestID(c.UserContext(), id))
		return c.Next()
	}
}

// bearerAuth rejects requests without the configured token. An empty token
// disables authentication.
func bearerAuth(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}
		provided := ""
		if header := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(header, "Bearer ") {
			provided = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		} else if websocket.IsWebSocketUpgrade(c) {
			provided = c.Query("token")
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}
		return c.Next()
	}
}

func requireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

func ownerID(c *fiber.Ctx) (string, error) {
	owner := strings.TrimSpace(c.Get("X-Owner-ID"))
	if owner == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "X-Owner-ID header is required")
	}
	return owner, nil
}

func targetID(c *fiber.Ctx, owner string) string {
	if target := strings.TrimSpace(c.Get("X-Target-ID")); target != "" {
		return target
	}
	return owner
}
