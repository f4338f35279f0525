package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/etag"
)

// PrivateCacheHeaders lets the signed-in member's browser reuse a GET reply
// for maxAge and revalidate it by weak ETag afterwards. Responses vary by
// credentials so shared caches never mix members.
func PrivateCacheHeaders(maxAge time.Duration) fiber.Handler {
	tag := etag.New(etag.Config{Weak: true})
	policy := fmt.Sprintf("private, max-age=%d", int(maxAge/time.Second))

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet {
			return c.Next()
		}
		c.Vary(fiber.HeaderAuthorization, fiber.HeaderCookie)

		if err := tag(c); err != nil {
			return err
		}

		switch c.Response().StatusCode() {
		case fiber.StatusOK, fiber.StatusNotModified:
			c.Set(fiber.HeaderCacheControl, policy)
		default:
			c.Set(fiber.HeaderCacheControl, "no-store")
		}
		return nil
	}
}

// NoCacheHeaders forbids storing the reply anywhere. Balances and tokens use it.
func NoCacheHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-store, max-age=0")
		c.Set(fiber.HeaderPragma, "no-cache")
		return c.Next()
	}
}
