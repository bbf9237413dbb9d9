package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Handlers that set their own header win.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if string(c.Response().Header.Peek(fiber.HeaderCacheControl)) != "" {
			return err
		}
		// Errors may resolve once a proposal lands.
		if c.Response().StatusCode() != fiber.StatusOK {
			c.Set(fiber.HeaderCacheControl, "no-store")
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case path == "/graphql":
			ttl = "private, max-age=0"

		// Geodesic functions are pure.
		case strings.HasPrefix(path, "/v1/geo/"):
			ttl = "public, max-age=86400"

		// A registered set never changes.
		case isLocationSetPath(path):
			ttl = "public, max-age=86400, immutable"

		case path == "/v1/registry/stats" || path == "/v1/location-sets" || path == "/v1/currencies":
			ttl = "public, max-age=10"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}

func isLocationSetPath(path string) bool {
	for _, prefix := range []string{"/v1/location-sets/", "/v1/currencies/"} {
		if rest, ok := strings.CutPrefix(path, prefix); ok && strings.HasPrefix(rest, "0x") {
			return true
		}
	}
	return false
}
