package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AdminAuth validates the operator bearer token. With no token configured
// every admin request is refused.
func AdminAuth(expectedToken string) fiber.Handler {
	if expectedToken == "" {
		log.Println("⚠️  [ADMIN_AUTH] ADMIN_API_TOKEN is not set; admin API is disabled")
	}

	return func(c *fiber.Ctx) error {
		token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if !ok || expectedToken == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			log.Printf("❌ [ADMIN_AUTH] Invalid token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid admin token",
			})
		}
		return c.Next()
	}
}
