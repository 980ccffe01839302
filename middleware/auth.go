package middleware

import (
	"context"
	"errors"
	"log"
	"strings"

	"cat-game-backend/services"

	"github.com/gofiber/fiber/v2"
)

// Locals set by JWTAuth.
const (
	LocalProfileID = "profile_id"
	LocalUserID    = "user_id"
	LocalStaff     = "staff"
)

// JWTAuth accepts "Authorization: Bearer <access token>" and attaches the
// caller's identity to the request.
func JWTAuth(tokens *services.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication credentials were not provided",
			})
		}

		claims, err := tokens.Parse(strings.TrimSpace(token), services.TokenTypeAccess)
		if err != nil {
			log.Printf("🚫 [AUTH] rejected token on %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": services.ErrInvalidToken.Error(),
			})
		}

		c.Locals(LocalProfileID, claims.Subject)
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalStaff, claims.Staff)
		return c.Next()
	}
}

// BanChecker reports whether a profile may not use the game.
type BanChecker interface {
	IsBanned(ctx context.Context, profileID string) (bool, error)
}

// NotBanned must run after JWTAuth. Staff tokens skip the lookup.
func NotBanned(checker BanChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if staff, _ := c.Locals(LocalStaff).(bool); staff {
			return c.Next()
		}

		banned, err := checker.IsBanned(c.UserContext(), ProfileID(c))
		if errors.Is(err, services.ErrProfileNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": services.ErrInvalidToken.Error()})
		}
		if err != nil {
			log.Printf("❌ [AUTH] ban lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
		}
		if banned {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": services.ErrBanned.Error()})
		}
		return c.Next()
	}
}

// ProfileID returns the authenticated profile id, or "" on public routes.
func ProfileID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalProfileID).(string)
	return id
}
