package handlers

import (
	"errors"
	"log"

	"cat-game-backend/middleware"
	"cat-game-backend/services"
	"cat-game-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Guard is the middleware chain in front of player routes.
type Guard []fiber.Handler

// Then returns the chain followed by h, ready to spread into a route.
func (g Guard) Then(h fiber.Handler) []fiber.Handler {
	chain := make([]fiber.Handler, 0, len(g)+1)
	chain = append(chain, g...)
	return append(chain, h)
}

// NewGuard requires a valid access token from a profile that is not banned.
func NewGuard(tokens *services.TokenService, bans middleware.BanChecker) Guard {
	return Guard{middleware.JWTAuth(tokens), middleware.NotBanned(bans)}
}

var kindStatus = map[services.ErrorKind]int{
	services.KindValidation:     fiber.StatusBadRequest,
	services.KindAuthentication: fiber.StatusUnauthorized,
	services.KindForbidden:      fiber.StatusForbidden,
	services.KindNotFound:       fiber.StatusNotFound,
	services.KindConflict:       fiber.StatusConflict,
}

// respondError turns a service error into its HTTP response.
func respondError(c *fiber.Ctx, err error) error {
	var (
		svcErr       *services.Error
		insufficient *services.InsufficientBalanceError
		integration  *services.IntegrationError
	)

	switch {
	case utils.IsInitDataError(err):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &insufficient):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    "insufficient balance",
			"balance":  insufficient.Balance,
			"required": insufficient.Required,
		})
	case errors.As(err, &integration):
		log.Printf("❌ [%s] %v", integration.Service, integration.Err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": integration.Error()})
	case errors.As(err, &svcErr):
		status, ok := kindStatus[svcErr.Kind]
		if !ok {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{"error": svcErr.Message})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}

	log.Printf("❌ %s %s failed: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
}

// parseOptionalBody accepts an empty body and leaves dst untouched.
func parseOptionalBody(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(dst)
}
