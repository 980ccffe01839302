package handlers

import (
	"cat-game-backend/middleware"
	"cat-game-backend/services"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Accounts    *services.AccountService
	Redemptions *services.RedemptionService
}

func SetupAuthRoutes(app fiber.Router, guard Guard, accounts *services.AccountService, redemptions *services.RedemptionService) {
	h := &AuthHandler{Accounts: accounts, Redemptions: redemptions}

	// 🔓 Public
	app.Post("/auth/telegram/", h.telegramLogin)
	app.Post("/auth/refresh/", h.refresh)

	// 🔐 Player
	app.Get("/auth/me/", guard.Then(h.me)...)
	app.Post("/auth/legal-check/", guard.Then(h.legalCheck)...)
	app.Post("/auth/referral/", guard.Then(h.referral)...)
	app.Post("/auth/promo/", guard.Then(h.promo)...)
}

func (h *AuthHandler) telegramLogin(c *fiber.Ctx) error {
	var req struct {
		InitData   string `json:"init_data"`
		TelegramID *int64 `json:"telegram_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if req.InitData == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "init_data is required"})
	}

	res, err := h.Accounts.LoginWithTelegram(c.UserContext(), req.InitData, req.TelegramID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(loginBody(res))
}

// loginBody carries the same profile view GET /auth/me/ returns.
func loginBody(res *services.LoginResult) fiber.Map {
	return fiber.Map{
		"access":  res.Tokens.Access,
		"refresh": res.Tokens.Refresh,
		"user":    res.View,
	}
}

func (h *AuthHandler) refresh(c *fiber.Ctx) error {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if req.Refresh == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "refresh is required"})
	}

	access, err := h.Accounts.Refresh(c.UserContext(), req.Refresh)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"access": access})
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	view, err := h.Accounts.ProfileView(c.UserContext(), middleware.ProfileID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

func (h *AuthHandler) legalCheck(c *fiber.Ctx) error {
	accepted, err := h.Accounts.CheckLegal(c.UserContext(), middleware.ProfileID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"accepted": accepted})
}

type codeRequest struct {
	Code string `json:"code"`
}

func (h *AuthHandler) referral(c *fiber.Ctx) error {
	var req codeRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	res, err := h.Redemptions.ApplyReferral(c.UserContext(), middleware.ProfileID(c), req.Code)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *AuthHandler) promo(c *fiber.Ctx) error {
	var req codeRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	res, err := h.Redemptions.RedeemPromo(c.UserContext(), middleware.ProfileID(c), req.Code)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}
