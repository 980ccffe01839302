package handlers

import (
	"cat-game-backend/middleware"
	"cat-game-backend/services"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	Admin *services.AdminService
}

func SetupAdminRoutes(app fiber.Router, adminToken string, admin *services.AdminService) {
	h := &AdminHandler{Admin: admin}

	// 🔐 Operator API, bearer ADMIN_API_TOKEN
	group := app.Group("/admin", middleware.AdminAuth(adminToken))

	group.Post("/failures", h.createFailure)
	group.Delete("/failures/:id", h.deleteFailure)
	group.Post("/failures/:id/bans", h.banFromFailure)
	group.Post("/promo-codes", h.createPromo)
	group.Post("/profiles/:id/ban", h.setBanned(true))
	group.Delete("/profiles/:id/ban", h.setBanned(false))
	group.Put("/frontend-config", h.updateFrontendConfig)
	group.Post("/media", h.uploadMedia)
}

func (h *AdminHandler) createFailure(c *fiber.Ctx) error {
	var req services.FailureInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	failure, err := h.Admin.CreateFailure(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(failure)
}

func (h *AdminHandler) deleteFailure(c *fiber.Ctx) error {
	if err := h.Admin.DeleteFailure(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AdminHandler) banFromFailure(c *fiber.Ctx) error {
	var req struct {
		ProfileID string `json:"profile_id"`
		Reason    string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	ban, err := h.Admin.BanFromFailure(c.UserContext(), req.ProfileID, c.Params("id"), req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ban)
}

func (h *AdminHandler) createPromo(c *fiber.Ctx) error {
	var req services.PromoInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	promo, err := h.Admin.CreatePromo(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(promo)
}

func (h *AdminHandler) setBanned(banned bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := h.Admin.SetBanned(c.UserContext(), c.Params("id"), banned); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"is_banned": banned})
	}
}

func (h *AdminHandler) updateFrontendConfig(c *fiber.Ctx) error {
	var req struct {
		ScreenTexture string `json:"screen_texture"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	cfg, err := h.Admin.UpdateFrontendConfig(c.UserContext(), req.ScreenTexture)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cfg)
}

func (h *AdminHandler) uploadMedia(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to read file"})
	}
	defer file.Close()

	url, err := h.Admin.UploadMedia(c.UserContext(), c.FormValue("folder"), fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}
