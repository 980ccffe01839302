package handlers

import (
	"cat-game-backend/middleware"
	"cat-game-backend/services"

	"github.com/gofiber/fiber/v2"
)

type AdsgramHandler struct {
	Adsgram *services.AdsgramService
}

func SetupAdsgramRoutes(app fiber.Router, guard Guard, adsgram *services.AdsgramService) {
	h := &AdsgramHandler{Adsgram: adsgram}

	app.Post("/adsgram/request/", guard.Then(h.request)...)
	app.Post("/adsgram/complete/", guard.Then(h.complete)...)
	app.Get("/adsgram/block/", guard.Then(h.block)...)
}

func (h *AdsgramHandler) request(c *fiber.Ctx) error {
	var req struct {
		PlacementID string `json:"placement_id"`
	}
	if err := parseOptionalBody(c, &req); err != nil {
		return badBody(c)
	}
	assignment, err := h.Adsgram.Request(c.UserContext(), middleware.ProfileID(c), req.PlacementID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(assignment)
}

func (h *AdsgramHandler) complete(c *fiber.Ctx) error {
	var req struct {
		AssignmentID string         `json:"assignment_id"`
		Payload      map[string]any `json:"payload"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	assignment, err := h.Adsgram.Complete(c.UserContext(), middleware.ProfileID(c), req.AssignmentID, req.Payload)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(assignment)
}

func (h *AdsgramHandler) block(c *fiber.Ctx) error {
	block, err := h.Adsgram.ActiveBlock(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(block)
}
