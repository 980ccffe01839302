package handlers

import (
	"cat-game-backend/middleware"
	"cat-game-backend/services"

	"github.com/gofiber/fiber/v2"
)

// GameServices groups the player-facing feature services.
type GameServices struct {
	Tasks        *services.TaskService
	Quiz         *services.QuizService
	Simulation   *services.SimulationService
	DailyRewards *services.DailyRewardService
	Failures     *services.FailureService
	Leaderboards *services.LeaderboardService
	Content      *services.ContentService
}

type GameHandler struct {
	GameServices
}

func SetupGameRoutes(app fiber.Router, guard Guard, svc GameServices) {
	h := &GameHandler{GameServices: svc}

	// 🔓 Public
	app.Get("/config/frontend/", h.frontendConfig)

	// ✅ Tasks
	app.Get("/tasks/", guard.Then(h.listTasks)...)
	app.Post("/tasks/toggle/", guard.Then(h.toggleTask)...)

	// 🧠 Quiz
	app.Get("/quiz/", guard.Then(h.latestQuestion)...)
	app.Get("/quiz/random/", guard.Then(h.randomQuestions)...)
	app.Get("/quiz/history/", guard.Then(h.quizHistory)...)
	app.Get("/scores/", guard.Then(h.failureScores)...)
	app.Post("/scores/", guard.Then(h.submitQuiz)...)

	// 🎮 Simulation
	app.Get("/simulation/", guard.Then(h.simulationConfig)...)
	app.Post("/simulation/start/", guard.Then(h.startSimulation)...)
	app.Post("/simulation/reward/", guard.Then(h.simulationReward)...)
	app.Post("/simulation/ad-reward/", guard.Then(h.simulationAdReward)...)

	// 📅 Daily rewards
	app.Get("/daily-rewards/", guard.Then(h.dailyStatus)...)
	app.Post("/daily-rewards/claim/", guard.Then(h.claimDaily)...)

	// 💥 Failures
	app.Get("/failures/", guard.Then(h.listFailures)...)
	app.Post("/failures/start/", guard.Then(h.startFailure)...)
	app.Post("/failures/bonus/", guard.Then(h.buyBonus)...)
	app.Post("/failures/complete/", guard.Then(h.completeFailure)...)

	// 🏆 Leaderboards
	app.Get("/leaderboard/", guard.Then(h.failureLeaderboard)...)
	app.Get("/leaderboard/all-time/", guard.Then(h.allTimeLeaderboard)...)

	// 📜 Content
	app.Get("/rules/", guard.Then(h.rules)...)
	app.Get("/ads/", guard.Then(h.adButtons)...)
	app.Post("/ads/:id/claim/", guard.Then(h.claimAdButton)...)
}

func (h *GameHandler) listTasks(c *fiber.Ctx) error {
	tasks, err := h.Tasks.List(c.UserContext(), middleware.ProfileID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tasks)
}

func (h *GameHandler) toggleTask(c *fiber.Ctx) error {
	var req struct {
		TaskID      string `json:"task_id"`
		IsCompleted *bool  `json:"is_completed"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	completed := req.IsCompleted == nil || *req.IsCompleted
	res, err := h.Tasks.Toggle(c.UserContext(), middleware.ProfileID(c), req.TaskID, completed)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *GameHandler) latestQuestion(c *fiber.Ctx) error {
	q, err := h.Quiz.Latest(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(q)
}

func (h *GameHandler) randomQuestions(c *fiber.Ctx) error {
	questions, err := h.Quiz.Random(c.UserContext(), c.QueryInt("count", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(questions)
}

func (h *GameHandler) quizHistory(c *fiber.Ctx) error {
	attempts, err := h.Quiz.History(c.UserContext(), middleware.ProfileID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(attempts)
}

func (h *GameHandler) submitQuiz(c *fiber.Ctx) error {
	var req services.QuizSubmission
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	res, err := h.Quiz.Submit(c.UserContext(), middleware.ProfileID(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *GameHandler) simulationConfig(c *fiber.Ctx) error {
	cfg, err := h.Simulation.Config(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cfg)
}

func (h *GameHandler) startSimulation(c *fiber.Ctx) error {
	res, err := h.Simulation.Start(c.UserContext(), middleware.ProfileID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *GameHandler) simulationReward(c *fiber.Ctx) error {
	var req struct {
		Score *int64 `json:"score"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if req.Score == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "score is required"})
	}
	res, err := h.Simulation.ClaimReward(c.UserContext(), middleware.ProfileID(c), *req.Score)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *GameHandler) simulationAdReward(c *fiber.Ctx) error {
	var req struct {
		AssignmentID string `json:"assignment_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	res, err := h.Simulation.ClaimAdReward(c.UserContext(), middleware.ProfileID(c), req.AssignmentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *GameHandler) dailyStatus(c *fiber.Ctx) error {
	status, err := h.DailyRewards.Status(c.UserContext(), middleware.ProfileID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

func (h *GameHandler) claimDaily(c *fiber.Ctx) error {
	res, err := h.DailyRewards.Claim(c.UserContext(), middleware.ProfileID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *GameHandler) listFailures(c *fiber.Ctx) error {
	failures, err := h.Failures.List(c.UserContext(), middleware.ProfileID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(failures)
}

func (h *GameHandler) startFailure(c *fiber.Ctx) error {
	var req struct {
		FailureID string `json:"failure_id"`
	}
	if err := parseOptionalBody(c, &req); err != nil {
		return badBody(c)
	}
	run, err := h.Failures.Start(c.UserContext(), middleware.ProfileID(c), req.FailureID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(run)
}

func (h *GameHandler) failureScores(c *fiber.Ctx) error {
	scores, err := h.Failures.Scores(c.UserContext(), middleware.ProfileID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(scores)
}

func (h *GameHandler) buyBonus(c *fiber.Ctx) error {
	var req struct {
		FailureID string `json:"failure_id"`
		BonusType string `json:"bonus_type"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	run, err := h.Failures.BuyBonus(c.UserContext(), middleware.ProfileID(c), req.FailureID, req.BonusType)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(run)
}

func (h *GameHandler) completeFailure(c *fiber.Ctx) error {
	var req services.ScoreInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	entry, err := h.Failures.Complete(c.UserContext(), middleware.ProfileID(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

func (h *GameHandler) failureLeaderboard(c *fiber.Ctx) error {
	board, err := h.Leaderboards.ForFailure(c.UserContext(), middleware.ProfileID(c), c.Query("failure_id"), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(board)
}

func (h *GameHandler) allTimeLeaderboard(c *fiber.Ctx) error {
	board, err := h.Leaderboards.AllTime(c.UserContext(), middleware.ProfileID(c), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(board)
}

func (h *GameHandler) rules(c *fiber.Ctx) error {
	rules, err := h.Content.Rules(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rules)
}

func (h *GameHandler) adButtons(c *fiber.Ctx) error {
	buttons, err := h.Content.AdButtons(c.UserContext(), middleware.ProfileID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(buttons)
}

func (h *GameHandler) claimAdButton(c *fiber.Ctx) error {
	res, err := h.Content.ClaimAdButton(c.UserContext(), middleware.ProfileID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *GameHandler) frontendConfig(c *fiber.Ctx) error {
	cfg, err := h.Content.FrontendConfig(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cfg)
}
