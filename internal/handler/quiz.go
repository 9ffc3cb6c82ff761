package handler

import (
	"wiki-quiz/internal/domain"
	"wiki-quiz/internal/dto"
	"wiki-quiz/internal/logger"
	"wiki-quiz/internal/middleware"
	"wiki-quiz/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// QuizHandler handles quiz-related HTTP requests
type QuizHandler struct {
	service service.QuizService
}

// NewQuizHandler creates a new QuizHandler instance
func NewQuizHandler(service service.QuizService) *QuizHandler {
	return &QuizHandler{
		service: service,
	}
}

// RegisterRoutes mounts the quiz endpoints on the /api group.
func RegisterRoutes(api fiber.Router, h *QuizHandler, vm *middleware.ValidationMiddleware) {
	api.Post("/generate", vm.ValidateGenerateRequest(), h.Generate)
	api.Get("/history", vm.ValidateHistoryParams(), h.History)
	api.Get("/detail/:id", h.Detail)
}

// Generate godoc
// @Summary Generate a quiz for an article
// @Description Returns the stored quiz for the URL, or fetches the article and generates one
// @Tags quiz
// @Accept json
// @Produce json
// @Param request body dto.GenerateRequest true "Article URL"
// @Success 200 {object} dto.QuizResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /generate [post]
func (h *QuizHandler) Generate(c *fiber.Ctx) error {
	req, ok := c.Locals(middleware.LocalGenerateRequest).(dto.GenerateRequest)
	if !ok {
		return domain.NewInvalidInputError("Invalid request body")
	}

	result, err := h.service.Generate(c.UserContext(), service.GenerateRequest{
		URL:     req.URL,
		Refresh: req.Refresh,
	})
	if err != nil {
		return err
	}

	logger.Get().Debug("Quiz generated",
		zap.Int64("id", result.Artifact.ID),
		zap.Bool("cached", result.Cached),
		zap.Bool("degraded", result.Degraded),
	)
	return c.JSON(dto.NewQuizResponse(result.Artifact, result.Cached, result.Degraded))
}

// History godoc
// @Summary List generated quizzes
// @Description Returns stored quizzes, newest first
// @Tags quiz
// @Produce json
// @Param limit query int false "Page size (1-100)" default(20)
// @Param offset query int false "Items to skip" default(0)
// @Success 200 {object} dto.HistoryResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /history [get]
func (h *QuizHandler) History(c *fiber.Ctx) error {
	limit, _ := c.Locals(middleware.LocalLimit).(int)
	offset, _ := c.Locals(middleware.LocalOffset).(int)

	summaries, err := h.service.List(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewHistoryResponse(summaries, limit, offset))
}

// Detail godoc
// @Summary Get one quiz
// @Description Returns a stored quiz by id
// @Tags quiz
// @Produce json
// @Param id path int true "Quiz entry ID"
// @Success 200 {object} dto.QuizResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /detail/{id} [get]
func (h *QuizHandler) Detail(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return domain.NewNotFoundError("Entry not found")
	}

	artifact, err := h.service.GetByID(c.UserContext(), int64(id))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewQuizResponse(artifact, true, artifact.Degraded()))
}

// Health godoc
// @Summary Health check
// @Description Pings the database and the cache
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /health [get]
func (h *QuizHandler) Health(c *fiber.Ctx) error {
	if err := h.service.Health(c.UserContext()); err != nil {
		logger.Get().Warn("Health check failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.HealthResponse{Status: "unavailable"})
	}
	return c.JSON(dto.HealthResponse{Status: "ok"})
}
