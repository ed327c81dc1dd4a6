package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/opskpi/backend/internal/analyst"
	"github.com/opskpi/backend/internal/metrics"
	"github.com/opskpi/backend/internal/store"
	"github.com/opskpi/backend/pkg/logger"
)

const maxQuestionLength = 2000

type AskHandler struct {
	session *store.Session
	engine  *analyst.Engine
	model   string
}

func NewAskHandler(session *store.Session, engine *analyst.Engine, model string) *AskHandler {
	return &AskHandler{
		session: session,
		engine:  engine,
		model:   model,
	}
}

// HandleAsk answers one question about the current table. Failures map to
// plain-English messages and never disturb the loaded dataset.
func (h *AskHandler) HandleAsk(c *fiber.Ctx) error {
	var req struct {
		Question string `json:"question"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Type a question first.",
		})
	}
	if len(question) > maxQuestionLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question is too long.",
		})
	}

	start := time.Now()
	exchange, err := h.engine.Ask(c.Context(), h.session.Table(), question)
	metrics.QuestionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		var configErr *analyst.ConfigError
		if errors.As(err, &configErr) {
			metrics.QuestionTotal.WithLabelValues("config_error").Inc()
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "AI answers are not configured. Set an API key and restart the server.",
			})
		}

		var upstreamErr *analyst.UpstreamError
		if errors.As(err, &upstreamErr) {
			logger.Error("Upstream model call failed",
				zap.String("question", question),
				zap.Error(upstreamErr.Err),
			)
			metrics.QuestionTotal.WithLabelValues("upstream_error").Inc()
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "The AI service did not answer. Please try again in a moment.",
			})
		}

		logger.Error("Failed to answer question", zap.Error(err))
		metrics.QuestionTotal.WithLabelValues("error").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Something went wrong answering the question.",
		})
	}

	metrics.QuestionTotal.WithLabelValues("ok").Inc()
	metrics.LLMTokensUsed.WithLabelValues(h.model, "prompt").Add(float64(exchange.Usage.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues(h.model, "completion").Add(float64(exchange.Usage.CompletionTokens))

	return c.JSON(exchange)
}
