package handlers

import (
	"strings"

	apperrors "wyse/internal/errors"
	"wyse/internal/services/knowledge"
	"wyse/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type AIHandler struct {
	kb knowledge.Service
}

func NewAIHandler(kb knowledge.Service) *AIHandler {
	return &AIHandler{kb: kb}
}

// QueryTransactions runs a semantic search over the user's knowledge base.
func (h *AIHandler) QueryTransactions(c *fiber.Ctx) error {
	var input struct {
		Query   string                  `json:"query"`
		Options knowledge.SearchFilters `json:"options"`
	}
	if err := c.BodyParser(&input); err != nil {
		return badBody()
	}
	if strings.TrimSpace(input.Query) == "" {
		return apperrors.Validation("Invalid query", "Query must be a non-empty string")
	}

	id, err := currentUserID(c)
	if err != nil {
		return fail(err, "Failed to process query")
	}

	if _, err := h.kb.EnsureKnowledgeBase(c.UserContext(), id); err != nil {
		return fail(err, "Failed to process query")
	}
	results, err := h.kb.Search(c.UserContext(), id, input.Query, input.Options)
	if err != nil {
		return fail(err, "Failed to process query")
	}
	return utils.Success(c, fiber.Map{
		"success":      true,
		"query":        input.Query,
		"results":      results,
		"totalResults": len(results),
	})
}

func (h *AIHandler) Chat(c *fiber.Ctx) error {
	var input struct {
		Message string `json:"message"`
	}
	if err := c.BodyParser(&input); err != nil {
		return badBody()
	}
	if strings.TrimSpace(input.Message) == "" {
		return apperrors.Validation("Invalid message", "Message must be a non-empty string")
	}

	id, err := currentUserID(c)
	if err != nil {
		return fail(err, "Failed to process chat message")
	}

	reply, err := h.kb.Chat(c.UserContext(), id, input.Message)
	if err != nil {
		return fail(err, "Failed to process chat message")
	}
	return utils.Success(c, fiber.Map{
		"success":  true,
		"response": reply,
		"query":    input.Message,
	})
}

// Setup provisions the knowledge base, AI table, agent and sync job.
func (h *AIHandler) Setup(c *fiber.Ctx) error {
	id, err := currentUserID(c)
	if err != nil {
		return fail(err, "Failed to setup MindsDB")
	}

	result, err := h.kb.Setup(c.UserContext(), id)
	if err != nil {
		return fail(err, "Failed to setup MindsDB")
	}
	return utils.Success(c, fiber.Map{
		"success": true,
		"message": "MindsDB setup completed successfully",
		"result":  result,
	})
}

func (h *AIHandler) Evaluate(c *fiber.Ctx) error {
	id, err := currentUserID(c)
	if err != nil {
		return fail(err, "Failed to evaluate knowledge base")
	}

	evaluation, err := h.kb.Evaluate(c.UserContext(), id)
	if err != nil {
		return fail(err, "Failed to evaluate knowledge base")
	}
	return utils.Success(c, fiber.Map{"success": true, "evaluation": evaluation})
}

// LLMTableAnswer answers a question with knowledge-base hits as context.
func (h *AIHandler) LLMTableAnswer(c *fiber.Ctx) error {
	var input struct {
		Question string                  `json:"question"`
		Options  knowledge.SearchFilters `json:"options"`
	}
	if err := c.BodyParser(&input); err != nil {
		return badBody()
	}
	if strings.TrimSpace(input.Question) == "" {
		return apperrors.Validation("Invalid question", "Question must be a non-empty string")
	}

	id, err := currentUserID(c)
	if err != nil {
		return fail(err, "Failed to get LLM Table answer")
	}

	answer, err := h.kb.LLMTableAnswer(c.UserContext(), id, input.Question, input.Options)
	if err != nil {
		return fail(err, "Failed to get LLM Table answer")
	}
	return utils.Success(c, fiber.Map{
		"success":  true,
		"question": answer.Question,
		"answer":   answer.Answer,
		"sources":  answer.Sources,
	})
}
