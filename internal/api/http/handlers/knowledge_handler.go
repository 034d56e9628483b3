package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/repository"
)

// KnowledgeHandler lists the knowledge base.
type KnowledgeHandler struct {
	repo repository.KnowledgeRepository
}

func NewKnowledgeHandler(repo repository.KnowledgeRepository) *KnowledgeHandler {
	return &KnowledgeHandler{repo: repo}
}

// List GET /knowledge.
func (h *KnowledgeHandler) List(c *fiber.Ctx) error {
	entries, err := h.repo.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entries})
}
