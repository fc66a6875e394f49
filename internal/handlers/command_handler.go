package handlers

import (
	"github.com/gofiber/fiber/v2"

	"parcelvoice/internal/middleware"
	"parcelvoice/internal/models"
	"parcelvoice/internal/services"
)

// CommandHandler handles command processing requests.
type CommandHandler struct {
	processor *services.CommandProcessor
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(processor *services.CommandProcessor) *CommandHandler {
	return &CommandHandler{processor: processor}
}

// Process interprets and executes one command. A malformed request is a 400;
// every interpretable command returns 200 with the pipeline's result, even
// when the command itself failed.
func (h *CommandHandler) Process(c *fiber.Ctx) error {
	var req models.ProcessCommandRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "text is required",
		})
	}

	cmdCtx := req.Context
	if cmdCtx.SessionID == "" {
		cmdCtx.SessionID = middleware.SessionID(c)
	}
	if cmdCtx.UserID == 0 {
		cmdCtx.UserID = middleware.UserID(c)
	}

	result := h.processor.Process(c.Context(), req.Text, cmdCtx)
	return c.JSON(result)
}
