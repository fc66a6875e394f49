package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"parcelvoice/internal/models"
	"parcelvoice/internal/services"
)

// HelpHandler handles help content requests.
type HelpHandler struct {
	help *services.HelpService
}

// NewHelpHandler creates a new help handler.
func NewHelpHandler(help *services.HelpService) *HelpHandler {
	return &HelpHandler{help: help}
}

// List returns all visible help entries. ?include_hidden=true includes the
// hidden ones, and ?command_type=... filters by category.
func (h *HelpHandler) List(c *fiber.Ctx) error {
	if ct := c.Query("command_type"); ct != "" {
		entries, err := h.help.ListByCommandType(c.Context(), models.CommandType(ct))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to list help content",
			})
		}
		return c.JSON(fiber.Map{"help": entries, "total": len(entries)})
	}

	entries, err := h.help.List(c.Context(), c.QueryBool("include_hidden"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list help content",
		})
	}
	return c.JSON(fiber.Map{"help": entries, "total": len(entries)})
}

// Contextual returns the help entries for a UI context plus the global set.
func (h *HelpHandler) Contextual(c *fiber.Ctx) error {
	entries, err := h.help.Contextual(c.Context(), c.Query("context_id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load contextual help",
		})
	}
	return c.JSON(fiber.Map{"help": entries, "total": len(entries)})
}

// Search matches help entries against a free-text query.
func (h *HelpHandler) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "q is required",
		})
	}

	entries, err := h.help.Search(c.Context(), query)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to search help content",
		})
	}
	return c.JSON(fiber.Map{"help": entries, "total": len(entries)})
}

// Get returns a single help entry by ID.
func (h *HelpHandler) Get(c *fiber.Ctx) error {
	entry, err := h.help.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, services.ErrHelpContentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Help content not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get help content",
		})
	}
	return c.JSON(entry)
}

// Create adds a new help entry.
func (h *HelpHandler) Create(c *fiber.Ctx) error {
	var req models.CreateHelpContentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Title == "" || req.CommandType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "title and command_type are required",
		})
	}

	entry, err := h.help.Create(c.Context(), &req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create help content",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// Update replaces an existing help entry.
func (h *HelpHandler) Update(c *fiber.Ctx) error {
	var req models.CreateHelpContentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	entry, err := h.help.Update(c.Context(), c.Params("id"), &req)
	if err != nil {
		if errors.Is(err, services.ErrHelpContentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Help content not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update help content",
		})
	}
	return c.JSON(entry)
}

// Delete removes a help entry.
func (h *HelpHandler) Delete(c *fiber.Ctx) error {
	if err := h.help.Delete(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, services.ErrHelpContentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Help content not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete help content",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}
