package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"parcelvoice/internal/middleware"
	"parcelvoice/internal/models"
	"parcelvoice/internal/services"
)

// ShortcutHandler handles shortcut CRUD requests.
type ShortcutHandler struct {
	shortcuts *services.ShortcutService
}

// NewShortcutHandler creates a new shortcut handler.
func NewShortcutHandler(shortcuts *services.ShortcutService) *ShortcutHandler {
	return &ShortcutHandler{shortcuts: shortcuts}
}

// List returns the caller's shortcuts plus the enabled global set.
func (h *ShortcutHandler) List(c *fiber.Ctx) error {
	shortcuts, err := h.shortcuts.ListVisible(c.Context(), middleware.UserID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list shortcuts",
		})
	}

	return c.JSON(fiber.Map{
		"shortcuts": shortcuts,
		"total":     len(shortcuts),
	})
}

// Get returns a single shortcut by ID.
func (h *ShortcutHandler) Get(c *fiber.Ctx) error {
	shortcut, err := h.shortcuts.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, services.ErrShortcutNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Shortcut not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get shortcut",
		})
	}
	return c.JSON(shortcut)
}

// Create creates a new shortcut owned by the caller, or a global one when
// is_global is set.
func (h *ShortcutHandler) Create(c *fiber.Ctx) error {
	var req models.CreateShortcutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.ShortcutPhrase == "" || req.ExpandedCommand == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "shortcut_phrase and expanded_command are required",
		})
	}
	if !req.IsGlobal {
		req.OwnerUserID = middleware.UserID(c)
	}

	shortcut, err := h.shortcuts.Create(c.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrDuplicatePhrase) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "A shortcut with this phrase already exists",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create shortcut",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(shortcut)
}

// Update applies a partial update to an existing shortcut.
func (h *ShortcutHandler) Update(c *fiber.Ctx) error {
	var patch models.UpdateShortcutRequest
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	shortcut, err := h.shortcuts.Update(c.Context(), c.Params("id"), &patch)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrShortcutNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Shortcut not found",
			})
		case errors.Is(err, services.ErrDuplicatePhrase):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "A shortcut with this phrase already exists",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update shortcut",
		})
	}

	return c.JSON(shortcut)
}

// Delete removes a shortcut.
func (h *ShortcutHandler) Delete(c *fiber.Ctx) error {
	if err := h.shortcuts.Delete(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, services.ErrShortcutNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Shortcut not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete shortcut",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}
