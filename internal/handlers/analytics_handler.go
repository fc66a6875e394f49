package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"parcelvoice/internal/middleware"
	"parcelvoice/internal/services"
)

// AnalyticsHandler serves the daily rollups and the overview snapshot.
type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Daily returns the rollup for one date. ?date=YYYY-MM-DD defaults to today;
// ?scope=global returns the cross-user aggregate instead of the caller's own.
func (h *AnalyticsHandler) Daily(c *fiber.Ctx) error {
	date := c.Query("date", time.Now().UTC().Format("2006-01-02"))
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "date must be YYYY-MM-DD",
		})
	}

	userID := middleware.UserID(c)
	if c.Query("scope") == "global" {
		userID = 0
	}

	analytic, err := h.analytics.GetDaily(c.Context(), date, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load analytics",
		})
	}
	if analytic == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No analytics recorded for this date",
		})
	}
	return c.JSON(analytic)
}

// Overview returns aggregate stats over a trailing window of days
// (?days=N, default 7, max 90).
func (h *AnalyticsHandler) Overview(c *fiber.Ctx) error {
	days := c.QueryInt("days", 7)
	if days < 1 || days > 90 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "days must be between 1 and 90",
		})
	}

	stats, err := h.analytics.Overview(c.Context(), days)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load overview",
		})
	}
	return c.JSON(stats)
}
