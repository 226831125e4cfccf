package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/event-comb/app/database"
	"github.com/lysyi3m/event-comb/app/event"
)

func NewHandler(harvester HarvesterInterface, repo database.EventRepository,
	defaultCity string, defaultLimit int, fullDefault bool) *Handler {
	return &Handler{
		harvester:    harvester,
		repo:         repo,
		defaultCity:  defaultCity,
		defaultLimit: defaultLimit,
		fullDefault:  fullDefault,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.repo.GetEventCount(); err == nil {
		health["events"] = count
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	total, err := h.repo.GetEventCount()
	if err != nil {
		slog.Error("Database error", "operation", "get_event_count", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	byPlatform, err := h.repo.GetEventCountByPlatform()
	if err != nil {
		slog.Error("Database error", "operation", "get_event_count_by_platform", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"total_events": total,
		"by_platform":  byPlatform,
	})
}

func (h *Handler) GetEvents(c *gin.Context) {
	city := c.DefaultQuery("city", h.defaultCity)

	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	events, err := h.repo.GetUpcomingEvents(city, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_upcoming_events", "city", city, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if events == nil {
		events = []database.Event{}
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"city":   city,
		"events": events,
		"total":  len(events),
	})
}

// APIHarvest triggers a synchronous aggregation run. The body is optional;
// absent fields fall back to the configured defaults.
func (h *Handler) APIHarvest(c *gin.Context) {
	var req harvestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	fetchCfg := event.FetchConfig{
		City:           h.defaultCity,
		Limit:          h.defaultLimit,
		FullValidation: h.fullDefault,
	}
	if req.City != "" {
		fetchCfg.City = req.City
	}
	if req.Limit > 0 {
		fetchCfg.Limit = req.Limit
	}
	if req.FullValidation != nil {
		fetchCfg.FullValidation = *req.FullValidation
	}

	result := h.harvester.Run(c.Request.Context(), fetchCfg)

	// A run with zero surviving events is still a completed run; failures
	// are carried inside the result, not as an HTTP error.
	c.JSON(http.StatusOK, result)
}
