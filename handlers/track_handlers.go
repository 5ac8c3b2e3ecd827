// handlers/track_handlers.go
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"thelook/api/models"
	"thelook/api/utils"
)

// EventRepository is the part of store.EventStore used for ingest and stats.
type EventRepository interface {
	InsertEvents(ctx context.Context, events []models.Event) error
	EventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventTypeFilter string) ([]models.TimeCount, error)
	UniqueSessionsOverTime(ctx context.Context, interval string, start, end time.Time) ([]models.TimeCount, error)
}

type TrackHandlers struct {
	Events EventRepository
	logger *logrus.Logger
	now    func() time.Time
}

func NewTrackHandlers(events EventRepository, logger *logrus.Logger) *TrackHandlers {
	return &TrackHandlers{
		Events: events,
		logger: logger,
		now:    time.Now,
	}
}

// TrackEvent ingests a JSON array of clickstream events. Each one gets a
// fresh event id and the caller's IP; created_at defaults to receipt time.
func (h *TrackHandlers) TrackEvent(c *gin.Context) {
	var incoming []models.Event
	if err := c.ShouldBindJSON(&incoming); err != nil {
		h.logger.WithError(err).Warn("Invalid tracking payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if len(incoming) == 0 {
		c.Status(http.StatusOK)
		return
	}

	received := h.now().UTC()
	ip := c.ClientIP()
	events := make([]models.Event, 0, len(incoming))
	for _, event := range incoming {
		event.EventID = uuid.NewString()
		event.IPAddress = ip
		if event.CreatedAt == nil {
			ts := received
			event.CreatedAt = &ts
		}
		events = append(events, event)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := h.Events.InsertEvents(ctx, events); err != nil {
		h.logger.WithError(err).WithField("count", len(events)).Error("Failed to insert events")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"accepted": len(events)})
}

func (h *TrackHandlers) EventCountsOverTime(c *gin.Context) {
	interval, ok := h.interval(c)
	if !ok {
		return
	}
	start, end, ok := h.timeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.Events.EventCountsOverTime(ctx, interval, start, end, c.Query("eventType"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to get event counts over time")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve event statistics"})
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *TrackHandlers) UniqueSessionsOverTime(c *gin.Context) {
	interval, ok := h.interval(c)
	if !ok {
		return
	}
	start, end, ok := h.timeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.Events.UniqueSessionsOverTime(ctx, interval, start, end)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get unique sessions over time")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve session statistics"})
		return
	}

	c.JSON(http.StatusOK, results)
}

// interval reads the interval query parameter, accepting any letter case
// ("day", "Day", "DAY").
func (h *TrackHandlers) interval(c *gin.Context) (string, bool) {
	raw := strings.TrimSpace(c.Query("interval"))
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval query parameter is required (e.g., 'day', 'hour')"})
		return "", false
	}
	interval := strings.ToUpper(raw[:1]) + strings.ToLower(raw[1:])
	if !utils.IsValidInterval(interval) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid interval", "details": raw})
		return "", false
	}
	return interval, true
}

// timeRange parses the optional RFC3339 start and end parameters. The
// default window is the last seven days.
func (h *TrackHandlers) timeRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := h.now().UTC()
	start, end := now.Add(-7*24*time.Hour), now

	if v := c.Query("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'start' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return start, end, false
		}
		start = t
	}
	if v := c.Query("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'end' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return start, end, false
		}
		end = t
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'end' must not be before 'start'"})
		return start, end, false
	}
	return start, end, true
}
