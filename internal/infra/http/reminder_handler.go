package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trackmed/internal/app"
)

// ReminderHandler serves the unauthenticated action links embedded in
// outgoing reminders. Access control is the per-reminder token.
type ReminderHandler struct {
	remService *app.ReminderService
}

func NewReminderHandler(remService *app.ReminderService) *ReminderHandler {
	return &ReminderHandler{remService: remService}
}

func (h *ReminderHandler) Complete(c *gin.Context) {
	msg, err := h.remService.MarkComplete(
		c.Request.Context(),
		c.Param("id"),
		c.Query("token"),
		c.Query("date"),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *ReminderHandler) Snooze(c *gin.Context) {
	result, err := h.remService.Snooze(
		c.Request.Context(),
		c.Param("id"),
		c.Query("token"),
		c.Query("date"),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "reminder snoozed",
		"date":    result.Date,
		"time":    result.Time,
	})
}
