package handlers

import (
	"errors"
	"net/http"

	eventRepo "venuepilot/database/repository/event"
	turnRepo "venuepilot/database/repository/turn"
	"venuepilot/services/engine"

	"github.com/gin-gonic/gin"
)

// EventHandler exposes read access to events plus the manager's deposit
// signal.
type EventHandler struct {
	Workflow engine.WorkflowService
	Events   eventRepo.EventRepository
	Turns    turnRepo.TurnRepository
}

func NewEventHandler(workflow engine.WorkflowService, events eventRepo.EventRepository, turns turnRepo.TurnRepository) *EventHandler {
	return &EventHandler{Workflow: workflow, Events: events, Turns: turns}
}

// GetEventHandler returns one event with its conversation.
func (h *EventHandler) GetEventHandler(c *gin.Context) {
	id := c.Param("id")
	ev, err := h.Events.GetByID(c.Request.Context(), id)
	if errors.Is(err, eventRepo.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch event", "details": err.Error()})
		return
	}

	turns, err := h.Turns.ListByEvent(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch conversation", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": ev, "turns": turns})
}

// MarkDepositPaidHandler records the manager's deposit-received signal.
// Deposit status is never inferred from conversation content.
func (h *EventHandler) MarkDepositPaidHandler(c *gin.Context) {
	id := c.Param("id")
	if err := h.Workflow.MarkDepositPaid(c.Request.Context(), id); err != nil {
		if engine.IsInvalidTransition(err) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark deposit paid", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "paid"})
}
