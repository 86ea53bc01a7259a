package handlers

import (
	"net/http"

	turnRepo "venuepilot/database/repository/turn"
	"venuepilot/services/engine"

	"github.com/gin-gonic/gin"
)

// UnmatchedHandler exposes the manual-assignment queue for inbound mail
// the transport could not place.
type UnmatchedHandler struct {
	Workflow engine.WorkflowService
	Turns    turnRepo.TurnRepository
}

func NewUnmatchedHandler(workflow engine.WorkflowService, turns turnRepo.TurnRepository) *UnmatchedHandler {
	return &UnmatchedHandler{Workflow: workflow, Turns: turns}
}

func (h *UnmatchedHandler) ListUnmatchedHandler(c *gin.Context) {
	msgs, err := h.Turns.ListUnmatched(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list unmatched messages", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// AssignUnmatchedHandler attaches a queued message to an event and runs it
// through the workflow.
func (h *UnmatchedHandler) AssignUnmatchedHandler(c *gin.Context) {
	id := c.Param("id")
	var input struct {
		EventID string `json:"eventId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	if err := h.Workflow.AssignUnmatched(c.Request.Context(), id, input.EventID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to assign message", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "assigned"})
}
