package handlers

import (
	"net/http"

	claimRepo "venuepilot/database/repository/claim"
	"venuepilot/services/engine"

	"github.com/gin-gonic/gin"
)

// ConflictHandler exposes contended room claims and the manager's
// resolution action.
type ConflictHandler struct {
	Workflow engine.WorkflowService
	Claims   claimRepo.ClaimRepository
}

func NewConflictHandler(workflow engine.WorkflowService, claims claimRepo.ClaimRepository) *ConflictHandler {
	return &ConflictHandler{Workflow: workflow, Claims: claims}
}

// ListConflictsHandler returns active claims on room/date keys held by
// more than one event, with both sides' info.
func (h *ConflictHandler) ListConflictsHandler(c *gin.Context) {
	claims, err := h.Claims.ListContended(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list conflicts", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"claims": claims})
}

// ResolveConflictHandler collapses a soft conflict to the chosen claim.
// Losing events move back to room selection and get an alternatives draft,
// they are not cancelled.
func (h *ConflictHandler) ResolveConflictHandler(c *gin.Context) {
	var input struct {
		RoomID        string `json:"roomId" binding:"required"`
		Date          string `json:"date" binding:"required"`
		WinnerClaimID string `json:"winnerClaimId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	if err := h.Workflow.ResolveConflict(c.Request.Context(), input.RoomID, input.Date, input.WinnerClaimID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve conflict", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}
