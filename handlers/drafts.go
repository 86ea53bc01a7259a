package handlers

import (
	"net/http"

	turnRepo "venuepilot/database/repository/turn"
	"venuepilot/services/engine"

	"github.com/gin-gonic/gin"
)

// DraftHandler is the manager's approval surface over pending drafts.
type DraftHandler struct {
	Workflow engine.WorkflowService
	Turns    turnRepo.TurnRepository
}

func NewDraftHandler(workflow engine.WorkflowService, turns turnRepo.TurnRepository) *DraftHandler {
	return &DraftHandler{Workflow: workflow, Turns: turns}
}

// ListDraftsHandler returns all turns awaiting approval.
func (h *DraftHandler) ListDraftsHandler(c *gin.Context) {
	drafts, err := h.Turns.ListDrafts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list drafts", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}

// ApproveDraftHandler sends a draft, optionally with the manager's edited
// text. Approving an already-sent draft is a no-op, not a double send.
func (h *DraftHandler) ApproveDraftHandler(c *gin.Context) {
	turnID := c.Param("turnID")
	var input struct {
		EditedText string `json:"editedText"`
	}
	// Body is optional; an empty body approves the draft as-is.
	_ = c.ShouldBindJSON(&input)

	if err := h.Workflow.ApproveDraft(c.Request.Context(), turnID, input.EditedText); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to approve draft", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// EditDraftHandler updates a pending draft without sending it.
func (h *DraftHandler) EditDraftHandler(c *gin.Context) {
	turnID := c.Param("turnID")
	var input struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	if err := h.Workflow.EditDraft(c.Request.Context(), turnID, input.Text); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to edit draft", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// DiscardDraftHandler rejects a draft; nothing is sent.
func (h *DraftHandler) DiscardDraftHandler(c *gin.Context) {
	turnID := c.Param("turnID")
	if err := h.Workflow.DiscardDraft(c.Request.Context(), turnID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to discard draft", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "discarded"})
}
