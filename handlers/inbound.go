package handlers

import (
	"fmt"
	"net/http"
	"time"

	"venuepilot/models"
	"venuepilot/services/engine"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// dedupeWindow is how long an inbound message fingerprint is remembered.
// Email transports redeliver on timeouts; a repeat inside the window is
// dropped instead of advancing the workflow twice.
const dedupeWindow = 24 * time.Hour

// MailHandler receives inbound messages from the email transport.
type MailHandler struct {
	Workflow engine.WorkflowService
	Cache    *redis.Client
}

func NewMailHandler(workflow engine.WorkflowService, cache *redis.Client) *MailHandler {
	return &MailHandler{Workflow: workflow, Cache: cache}
}

// InboundHandler accepts one parsed inbound email and runs it through the
// workflow. Messages the transport couldn't associate with a thread are
// queued for manual assignment, so this always answers 202.
func (h *MailHandler) InboundHandler(c *gin.Context) {
	var mail models.InboundEmail
	if err := c.ShouldBindJSON(&mail); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if mail.From == "" || mail.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and text are required"})
		return
	}

	if h.isRedelivery(c, mail) {
		c.JSON(http.StatusAccepted, gin.H{"status": "duplicate"})
		return
	}

	draft, err := h.Workflow.ProcessInbound(c.Request.Context(), mail)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message", "details": err.Error()})
		return
	}

	resp := gin.H{"status": "accepted"}
	if draft != nil {
		resp["draftID"] = draft.ID
	}
	c.JSON(http.StatusAccepted, resp)
}

// isRedelivery fingerprints the message and claims the fingerprint in the
// cache. A failed claim means the same message already arrived. Cache
// errors never block intake; worst case a redelivery is processed and the
// manager sees a second draft.
func (h *MailHandler) isRedelivery(c *gin.Context, mail models.InboundEmail) bool {
	if h.Cache == nil {
		return false
	}
	fp := xxhash.Sum64String(mail.From + "\x00" + mail.ThreadKey + "\x00" + mail.Subject + "\x00" + mail.Text)
	key := fmt.Sprintf("inbound:fp:%016x", fp)
	fresh, err := h.Cache.SetNX(c.Request.Context(), key, 1, dedupeWindow).Result()
	if err != nil {
		return false
	}
	return !fresh
}
