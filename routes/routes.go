package routes

import (
	"net/http"
	"time"

	"venuepilot/handlers"
	"venuepilot/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterMailRoutes registers the email transport entry point.
func RegisterMailRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/mail")
	{
		api.POST("/inbound", hb.InboundMailHandler)
	}
}

// RegisterManagerRoutes registers the protected manager surface: draft
// approval, conflict resolution, deposits and the unmatched-mail queue.
func RegisterManagerRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/api/manager/login", hb.ManagerLoginHandler)

	api := r.Group("/api/manager")
	api.Use(middleware.ManagerAuthMiddleware())
	{
		api.GET("/drafts", hb.ListDraftsHandler)
		api.POST("/drafts/:turnID/approve", hb.ApproveDraftHandler)
		api.PUT("/drafts/:turnID", hb.EditDraftHandler)
		api.POST("/drafts/:turnID/discard", hb.DiscardDraftHandler)

		api.GET("/conflicts", hb.ListConflictsHandler)
		api.POST("/conflicts/resolve", hb.ResolveConflictHandler)

		api.GET("/events/:id", hb.GetEventHandler)
		api.POST("/events/:id/deposit-paid", hb.MarkDepositPaidHandler)

		api.GET("/unmatched", hb.ListUnmatchedHandler)
		api.POST("/unmatched/:id/assign", hb.AssignUnmatchedHandler)

		api.GET("/rooms", hb.ListRoomsHandler)
		api.PUT("/rooms", hb.UpsertRoomHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "venuepilot up"})
	})
}

// RegisterRoutes applies CORS and wires all route groups.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterMailRoutes(r, hb)
	RegisterManagerRoutes(r, hb)
}
