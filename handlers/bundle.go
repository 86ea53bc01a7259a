package handlers

import "github.com/gin-gonic/gin"

// HandlerBundle gathers all endpoint handlers for route registration.
type HandlerBundle struct {
	// Transport-facing.
	InboundMailHandler gin.HandlerFunc

	// Manager login.
	ManagerLoginHandler gin.HandlerFunc

	// Manager surface: drafts.
	ListDraftsHandler   gin.HandlerFunc
	ApproveDraftHandler gin.HandlerFunc
	EditDraftHandler    gin.HandlerFunc
	DiscardDraftHandler gin.HandlerFunc

	// Manager surface: conflicts.
	ListConflictsHandler   gin.HandlerFunc
	ResolveConflictHandler gin.HandlerFunc

	// Manager surface: events and deposits.
	GetEventHandler        gin.HandlerFunc
	MarkDepositPaidHandler gin.HandlerFunc

	// Manager surface: unmatched mail queue.
	ListUnmatchedHandler   gin.HandlerFunc
	AssignUnmatchedHandler gin.HandlerFunc

	// Room catalogue.
	ListRoomsHandler  gin.HandlerFunc
	UpsertRoomHandler gin.HandlerFunc
}
