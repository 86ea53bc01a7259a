package handlers

import (
	"net/http"

	roomRepo "venuepilot/database/repository/room"
	"venuepilot/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RoomHandler manages the venue's room catalogue.
type RoomHandler struct {
	Rooms roomRepo.RoomRepository
}

func NewRoomHandler(rooms roomRepo.RoomRepository) *RoomHandler {
	return &RoomHandler{Rooms: rooms}
}

func (h *RoomHandler) ListRoomsHandler(c *gin.Context) {
	rooms, err := h.Rooms.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rooms", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *RoomHandler) UpsertRoomHandler(c *gin.Context) {
	var room models.Room
	if err := c.ShouldBindJSON(&room); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	if room.Capacity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "capacity must be positive"})
		return
	}

	if err := h.Rooms.Upsert(c.Request.Context(), &room); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save room", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}
