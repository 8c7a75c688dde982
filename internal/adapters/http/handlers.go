package http

import (
	"net/http"

	"github.com/dkeye/Candles/internal/domain"
	"github.com/gin-gonic/gin"
)

type queryHandlers struct {
	rooms RoomReader
}

type usersQuery struct {
	Room string `form:"room" binding:"required"`
}

// usersInRoom serves GET /users?room=R for older clients.
func (h queryHandlers) usersInRoom(c *gin.Context) {
	var q usersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing room"})
		return
	}
	c.JSON(http.StatusOK, h.rooms.MembersOf(domain.RoomName(q.Room)))
}

func (h queryHandlers) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.rooms.Rooms()})
}

func (h queryHandlers) roomInfo(c *gin.Context) {
	room := domain.RoomName(c.Param("room"))
	members := h.rooms.MembersOf(room)
	c.JSON(http.StatusOK, gin.H{
		"room":        room,
		"active":      h.rooms.IsActive(room),
		"memberCount": len(members),
	})
}

func (h queryHandlers) members(c *gin.Context) {
	c.JSON(http.StatusOK, h.rooms.MembersOf(domain.RoomName(c.Param("room"))))
}

func (h queryHandlers) member(c *gin.Context) {
	m, ok := h.rooms.MemberByName(domain.RoomName(c.Param("room")), c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}
