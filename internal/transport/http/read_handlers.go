package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noknowgram/server/internal/core"
)

// ReadHandlers serves the stateless read models: recent messages for a room,
// a user's groups, and the online user list. Pure reads, no side effects.
type ReadHandlers struct {
	msglog   *core.MessageLog
	rooms    *core.Rooms
	presence *core.Presence
}

// NewReadHandlers creates the read-model handlers.
func NewReadHandlers(msglog *core.MessageLog, rooms *core.Rooms, presence *core.Presence) *ReadHandlers {
	return &ReadHandlers{msglog: msglog, rooms: rooms, presence: presence}
}

const defaultMessageLimit = 50

// Messages returns the most recent messages of a room in append order.
// GET /api/messages/:room?limit=N
func (h *ReadHandlers) Messages(c *gin.Context) {
	roomID := c.Param("room")
	if _, ok := h.rooms.Get(roomID); !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}

	limit := defaultMessageLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	msgs := h.msglog.Recent(roomID, limit)
	out := make([]gin.H, 0, len(msgs))
	for _, m := range msgs {
		entry := gin.H{
			"id":        m.ID,
			"room":      m.Room,
			"username":  m.From,
			"text":      m.Text,
			"kind":      string(m.Kind),
			"seq":       m.Seq,
			"timestamp": m.CreatedAt,
		}
		if m.File != nil {
			entry["file"] = m.File
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

// Groups returns the rooms known for a user.
// GET /api/groups?user=alice
func (h *ReadHandlers) Groups(c *gin.Context) {
	user := c.Query("user")
	if user == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user is required"})
		return
	}

	groups := h.rooms.GroupsFor(user)
	out := make([]core.RoomInfo, 0, len(groups))
	out = append(out, groups...)
	c.JSON(http.StatusOK, gin.H{"groups": out})
}

// OnlineUsers returns the usernames currently reachable.
// GET /api/users
func (h *ReadHandlers) OnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.presence.Online()})
}
