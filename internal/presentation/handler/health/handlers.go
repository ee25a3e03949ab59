package health

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hilthontt/kickroom/internal/infrastructure/json"
)

// RoomStatus is the read-only view of the room the status endpoints need.
type RoomStatus interface {
	MemberCount() int
	Capacity() int
}

type Handler struct {
	room      RoomStatus
	startedAt time.Time
	healthy   atomic.Bool
	now       func() time.Time
}

func NewHandler(room RoomStatus) *Handler {
	h := &Handler{
		room:      room,
		startedAt: time.Now(),
		now:       time.Now,
	}
	h.healthy.Store(true)
	return h
}

// SetHealthy flips the liveness answer, e.g. while shutting down.
func (h *Handler) SetHealthy(healthy bool) {
	h.healthy.Store(healthy)
}

func (h *Handler) GetRoot(w http.ResponseWriter, r *http.Request) {
	_ = json.Write(w, http.StatusOK, rootResponse{
		Message:        "Kick room server is running",
		Status:         "ok",
		ConnectedUsers: h.room.MemberCount(),
		MaxUsers:       h.room.Capacity(),
		Timestamp:      h.timestamp(),
	})
}

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if !h.healthy.Load() {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	_ = json.Write(w, code, healthResponse{
		Status:         status,
		Uptime:         h.now().Sub(h.startedAt).Seconds(),
		ConnectedUsers: h.room.MemberCount(),
		Timestamp:      h.timestamp(),
	})
}

func (h *Handler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}
