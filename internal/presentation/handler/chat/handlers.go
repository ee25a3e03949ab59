package chat

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hilthontt/kickroom/internal/infrastructure/logging"
	"github.com/hilthontt/kickroom/internal/infrastructure/ws"
)

type Handler struct {
	room       ws.Room
	upgrader   *websocket.Upgrader
	sendBuffer int
	logger     logging.Logger
}

func NewHandler(room ws.Room, upgrader *websocket.Upgrader, sendBuffer int, logger logging.Logger) *Handler {
	return &Handler{
		room:       room,
		upgrader:   upgrader,
		sendBuffer: sendBuffer,
		logger:     logger,
	}
}

// ServeWS upgrades the request and hands the connection to the room. The
// client joins later by sending a join frame.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(logging.WebSocket, logging.Upgrade, "websocket upgrade failed", map[logging.ExtraKey]any{
			logging.ClientIp:     r.RemoteAddr,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	client := ws.NewClient(conn, uuid.NewString(), h.sendBuffer, h.logger)
	h.logger.Debug(logging.WebSocket, logging.Upgrade, "websocket connected", map[logging.ExtraKey]any{
		logging.ConnectionID: client.ID,
		logging.ClientIp:     r.RemoteAddr,
	})

	// The connection outlives the request.
	ctx := context.WithoutCancel(r.Context())

	go client.WritePump()
	go client.ReadPump(ctx, h.room)
}
