package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/kickroom/internal/infrastructure/logging"
	"github.com/hilthontt/kickroom/internal/room"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	maxFrameSize = 32 << 10
)

var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull = errors.New("client send buffer full")
)

// Room is what a client drives with the frames it reads.
type Room interface {
	Join(ctx context.Context, conn room.Conn, username string) error
	SendMessage(ctx context.Context, conn room.Conn, body string) error
	StartVote(ctx context.Context, conn room.Conn, targetUsername string) error
	Vote(ctx context.Context, conn room.Conn, approve bool) error
	Disconnect(ctx context.Context, conn room.Conn) error
}

// Client is one websocket connection. It implements room.Conn: Send queues
// without blocking and Close lets the write pump flush what is queued before
// the socket goes down.
type Client struct {
	ID string

	conn   *connWrapper
	send   chan *room.Event
	logger logging.Logger

	mu     sync.Mutex
	closed bool
}

func NewClient(conn *websocket.Conn, id string, buffer int, logger logging.Logger) *Client {
	return &Client{
		ID:     id,
		conn:   newConnWrapper(conn),
		send:   make(chan *room.Event, buffer), // buffered so a slow peer never stalls the room
		logger: logger,
	}
}

func (c *Client) Send(ev *room.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- ev:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// ReadPump feeds decoded frames to r until the peer goes away, then reports
// the disconnect. It must run on its own goroutine, once per client.
func (c *Client) ReadPump(ctx context.Context, r Room) {
	defer func() {
		if err := r.Disconnect(ctx, c); err != nil {
			c.logger.Warn(logging.WebSocket, logging.Read, "failed to report disconnect", c.extra(map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			}))
		}
		_ = c.Close()
	}()

	raw := c.conn.conn
	raw.SetReadLimit(maxFrameSize)
	if err := raw.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn(logging.WebSocket, logging.Read, "unexpected close", c.extra(map[logging.ExtraKey]any{
					logging.ErrorMessage: err.Error(),
				}))
			}
			return
		}

		frame, err := DecodeFrame(data)
		if err != nil {
			c.logger.Warn(logging.WebSocket, logging.Read, "dropping malformed frame", c.extra(map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			}))
			continue
		}

		if err := c.dispatch(ctx, r, frame); err != nil {
			c.logger.Warn(logging.WebSocket, logging.Read, "room refused frame", c.extra(map[logging.ExtraKey]any{
				logging.EventType:    frame.Type,
				logging.ErrorMessage: err.Error(),
			}))
			return
		}
	}
}

func (c *Client) dispatch(ctx context.Context, r Room, frame *Frame) error {
	switch frame.Type {
	case FrameJoin:
		return r.Join(ctx, c, *frame.Username)
	case FrameSendMessage:
		return r.SendMessage(ctx, c, *frame.Message)
	case FrameStartVote:
		return r.StartVote(ctx, c, *frame.TargetUsername)
	case FrameVote:
		return r.Vote(ctx, c, *frame.Approve)
	}
	return nil
}

// WritePump writes queued events until Close, then sends a close frame and
// shuts the socket, which also ends ReadPump.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				c.conn.WriteClose("bye")
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.Warn(logging.WebSocket, logging.Write, "write failed", c.extra(map[logging.ExtraKey]any{
					logging.EventType:    ev.Type,
					logging.ErrorMessage: err.Error(),
				}))
				return
			}
		case <-ticker.C:
			if err := c.conn.WritePing(); err != nil {
				return
			}
		}
	}
}

func (c *Client) extra(fields map[logging.ExtraKey]any) map[logging.ExtraKey]any {
	fields[logging.ConnectionID] = c.ID
	return fields
}
