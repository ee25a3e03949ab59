package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/kickroom/internal/infrastructure/logging"
	"github.com/hilthontt/kickroom/internal/room"
	"github.com/stretchr/testify/require"
)

type call struct {
	kind string
	arg  any
}

// fakeRoom records calls and answers joins the way the real room would.
type fakeRoom struct {
	mu     sync.Mutex
	calls  chan call
	onJoin func(conn room.Conn, username string)
}

func newFakeRoom() *fakeRoom {
	return &fakeRoom{calls: make(chan call, 16)}
}

func (r *fakeRoom) Join(_ context.Context, conn room.Conn, username string) error {
	r.calls <- call{kind: "join", arg: username}
	r.mu.Lock()
	onJoin := r.onJoin
	r.mu.Unlock()
	if onJoin != nil {
		onJoin(conn, username)
	}
	return nil
}

func (r *fakeRoom) SendMessage(_ context.Context, _ room.Conn, body string) error {
	r.calls <- call{kind: "send_message", arg: body}
	return nil
}

func (r *fakeRoom) StartVote(_ context.Context, _ room.Conn, target string) error {
	r.calls <- call{kind: "start_vote", arg: target}
	return nil
}

func (r *fakeRoom) Vote(_ context.Context, _ room.Conn, approve bool) error {
	r.calls <- call{kind: "vote", arg: approve}
	return nil
}

func (r *fakeRoom) Disconnect(_ context.Context, _ room.Conn) error {
	r.calls <- call{kind: "disconnect"}
	return nil
}

func (r *fakeRoom) next(t *testing.T) call {
	t.Helper()
	select {
	case c := <-r.calls:
		return c
	case <-time.After(time.Second):
		t.Fatal("no call reached the room")
		return call{}
	}
}

func serve(t *testing.T, r Room) *websocket.Conn {
	t.Helper()
	upgrader := NewUpgrader(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		client := NewClient(conn, "conn-1", 8, logging.NewNop())
		go client.WritePump()
		go client.ReadPump(context.Background(), r)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestClient_FramesReachTheRoom(t *testing.T) {
	req := require.New(t)
	r := newFakeRoom()
	conn := serve(t, r)

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"join","username":"alice"}`)))
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"send_message","message":"hi"}`)))
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"start_vote","targetUsername":"bob"}`)))
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"vote","approve":false}`)))

	req.Equal(call{kind: "join", arg: "alice"}, r.next(t))
	req.Equal(call{kind: "send_message", arg: "hi"}, r.next(t))
	req.Equal(call{kind: "start_vote", arg: "bob"}, r.next(t))
	req.Equal(call{kind: "vote", arg: false}, r.next(t))
}

func TestClient_MalformedFramesAreDropped(t *testing.T) {
	req := require.New(t)
	r := newFakeRoom()
	conn := serve(t, r)

	// Given garbage followed by a valid frame
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"unknown"}`)))
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"join","username":"alice"}`)))

	// Then only the valid frame gets through and the connection stays up
	req.Equal(call{kind: "join", arg: "alice"}, r.next(t))
}

func TestClient_EventsAreWrittenFlat(t *testing.T) {
	req := require.New(t)
	r := newFakeRoom()
	r.onJoin = func(conn room.Conn, username string) {
		_ = conn.Send(room.NewJoinSuccess(username))
	}
	conn := serve(t, r)

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"join","username":"alice"}`)))

	req.NoError(conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := conn.ReadMessage()
	req.NoError(err)
	req.JSONEq(`{"type":"join_success","username":"alice"}`, string(data))
}

func TestClient_CloseFlushesQueuedEvents(t *testing.T) {
	req := require.New(t)
	r := newFakeRoom()
	r.onJoin = func(conn room.Conn, _ string) {
		_ = conn.Send(room.NewNotice(room.EventKicked, "bye"))
		_ = conn.Close()
	}
	conn := serve(t, r)

	// When the room kicks the client right after it joins
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"join","username":"alice"}`)))

	// Then the kicked notice arrives before the close frame
	req.NoError(conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := conn.ReadMessage()
	req.NoError(err)
	req.JSONEq(`{"type":"kicked","message":"bye"}`, string(data))

	_, _, err = conn.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseNormalClosure))

	// And the room hears about the disconnect
	req.Equal("join", r.next(t).kind)
	req.Equal("disconnect", r.next(t).kind)
}

func TestClient_PeerGoingAwayDisconnects(t *testing.T) {
	r := newFakeRoom()
	conn := serve(t, r)

	require.NoError(t, conn.Close())

	require.Equal(t, "disconnect", r.next(t).kind)
}

func TestClient_SendNeverBlocks(t *testing.T) {
	req := require.New(t)
	client := NewClient(nil, "conn-1", 1, logging.NewNop())

	req.NoError(client.Send(room.NewJoinSuccess("alice")))
	req.ErrorIs(client.Send(room.NewJoinSuccess("alice")), ErrSendBufferFull)

	req.NoError(client.Close())
	req.NoError(client.Close())
	req.ErrorIs(client.Send(room.NewJoinSuccess("alice")), ErrClientClosed)
}

func TestUpgrader_CheckOrigin(t *testing.T) {
	upgrader := NewUpgrader([]string{"http://localhost:3000"})

	tests := []struct {
		origin string
		want   bool
	}{
		{origin: "", want: true},
		{origin: "http://localhost:3000", want: true},
		{origin: "https://evil.example", want: false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		require.Equal(t, tt.want, upgrader.CheckOrigin(r), "origin %q", tt.origin)
	}
}
