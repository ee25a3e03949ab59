package room

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/kickroom/internal/domain"
	"github.com/hilthontt/kickroom/internal/infrastructure/logging"
	"github.com/stretchr/testify/require"
)

func TestSession_JoinNotifiesEveryone(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice := h.joinAll("alice")[0]

	// When bob joins
	bob := &fakeConn{}
	h.session.handle(command{kind: cmdJoin, conn: bob, text: "bob"})

	// Then bob gets his confirmation and the member list
	req.Equal([]string{EventJoinSuccess, EventUsersUpdate}, bob.Types())
	req.Equal(UsernamePayload{Username: "bob"}, bob.Last(EventJoinSuccess).Data)

	// And alice gets the member list and a join notice
	req.Equal([]string{EventUsersUpdate, EventUserJoined}, alice.Types())
	users := alice.Last(EventUsersUpdate).Data.(UsersPayload).Users
	req.Len(users, 2)
	req.Equal("alice", users[0].Name)
	req.Equal("bob", users[1].Name)

	notice := alice.Last(EventUserJoined).Data.(ChatPayload).Message
	req.Equal(domain.MessageKindSystem, notice.Kind)
	req.Contains(notice.Body, "bob")

	req.Equal(2, h.session.MemberCount())
	req.Equal([]domain.AuditKind{domain.AuditMemberJoined, domain.AuditMemberJoined}, h.audit.Kinds())
}

func TestSession_JoinRejections(t *testing.T) {
	cfg := testRoomConfig()

	tests := []struct {
		name     string
		existing []string
		conn     func(h *harness) *fakeConn
		username string
		wantErr  error
	}{
		{
			name:     "name taken",
			existing: []string{"alice"},
			username: "alice",
			wantErr:  domain.ErrNameTaken,
		},
		{
			name:     "empty name",
			username: "   ",
			wantErr:  domain.ErrInvalidName,
		},
		{
			name:     "name too long",
			username: strings.Repeat("x", 21),
			wantErr:  domain.ErrInvalidName,
		},
		{
			name:     "room full",
			existing: []string{"u0", "u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8", "u9"},
			username: "late",
			wantErr:  domain.ErrRoomFull,
		},
		{
			name:     "already joined",
			existing: []string{"alice"},
			conn: func(h *harness) *fakeConn {
				return h.session.registry.ConnOf(h.session.registry.FindByName("alice").ID).(*fakeConn)
			},
			username: "alice2",
			wantErr:  domain.ErrAlreadyJoined,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			h := newHarness(t)
			others := h.joinAll(tt.existing...)
			before := h.session.registry.Snapshot()

			conn := &fakeConn{}
			if tt.conn != nil {
				conn = tt.conn(h)
			}

			// When the join is refused
			h.session.handle(command{kind: cmdJoin, conn: conn, text: tt.username})

			// Then only the requester hears about it
			ev := conn.Last(EventJoinError)
			req.NotNil(ev)
			req.Equal(rejectionMessage(tt.wantErr, cfg), ev.Data.(NoticePayload).Message)
			for _, other := range others {
				if other != conn {
					req.Empty(other.Types())
				}
			}

			// And the registry is unchanged
			req.Equal(before, h.session.registry.Snapshot())
		})
	}
}

func TestSession_RejectedJoinMayRetry(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	h.joinAll("alice")

	conn := &fakeConn{}
	h.session.handle(command{kind: cmdJoin, conn: conn, text: "alice"})
	h.session.handle(command{kind: cmdJoin, conn: conn, text: "Alice"})

	req.Equal([]string{EventJoinError, EventJoinSuccess, EventUsersUpdate}, conn.Types())
	req.Equal(2, h.session.registry.Size())
}

func TestSession_RoomFullMessageShowsCapacity(t *testing.T) {
	msg := rejectionMessage(domain.ErrRoomFull, testRoomConfig())
	require.Contains(t, msg, "10/10")
}

func TestSession_SendMessage(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	conns := h.joinAll("alice", "bob")

	h.send(conns[0], "  hello there  ")

	for _, c := range conns {
		msg := c.Last(EventReceiveMessage).Data.(ChatPayload).Message
		req.Equal("alice", msg.Author)
		req.Equal("hello there", msg.Body)
		req.Equal(domain.MessageKindUser, msg.Kind)
	}
}

func TestSession_MessageIDsIncrease(t *testing.T) {
	req := require.New(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSession(testRoomConfig(), logging.NewNop(), withClock(func() time.Time { return now }))
	conn := &fakeConn{}
	s.handle(command{kind: cmdJoin, conn: conn, text: "alice"})

	s.handle(command{kind: cmdSendMessage, conn: conn, text: "one"})
	first := conn.Last(EventReceiveMessage).Data.(ChatPayload).Message
	s.handle(command{kind: cmdSendMessage, conn: conn, text: "two"})
	second := conn.Last(EventReceiveMessage).Data.(ChatPayload).Message

	req.Greater(second.ID, first.ID)
}

func TestSession_InvalidMessagesAreDropped(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	conns := h.joinAll("alice", "bob")

	h.send(conns[0], "   ")
	h.send(conns[0], strings.Repeat("a", 501))

	req.Empty(conns[0].Types())
	req.Empty(conns[1].Types())

	// The limit counts characters, not bytes
	h.send(conns[0], strings.Repeat("é", 500))
	req.Equal(1, conns[1].Count(EventReceiveMessage))
}

func TestSession_SendFromUnjoinedConnectionIsIgnored(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	conns := h.joinAll("alice")
	stranger := &fakeConn{}

	h.send(stranger, "hi")

	req.Empty(stranger.Types())
	req.Empty(conns[0].Types())
}

func TestSession_Disconnect(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	conns := h.joinAll("alice", "bob")

	// When bob goes away
	h.disconnect(conns[1])

	// Then alice sees the new list and a leave notice
	req.Equal([]string{EventUsersUpdate, EventUserLeft}, conns[0].Types())
	req.Len(conns[0].Last(EventUsersUpdate).Data.(UsersPayload).Users, 1)
	req.Contains(conns[0].Last(EventUserLeft).Data.(ChatPayload).Message.Body, "bob")
	req.Equal(1, h.session.MemberCount())

	// When the same disconnect is reported again
	conns[0].Reset()
	h.disconnect(conns[1])

	// Then nothing happens
	req.Empty(conns[0].Types())
}

func TestSession_DisconnectBeforeJoinIsSilent(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	conns := h.joinAll("alice")

	h.disconnect(&fakeConn{})

	req.Empty(conns[0].Types())
	req.Equal(1, h.session.MemberCount())
}

func TestSession_BrokenRecipientDoesNotStopBroadcast(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	conns := h.joinAll("alice", "bob", "carol")
	conns[1].failSend = true

	h.send(conns[0], "hi")

	req.Equal(1, conns[0].Count(EventReceiveMessage))
	req.Equal(1, conns[2].Count(EventReceiveMessage))
	req.Equal(1, h.rec.failures)
}

func TestSession_RunSerializesConcurrentJoins(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSession(testRoomConfig(), logging.NewNop())
	go func() { _ = s.Run(ctx) }()

	// When twenty clients race to join a ten-seat room
	conns := make([]*fakeConn, 20)
	var wg sync.WaitGroup
	for i := range conns {
		conns[i] = &fakeConn{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.Join(ctx, conns[i], fmt.Sprintf("user-%d", i)); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	// Then exactly ten get in
	req.Eventually(func() bool {
		answered := 0
		for _, c := range conns {
			answered += c.Count(EventJoinSuccess) + c.Count(EventJoinError)
		}
		return answered == len(conns)
	}, time.Second, 5*time.Millisecond)

	joined := 0
	for _, c := range conns {
		joined += c.Count(EventJoinSuccess)
	}
	req.Equal(10, joined)
	req.Equal(10, s.MemberCount())
}

func TestSession_RunVoteTimerFiresThroughQueue(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testRoomConfig()
	cfg.VoteDuration = 20 * time.Millisecond
	s := NewSession(cfg, logging.NewNop())
	go func() { _ = s.Run(ctx) }()

	conns := []*fakeConn{{}, {}, {}}
	for i, c := range conns {
		req.NoError(s.Join(ctx, c, fmt.Sprintf("user-%d", i)))
	}
	req.NoError(s.StartVote(ctx, conns[0], "user-2"))

	req.Eventually(func() bool {
		return conns[0].Count(EventVoteEnded) == 1
	}, time.Second, 5*time.Millisecond)

	ended := conns[0].Last(EventVoteEnded).Data.(VoteEndedPayload)
	req.False(ended.IsKicked)
	req.Equal(2, ended.TotalVoters)
}

func TestSession_ShutdownClosesConnections(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())

	s := NewSession(testRoomConfig(), logging.NewNop())
	stopped := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(stopped)
	}()

	conn := &fakeConn{}
	req.NoError(s.Join(ctx, conn, "alice"))
	req.Eventually(func() bool { return s.MemberCount() == 1 }, time.Second, 5*time.Millisecond)

	// When the room stops
	cancel()
	<-stopped

	// Then members are disconnected and new commands are refused
	req.True(conn.Closed())
	req.ErrorIs(s.Join(context.Background(), &fakeConn{}, "bob"), ErrSessionClosed)
}

func TestSession_ShutdownAppliesAcceptedCommands(t *testing.T) {
	req := require.New(t)
	s := NewSession(testRoomConfig(), logging.NewNop())

	// Given a join accepted before the room loop ever ran
	conn := &fakeConn{}
	req.NoError(s.Join(context.Background(), conn, "alice"))

	// When the room starts with an already cancelled context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req.NoError(s.Run(ctx))

	// Then the accepted join was still applied before connections were closed
	req.Equal(1, conn.Count(EventJoinSuccess))
	req.True(conn.Closed())
	req.ErrorIs(s.Vote(context.Background(), conn, true), ErrSessionClosed)
}
