package room

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hilthontt/kickroom/internal/domain"
	"github.com/hilthontt/kickroom/internal/infrastructure/configs"
	"github.com/hilthontt/kickroom/internal/infrastructure/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const commandQueueSize = 256

type commandKind string

const (
	cmdJoin        commandKind = "join"
	cmdSendMessage commandKind = "send_message"
	cmdStartVote   commandKind = "start_vote"
	cmdVote        commandKind = "vote"
	cmdDisconnect  commandKind = "disconnect"
	cmdVoteTimeout commandKind = "vote_timeout"
)

type command struct {
	ctx        context.Context
	kind       commandKind
	conn       Conn
	text       string
	approve    bool
	generation uint64
}

// Session is the room. A single goroutine (Run) owns the Registry and the
// Coordinator and applies commands one at a time in arrival order. The
// exported methods only enqueue.
type Session struct {
	cfg    configs.RoomConfig
	logger logging.Logger
	opts   options

	registry    *Registry
	dispatcher  *Dispatcher
	coordinator *Coordinator
	messages    *domain.MessageIDs

	commands chan command
	done     chan struct{}
	members  atomic.Int64

	// sending is read-held by every enqueue; shutdown write-locks it so no
	// send is in flight once done is closed.
	sending sync.RWMutex
}

func NewSession(cfg configs.RoomConfig, logger logging.Logger, opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{
		cfg:      cfg,
		logger:   logger,
		opts:     o,
		messages: &domain.MessageIDs{},
		commands: make(chan command, commandQueueSize),
		done:     make(chan struct{}),
	}
	s.registry = NewRegistry(cfg.Capacity, cfg.MaxNameLength)
	s.dispatcher = NewDispatcher(s.registry, logger, o.recorder)
	s.coordinator = newCoordinator(
		s.registry,
		s.dispatcher,
		s.messages,
		logger,
		o,
		cfg.VoteDuration,
		cfg.MinVoteMembers,
		s.voteExpired,
	)

	return s
}

// Run processes commands until ctx is cancelled, then closes every member
// connection. Every command accepted before that is still applied; later
// ones fail with ErrSessionClosed.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info(logging.Room, logging.Startup, "room session started", map[logging.ExtraKey]any{
		"capacity":      s.cfg.Capacity,
		"vote_duration": s.cfg.VoteDuration.String(),
	})

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case cmd := <-s.commands:
			s.handle(cmd)
		}
	}
}

func (s *Session) Join(ctx context.Context, conn Conn, username string) error {
	return s.enqueue(ctx, command{kind: cmdJoin, conn: conn, text: username})
}

func (s *Session) SendMessage(ctx context.Context, conn Conn, body string) error {
	return s.enqueue(ctx, command{kind: cmdSendMessage, conn: conn, text: body})
}

func (s *Session) StartVote(ctx context.Context, conn Conn, targetUsername string) error {
	return s.enqueue(ctx, command{kind: cmdStartVote, conn: conn, text: targetUsername})
}

func (s *Session) Vote(ctx context.Context, conn Conn, approve bool) error {
	return s.enqueue(ctx, command{kind: cmdVote, conn: conn, approve: approve})
}

// Disconnect must be called once the transport is gone, whatever the cause.
// It is safe for connections that never joined or were already removed.
func (s *Session) Disconnect(ctx context.Context, conn Conn) error {
	return s.enqueue(ctx, command{kind: cmdDisconnect, conn: conn})
}

// MemberCount may be called from any goroutine.
func (s *Session) MemberCount() int {
	return int(s.members.Load())
}

func (s *Session) Capacity() int {
	return s.registry.Capacity()
}

func (s *Session) enqueue(ctx context.Context, cmd command) error {
	cmd.ctx = ctx
	s.sending.RLock()
	defer s.sending.RUnlock()

	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.commands <- cmd:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// voteExpired runs on the timer goroutine.
func (s *Session) voteExpired(generation uint64) {
	err := s.enqueue(context.Background(), command{kind: cmdVoteTimeout, generation: generation})
	if err != nil {
		s.logger.Debug(logging.Room, logging.Vote, "vote timer fired after shutdown", map[logging.ExtraKey]any{
			logging.Generation: generation,
		})
	}
}

func (s *Session) handle(cmd command) {
	ctx := cmd.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	_, span := s.opts.tracer.Start(
		context.WithoutCancel(ctx),
		"room."+string(cmd.kind),
		trace.WithAttributes(attribute.Int("room.members", s.registry.Size())),
	)
	defer span.End()

	switch cmd.kind {
	case cmdJoin:
		s.join(span, cmd.conn, cmd.text)
	case cmdSendMessage:
		s.sendMessage(cmd.conn, cmd.text)
	case cmdStartVote:
		s.startVote(span, cmd.conn, cmd.text)
	case cmdVote:
		s.vote(span, cmd.conn, cmd.approve)
	case cmdDisconnect:
		s.disconnect(cmd.conn)
	case cmdVoteTimeout:
		s.coordinator.Expire(cmd.generation)
	}

	s.members.Store(int64(s.registry.Size()))
}

func (s *Session) join(span trace.Span, conn Conn, username string) {
	member, err := s.registry.TryAdd(conn, username)
	if err != nil {
		s.reject(span, conn, EventJoinError, err, logging.Join)
		return
	}
	s.opts.recorder.MembersChanged(s.registry.Size())

	s.dispatcher.SendTo(conn, NewJoinSuccess(member.Name))
	s.dispatcher.BroadcastAll(NewUsersUpdate(s.registry.Snapshot()))

	now := s.opts.now()
	msg := domain.NewSystemMessage(s.messages.Next(now), fmt.Sprintf("%s joined the room.", member.Name), now)
	s.dispatcher.BroadcastExcept(NewChatEvent(EventUserJoined, msg), conn)
	s.opts.recorder.MessageSent(domain.MessageKindSystem)

	s.opts.audit.Publish(domain.AuditEvent{
		Kind:       domain.AuditMemberJoined,
		MemberID:   member.ID,
		MemberName: member.Name,
		OccurredAt: now,
	})
	s.logger.Info(logging.Room, logging.Join, "member joined", map[logging.ExtraKey]any{
		logging.MemberID:   member.ID,
		logging.MemberName: member.Name,
		logging.Members:    s.registry.Size(),
	})
}

func (s *Session) sendMessage(conn Conn, body string) {
	member := s.registry.Find(conn)
	if member == nil {
		s.logger.Debug(logging.Room, logging.Chat, "ignoring message from unjoined connection", nil)
		return
	}

	body = strings.TrimSpace(body)
	if err := domain.ValidateBody(body, s.cfg.MaxMessageLength); err != nil {
		s.logger.Warn(logging.Room, logging.Chat, "dropping invalid message", map[logging.ExtraKey]any{
			logging.MemberID:     member.ID,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	now := s.opts.now()
	msg := domain.NewUserMessage(s.messages.Next(now), member, body, now)
	s.dispatcher.BroadcastAll(NewChatEvent(EventReceiveMessage, msg))
	s.opts.recorder.MessageSent(domain.MessageKindUser)
}

func (s *Session) startVote(span trace.Span, conn Conn, targetUsername string) {
	member := s.registry.Find(conn)
	if member == nil {
		s.logger.Debug(logging.Room, logging.Vote, "ignoring start_vote from unjoined connection", nil)
		return
	}
	if err := s.coordinator.Start(member, targetUsername); err != nil {
		s.reject(span, conn, EventVoteError, err, logging.Vote)
	}
}

func (s *Session) vote(span trace.Span, conn Conn, approve bool) {
	member := s.registry.Find(conn)
	if member == nil {
		s.logger.Debug(logging.Room, logging.Vote, "ignoring vote from unjoined connection", nil)
		return
	}
	if err := s.coordinator.Ballot(member, approve); err != nil {
		s.reject(span, conn, EventVoteError, err, logging.Vote)
	}
}

func (s *Session) disconnect(conn Conn) {
	member := s.registry.Remove(conn)
	if member == nil {
		return
	}
	s.opts.recorder.MembersChanged(s.registry.Size())

	s.coordinator.MemberLeft(member)
	s.dispatcher.BroadcastAll(NewUsersUpdate(s.registry.Snapshot()))

	now := s.opts.now()
	msg := domain.NewSystemMessage(s.messages.Next(now), fmt.Sprintf("%s left the room.", member.Name), now)
	s.dispatcher.BroadcastAll(NewChatEvent(EventUserLeft, msg))
	s.opts.recorder.MessageSent(domain.MessageKindSystem)

	s.opts.audit.Publish(domain.AuditEvent{
		Kind:       domain.AuditMemberLeft,
		MemberID:   member.ID,
		MemberName: member.Name,
		OccurredAt: now,
	})
	s.logger.Info(logging.Room, logging.Leave, "member left", map[logging.ExtraKey]any{
		logging.MemberID:   member.ID,
		logging.MemberName: member.Name,
		logging.Members:    s.registry.Size(),
	})
}

// reject reports err to the requester only.
func (s *Session) reject(span trace.Span, conn Conn, eventType string, err error, sub logging.SubCategory) {
	span.AddEvent("rejected", trace.WithAttributes(attribute.String("reason", err.Error())))
	s.dispatcher.SendTo(conn, NewNotice(eventType, rejectionMessage(err, s.cfg)))

	s.logger.Info(logging.Room, sub, "request rejected", map[logging.ExtraKey]any{
		logging.EventType:    eventType,
		logging.ErrorMessage: err.Error(),
	})
}

func (s *Session) shutdown() {
	close(s.done)
	// Waits for enqueues that raced with close(s.done) to finish sending.
	s.sending.Lock()
	defer s.sending.Unlock()

	for drained := false; !drained; {
		select {
		case cmd := <-s.commands:
			s.handle(cmd)
		default:
			drained = true
		}
	}
	s.coordinator.Stop()

	for _, conn := range s.registry.Conns() {
		if err := conn.Close(); err != nil {
			s.logger.Warn(logging.Room, logging.Shutdown, "failed to close connection", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
	}

	s.logger.Info(logging.Room, logging.Shutdown, "room session stopped", map[logging.ExtraKey]any{
		logging.Members: s.registry.Size(),
	})
}
