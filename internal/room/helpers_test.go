package room

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/kickroom/internal/domain"
	"github.com/hilthontt/kickroom/internal/infrastructure/configs"
	"github.com/hilthontt/kickroom/internal/infrastructure/logging"
	"github.com/stretchr/testify/require"
)

var errBrokenPipe = errors.New("broken pipe")

func testRoomConfig() configs.RoomConfig {
	return configs.RoomConfig{
		Capacity:         10,
		MaxNameLength:    20,
		MaxMessageLength: 500,
		MinVoteMembers:   3,
		VoteDuration:     30 * time.Second,
		SendBuffer:       64,
	}
}

// fakeConn records every event it is sent.
type fakeConn struct {
	mu       sync.Mutex
	events   []*Event
	closed   bool
	failSend bool
}

func (c *fakeConn) Send(ev *Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend || c.closed {
		return errBrokenPipe
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) Types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		types = append(types, ev.Type)
	}
	return types
}

// Last returns the most recent event of the given type, or nil.
func (c *fakeConn) Last(eventType string) *Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Type == eventType {
			return c.events[i]
		}
	}
	return nil
}

func (c *fakeConn) Count(eventType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ev := range c.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// fakeTimers stands in for time.AfterFunc. Tests fire timers by hand.
type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (ft *fakeTimers) schedule(d time.Duration, f func()) stopFunc {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	t := &fakeTimer{d: d, f: f}
	ft.timers = append(ft.timers, t)
	return func() bool {
		ft.mu.Lock()
		defer ft.mu.Unlock()
		wasPending := !t.stopped
		t.stopped = true
		return wasPending
	}
}

func (ft *fakeTimers) get(i int) *fakeTimer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.timers[i]
}

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (a *recordingAudit) Publish(ev domain.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

func (a *recordingAudit) Kinds() []domain.AuditKind {
	a.mu.Lock()
	defer a.mu.Unlock()
	kinds := make([]domain.AuditKind, 0, len(a.events))
	for _, ev := range a.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

type countingRecorder struct {
	nopRecorder
	mu       sync.Mutex
	outcomes []string
	failures int
}

func (r *countingRecorder) VoteEnded(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *countingRecorder) DeliveryFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
}

// harness drives a Session synchronously, without Run.
type harness struct {
	t       *testing.T
	session *Session
	timers  *fakeTimers
	audit   *recordingAudit
	rec     *countingRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		timers: &fakeTimers{},
		audit:  &recordingAudit{},
		rec:    &countingRecorder{},
	}
	h.session = NewSession(
		testRoomConfig(),
		logging.NewNop(),
		withSchedule(h.timers.schedule),
		WithAuditSink(h.audit),
		WithRecorder(h.rec),
	)
	return h
}

func (h *harness) join(name string) *fakeConn {
	h.t.Helper()
	conn := &fakeConn{}
	h.session.handle(command{kind: cmdJoin, conn: conn, text: name})
	require.Equal(h.t, EventJoinSuccess, conn.Types()[0], "join of %q", name)
	return conn
}

func (h *harness) joinAll(names ...string) []*fakeConn {
	conns := make([]*fakeConn, 0, len(names))
	for _, name := range names {
		conns = append(conns, h.join(name))
	}
	for _, c := range conns {
		c.Reset()
	}
	return conns
}

func (h *harness) send(conn Conn, body string) {
	h.session.handle(command{kind: cmdSendMessage, conn: conn, text: body})
}

func (h *harness) startVote(conn Conn, target string) {
	h.session.handle(command{kind: cmdStartVote, conn: conn, text: target})
}

func (h *harness) vote(conn Conn, approve bool) {
	h.session.handle(command{kind: cmdVote, conn: conn, approve: approve})
}

func (h *harness) disconnect(conn Conn) {
	h.session.handle(command{kind: cmdDisconnect, conn: conn})
}

// fire runs timer i and applies the command it queued.
func (h *harness) fire(i int) {
	h.t.Helper()
	h.timers.get(i).f()
	select {
	case cmd := <-h.session.commands:
		h.session.handle(cmd)
	default:
		h.t.Fatal("timer did not queue a command")
	}
}
