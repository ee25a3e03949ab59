package room

import (
	"time"

	"github.com/hilthontt/kickroom/internal/domain"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Vote outcomes reported to a Recorder.
const (
	OutcomeKicked    = "kicked"
	OutcomeRejected  = "rejected"
	OutcomeCancelled = "cancelled"
)

// Recorder receives room measurements. Implementations must be cheap and
// must not call back into the room.
type Recorder interface {
	MembersChanged(count int)
	MessageSent(kind domain.MessageKind)
	VoteStarted()
	VoteEnded(outcome string)
	DeliveryFailed()
}

// AuditSink receives moderation events after the fact. Publish must not block.
type AuditSink interface {
	Publish(ev domain.AuditEvent)
}

type nopRecorder struct{}

func (nopRecorder) MembersChanged(int)             {}
func (nopRecorder) MessageSent(domain.MessageKind) {}
func (nopRecorder) VoteStarted()                   {}
func (nopRecorder) VoteEnded(string)               {}
func (nopRecorder) DeliveryFailed()                {}

type nopAuditSink struct{}

func (nopAuditSink) Publish(domain.AuditEvent) {}

// stopFunc cancels a pending timer. It reports false when the timer already fired.
type stopFunc func() bool

// scheduleFunc runs f once after d, like time.AfterFunc.
type scheduleFunc func(d time.Duration, f func()) stopFunc

func afterFunc(d time.Duration, f func()) stopFunc {
	return time.AfterFunc(d, f).Stop
}

type options struct {
	recorder Recorder
	audit    AuditSink
	tracer   trace.Tracer
	schedule scheduleFunc
	now      func() time.Time
}

type Option func(*options)

func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

func WithAuditSink(s AuditSink) Option {
	return func(o *options) { o.audit = s }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

func withSchedule(f scheduleFunc) Option {
	return func(o *options) { o.schedule = f }
}

func withClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func defaultOptions() options {
	return options{
		recorder: nopRecorder{},
		audit:    nopAuditSink{},
		tracer:   noop.NewTracerProvider().Tracer("kickroom/room"),
		schedule: afterFunc,
		now:      time.Now,
	}
}
