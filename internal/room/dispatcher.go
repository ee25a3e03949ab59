package room

import (
	"github.com/hilthontt/kickroom/internal/infrastructure/logging"
)

// Dispatcher fans events out to registered connections. Delivery is best
// effort: a failed send is logged and the remaining recipients still get the
// event. Broken connections are cleaned up by their own disconnect path.
type Dispatcher struct {
	registry *Registry
	logger   logging.Logger
	recorder Recorder
}

func NewDispatcher(registry *Registry, logger logging.Logger, recorder Recorder) *Dispatcher {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Dispatcher{
		registry: registry,
		logger:   logger,
		recorder: recorder,
	}
}

func (d *Dispatcher) BroadcastAll(ev *Event) {
	d.broadcast(ev, nil)
}

func (d *Dispatcher) BroadcastExcept(ev *Event, excluded Conn) {
	d.broadcast(ev, excluded)
}

// SendTo delivers ev to a single connection, joined or not.
func (d *Dispatcher) SendTo(conn Conn, ev *Event) {
	if err := conn.Send(ev); err != nil {
		d.deliveryFailed(conn, ev, err)
	}
}

func (d *Dispatcher) broadcast(ev *Event, excluded Conn) {
	sent := 0
	for _, conn := range d.registry.Conns() {
		if excluded != nil && conn == excluded {
			continue
		}
		if err := conn.Send(ev); err != nil {
			d.deliveryFailed(conn, ev, err)
			continue
		}
		sent++
	}

	d.logger.Debug(logging.Room, logging.Broadcast, "broadcast result", map[logging.ExtraKey]any{
		logging.EventType: ev.Type,
		"sent_to":         sent,
	})
}

func (d *Dispatcher) deliveryFailed(conn Conn, ev *Event, err error) {
	d.recorder.DeliveryFailed()

	extra := map[logging.ExtraKey]any{
		logging.EventType:    ev.Type,
		logging.ErrorMessage: err.Error(),
	}
	if member := d.registry.Find(conn); member != nil {
		extra[logging.MemberID] = member.ID
		extra[logging.MemberName] = member.Name
	}
	d.logger.Warn(logging.Room, logging.Broadcast, "failed to deliver event", extra)
}
