package room

//go:generate mockgen -source=conn.go -destination=mocks/mock_conn.go -package=mocks

// Conn is the transport capability the room needs from a connected client.
// Implementations must not block in Send: a slow or broken peer returns an
// error instead. Close may be called more than once.
type Conn interface {
	Send(ev *Event) error
	Close() error
}
