package room

import (
	"github.com/hilthontt/kickroom/internal/domain"
)

type registration struct {
	conn   Conn
	member *domain.Member
}

// Registry maps live connections to members. It has no lock of its own and
// emits nothing: the Session owns it and serializes every call.
type Registry struct {
	capacity      int
	maxNameLength int

	order  []*registration // insertion order
	byConn map[Conn]*registration
	byName map[string]*registration
	byID   map[string]*registration
}

func NewRegistry(capacity, maxNameLength int) *Registry {
	return &Registry{
		capacity:      capacity,
		maxNameLength: maxNameLength,
		order:         make([]*registration, 0, capacity),
		byConn:        make(map[Conn]*registration),
		byName:        make(map[string]*registration),
		byID:          make(map[string]*registration),
	}
}

// TryAdd registers conn under displayName. Names are compared exactly, so
// "alice" and "Alice" are different members.
func (r *Registry) TryAdd(conn Conn, displayName string) (*domain.Member, error) {
	if _, exists := r.byConn[conn]; exists {
		return nil, domain.ErrAlreadyJoined
	}

	member, err := domain.NewMember(displayName, r.maxNameLength)
	if err != nil {
		return nil, err
	}

	if _, exists := r.byName[displayName]; exists {
		return nil, domain.ErrNameTaken
	}
	if len(r.order) >= r.capacity {
		return nil, domain.ErrRoomFull
	}

	reg := &registration{conn: conn, member: member}
	r.order = append(r.order, reg)
	r.byConn[conn] = reg
	r.byName[member.Name] = reg
	r.byID[member.ID] = reg

	return member, nil
}

// Remove is idempotent and returns nil when conn was not registered.
func (r *Registry) Remove(conn Conn) *domain.Member {
	reg, ok := r.byConn[conn]
	if !ok {
		return nil
	}

	delete(r.byConn, conn)
	delete(r.byName, reg.member.Name)
	delete(r.byID, reg.member.ID)

	for i, existing := range r.order {
		if existing == reg {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	return reg.member
}

func (r *Registry) Find(conn Conn) *domain.Member {
	if reg, ok := r.byConn[conn]; ok {
		return reg.member
	}
	return nil
}

func (r *Registry) FindByName(displayName string) *domain.Member {
	if reg, ok := r.byName[displayName]; ok {
		return reg.member
	}
	return nil
}

func (r *Registry) FindByID(id string) *domain.Member {
	if reg, ok := r.byID[id]; ok {
		return reg.member
	}
	return nil
}

// ConnOf returns the connection a member joined on.
func (r *Registry) ConnOf(memberID string) Conn {
	if reg, ok := r.byID[memberID]; ok {
		return reg.conn
	}
	return nil
}

// Snapshot returns a copy of all members in join order.
func (r *Registry) Snapshot() []domain.Member {
	out := make([]domain.Member, 0, len(r.order))
	for _, reg := range r.order {
		out = append(out, *reg.member)
	}
	return out
}

// Conns returns the live connections in join order.
func (r *Registry) Conns() []Conn {
	out := make([]Conn, 0, len(r.order))
	for _, reg := range r.order {
		out = append(out, reg.conn)
	}
	return out
}

func (r *Registry) Size() int {
	return len(r.order)
}

func (r *Registry) Capacity() int {
	return r.capacity
}
