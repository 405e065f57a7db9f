package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tsenko/CollabSpace/internal/core"
	"github.com/tsenko/CollabSpace/internal/domain"
)

type session struct {
	conn  core.Conn
	name  string
	rooms map[domain.RoomID]struct{}
}

type member struct {
	activity string
	seq      int // join order within the room
}

type roomState struct {
	members map[domain.ConnID]*member
	nextSeq int
}

// Registry is the single owner of connection identity and room membership.
// All mutation goes through its methods; one mutex guards both tables so a
// membership change and the presence it implies can never interleave.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.ConnID]*session
	rooms    map[domain.RoomID]*roomState
	onEvict  []func(domain.RoomID)
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.ConnID]*session),
		rooms:    make(map[domain.RoomID]*roomState),
	}
}

// OnRoomEvicted registers a hook run after a room's membership reaches zero
// and its entry is dropped. Auxiliary stores use it to discard their own
// per-room state. Register before serving traffic.
func (r *Registry) OnRoomEvicted(fn func(domain.RoomID)) {
	r.onEvict = append(r.onEvict, fn)
}

func (r *Registry) Bind(id domain.ConnID, conn core.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &session{conn: conn, rooms: make(map[domain.RoomID]struct{})}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("bound connection")
}

// Unbind removes the connection and its membership in every room. It reports
// the display name and the rooms the connection belonged to, in no particular
// order, so the sweeper can notify them. The second call for an id returns
// ok=false, which is what makes the sweep exactly-once.
func (r *Registry) Unbind(id domain.ConnID) (name string, rooms []domain.RoomID, ok bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return "", nil, false
	}
	delete(r.sessions, id)
	var evicted []domain.RoomID
	for roomID := range s.rooms {
		rooms = append(rooms, roomID)
		if r.dropMemberLocked(id, roomID) {
			evicted = append(evicted, roomID)
		}
	}
	r.mu.Unlock()

	r.notifyEvicted(evicted)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Int("rooms", len(rooms)).Msg("unbound connection")
	return s.name, rooms, true
}

func (r *Registry) ConnOf(id domain.ConnID) (core.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.sessions[id]; ok {
		return s.conn, true
	}
	return nil, false
}

func (r *Registry) DisplayName(id domain.ConnID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.sessions[id]; ok {
		return s.name
	}
	return ""
}

func (r *Registry) RoomsOf(id domain.ConnID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	out := make([]domain.RoomID, 0, len(s.rooms))
	for roomID := range s.rooms {
		out = append(out, roomID)
	}
	return out
}

func (r *Registry) notifyEvicted(rooms []domain.RoomID) {
	for _, roomID := range rooms {
		for _, fn := range r.onEvict {
			fn(roomID)
		}
	}
}
