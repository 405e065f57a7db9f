package app

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/tsenko/CollabSpace/internal/domain"
)

// RoomInfo is a read-only listing row for the rooms API.
type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"memberCount"`
}

// Join adds the connection to a room, creating the room lazily. Re-joining is
// a no-op apart from the name update. A non-empty displayName overwrites any
// prior name for the connection; an empty one keeps what is there, so the
// per-page join aliases don't erase the name recorded by the first join.
func (r *Registry) Join(id domain.ConnID, roomID domain.RoomID, displayName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	if displayName != "" {
		s.name = displayName
	}
	room, ok := r.rooms[roomID]
	if !ok {
		room = &roomState{members: make(map[domain.ConnID]*member)}
		r.rooms[roomID] = room
		log.Debug().Str("module", "app.registry").Str("room", string(roomID)).Msg("room created")
	}
	if _, ok := room.members[id]; !ok {
		room.members[id] = &member{activity: domain.DefaultActivity, seq: room.nextSeq}
		room.nextSeq++
	}
	s.rooms[roomID] = struct{}{}
	return true
}

// Leave removes the connection from the room. Leaving a room it is not in is
// a no-op. The room entry is dropped when the last member leaves.
func (r *Registry) Leave(id domain.ConnID, roomID domain.RoomID) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if _, ok := s.rooms[roomID]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(s.rooms, roomID)
	evicted := r.dropMemberLocked(id, roomID)
	r.mu.Unlock()

	if evicted {
		r.notifyEvicted([]domain.RoomID{roomID})
	}
	return true
}

// SetActivity updates the member's activity tag. Ignored when the connection
// is not a current member of the room.
func (r *Registry) SetActivity(id domain.ConnID, roomID domain.RoomID, activity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	m, ok := room.members[id]
	if !ok {
		return false
	}
	m.activity = activity
	return true
}

// MembersOf returns the current member ids of a room; the fan-out audience.
func (r *Registry) MembersOf(roomID domain.RoomID) []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]domain.ConnID, 0, len(room.members))
	for id := range room.members {
		out = append(out, id)
	}
	return out
}

// Snapshot builds the presence view of a room, ordered by join time.
func (r *Registry) Snapshot(roomID domain.RoomID) []domain.PresenceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return []domain.PresenceEntry{}
	}
	out := make([]domain.PresenceEntry, 0, len(room.members))
	for id, m := range room.members {
		entry := domain.PresenceEntry{ConnectionID: id, Activity: m.activity}
		if s, ok := r.sessions[id]; ok {
			entry.DisplayName = s.name
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return room.members[out[i].ConnectionID].seq < room.members[out[j].ConnectionID].seq
	})
	return out
}

func (r *Registry) ListRooms() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for id, room := range r.rooms {
		out = append(out, RoomInfo{ID: id, MemberCount: len(room.members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// dropMemberLocked removes the member and reports whether the room entry was
// evicted as a result. Caller holds r.mu.
func (r *Registry) dropMemberLocked(id domain.ConnID, roomID domain.RoomID) bool {
	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	delete(room.members, id)
	if len(room.members) == 0 {
		delete(r.rooms, roomID)
		log.Debug().Str("module", "app.registry").Str("room", string(roomID)).Msg("room evicted")
		return true
	}
	return false
}
