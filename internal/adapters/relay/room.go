package relay

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/tsenko/CollabSpace/internal/core"
	"github.com/tsenko/CollabSpace/internal/domain"
)

// handleJoin records the display name, adds the connection to the room and
// publishes presence. Other members additionally get a joined notice with
// the newcomer's id so one of them can answer with a code sync.
func (ctl *Controller) handleJoin(id domain.ConnID, conn core.Conn, data []byte) {
	type joinPayload struct {
		RoomID      domain.RoomID `json:"roomId"`
		DisplayName string        `json:"displayName"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad join payload")
		return
	}

	if !ctl.reg.Join(id, p.RoomID, p.DisplayName) {
		return
	}
	log.Info().Str("module", "relay").Str("conn", string(id)).Str("room", string(p.RoomID)).Str("name", p.DisplayName).Msg("join")

	resp := struct {
		Event        string        `json:"event"`
		ConnectionID domain.ConnID `json:"connectionId"`
		DisplayName  string        `json:"displayName"`
	}{"joined", id, ctl.reg.DisplayName(id)}
	ctl.broadcastRoom(p.RoomID, id, resp)

	ctl.publishPresence(p.RoomID)
}

// handleJoinAlias covers the per-page join events (drawing, chat, file).
// They all land in the same room directory; no display name is attached.
func (ctl *Controller) handleJoinAlias(id domain.ConnID, conn core.Conn, data []byte) {
	type joinPayload struct {
		RoomID domain.RoomID `json:"roomId"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad join payload")
		return
	}
	if ctl.reg.Join(id, p.RoomID, "") {
		ctl.publishPresence(p.RoomID)
	}
}

func (ctl *Controller) handleLeave(id domain.ConnID, conn core.Conn, data []byte) {
	type leavePayload struct {
		RoomID domain.RoomID `json:"roomId"`
	}
	var p leavePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad leave payload")
		return
	}
	if ctl.reg.Leave(id, p.RoomID) {
		log.Info().Str("module", "relay").Str("conn", string(id)).Str("room", string(p.RoomID)).Msg("leave")
		ctl.publishPresence(p.RoomID)
	}
}

// handleUserActivity updates the presence activity tag ("typing", "drawing",
// ...). Silently ignored when the sender is not a member of the room.
func (ctl *Controller) handleUserActivity(id domain.ConnID, conn core.Conn, data []byte) {
	type activityPayload struct {
		RoomID   domain.RoomID `json:"roomId"`
		Activity string        `json:"activity"`
	}
	var p activityPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad activity payload")
		return
	}
	if ctl.reg.SetActivity(id, p.RoomID, p.Activity) {
		ctl.publishPresence(p.RoomID)
	}
}
