package relay

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/tsenko/CollabSpace/internal/core"
	"github.com/tsenko/CollabSpace/internal/domain"
)

// handleCodeChange rebroadcasts the full code string to every other room
// member. Last writer wins; there is no merging.
func (ctl *Controller) handleCodeChange(id domain.ConnID, conn core.Conn, data []byte) {
	type codePayload struct {
		RoomID domain.RoomID `json:"roomId"`
		Code   string        `json:"code"`
	}
	var p codePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad code-change payload")
		return
	}
	resp := struct {
		Event string `json:"event"`
		Code  string `json:"code"`
	}{"code-change", p.Code}
	ctl.broadcastRoom(p.RoomID, id, resp)
}

// handleSyncCode is how a late joiner catches up: an existing member answers
// the joined notice by pushing its buffer straight to the newcomer.
func (ctl *Controller) handleSyncCode(id domain.ConnID, conn core.Conn, data []byte) {
	type syncPayload struct {
		TargetID domain.ConnID `json:"targetId"`
		Code     string        `json:"code"`
	}
	var p syncPayload
	if err := json.Unmarshal(data, &p); err != nil || p.TargetID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad sync-code payload")
		return
	}
	resp := struct {
		Event string `json:"event"`
		Code  string `json:"code"`
	}{"sync-code", p.Code}
	ctl.sendTo(p.TargetID, resp)
}
