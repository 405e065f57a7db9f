package relay

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/tsenko/CollabSpace/internal/core"
	"github.com/tsenko/CollabSpace/internal/domain"
)

// handleJoinFiles joins the room and hands the joiner the files already
// shared there, comments included, so the page starts from live state.
func (ctl *Controller) handleJoinFiles(id domain.ConnID, conn core.Conn, data []byte) {
	type joinPayload struct {
		RoomID domain.RoomID `json:"roomId"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad join-file-room payload")
		return
	}
	if !ctl.reg.Join(id, p.RoomID, "") {
		return
	}
	ctl.publishPresence(p.RoomID)

	resp := struct {
		Event string            `json:"event"`
		Files []domain.FileMeta `json:"files"`
	}{"file-list", ctl.files.FilesOf(p.RoomID)}
	ctl.sendJSON(conn, resp)
}

// handleAddComment appends to the file's thread and announces the comment to
// the room that owns the file. The event carries no room id; the file store
// resolves the owning room, which keeps comment fan-out room-scoped like
// every other relay.
func (ctl *Controller) handleAddComment(id domain.ConnID, conn core.Conn, data []byte) {
	type commentPayload struct {
		FileID  string         `json:"fileId"`
		Comment domain.Comment `json:"comment"`
	}
	var p commentPayload
	if err := json.Unmarshal(data, &p); err != nil || p.FileID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad add-comment payload")
		return
	}
	roomID, ok := ctl.files.AddComment(p.FileID, p.Comment)
	if !ok {
		log.Debug().Str("module", "relay").Str("file", p.FileID).Msg("comment on unknown file, dropping")
		return
	}
	resp := struct {
		Event   string         `json:"event"`
		FileID  string         `json:"fileId"`
		Comment domain.Comment `json:"comment"`
	}{"new-comment", p.FileID, p.Comment}
	ctl.broadcastRoom(roomID, "", resp)
}
