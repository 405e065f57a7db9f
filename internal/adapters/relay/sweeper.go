package relay

import (
	"github.com/rs/zerolog/log"

	"github.com/tsenko/CollabSpace/internal/domain"
)

// sweep runs once per transport loss: the registry unbind removes the
// connection from every room atomically (so it is already out of every
// fan-out audience), then each former room gets a disconnected notice, a
// fresh presence snapshot and a user-left for any mesh peers. A second call
// for the same id finds nothing to unbind and returns immediately.
func (ctl *Controller) sweep(id domain.ConnID) {
	name, rooms, ok := ctl.reg.Unbind(id)
	if !ok {
		return
	}
	for _, roomID := range rooms {
		resp := struct {
			Event        string        `json:"event"`
			ConnectionID domain.ConnID `json:"connectionId"`
			DisplayName  string        `json:"displayName"`
		}{"disconnected", id, name}
		ctl.broadcastRoom(roomID, "", resp)
		ctl.publishPresence(roomID)
		ctl.announceUserLeft(roomID, id)
	}
	log.Info().Str("module", "relay").Str("conn", string(id)).Str("name", name).Int("rooms", len(rooms)).Msg("swept connection")
}
