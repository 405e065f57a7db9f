package relay

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/tsenko/CollabSpace/internal/core"
	"github.com/tsenko/CollabSpace/internal/domain"
)

// handleDrawLine fans out a stroke descriptor verbatim to the other room
// members. The relay does not interpret geometry; stroke order across
// members is arrival order at the relay, nothing stronger.
func (ctl *Controller) handleDrawLine(id domain.ConnID, conn core.Conn, data []byte) {
	type strokePayload struct {
		RoomID domain.RoomID `json:"roomId"`
		X0     float64       `json:"x0"`
		Y0     float64       `json:"y0"`
		X1     float64       `json:"x1"`
		Y1     float64       `json:"y1"`
		Color  string        `json:"color"`
		Tool   string        `json:"tool"`
		Text   string        `json:"text,omitempty"`
	}
	var p strokePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad draw-line payload")
		return
	}
	resp := struct {
		Event string  `json:"event"`
		X0    float64 `json:"x0"`
		Y0    float64 `json:"y0"`
		X1    float64 `json:"x1"`
		Y1    float64 `json:"y1"`
		Color string  `json:"color"`
		Tool  string  `json:"tool"`
		Text  string  `json:"text,omitempty"`
	}{"draw-line", p.X0, p.Y0, p.X1, p.Y1, p.Color, p.Tool, p.Text}
	ctl.broadcastRoom(p.RoomID, id, resp)
}
