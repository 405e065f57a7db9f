package relay

import (
	"github.com/tsenko/CollabSpace/internal/core"
	"github.com/tsenko/CollabSpace/internal/domain"
)

func (ctl *Controller) handlePing(id domain.ConnID, conn core.Conn, data []byte) {
	resp := struct {
		Event string `json:"event"`
	}{"pong"}
	ctl.sendJSON(conn, resp)
}
