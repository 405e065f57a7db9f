package relay

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/tsenko/CollabSpace/internal/app"
	"github.com/tsenko/CollabSpace/internal/core"
	"github.com/tsenko/CollabSpace/internal/domain"
)

// handleJoinKanban joins the room and hands the joiner the current board and
// activity log so the page starts from live state.
func (ctl *Controller) handleJoinKanban(id domain.ConnID, conn core.Conn, data []byte) {
	type joinPayload struct {
		RoomID domain.RoomID `json:"roomId"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad join-kanban-room payload")
		return
	}
	if !ctl.reg.Join(id, p.RoomID, "") {
		return
	}
	ctl.publishPresence(p.RoomID)

	board, lines := ctl.boards.Snapshot(p.RoomID)
	ctl.sendJSON(conn, struct {
		Event string    `json:"event"`
		Tasks app.Board `json:"tasks"`
	}{"board-data", board})
	ctl.sendJSON(conn, activityLogMsg(lines))
}

func (ctl *Controller) handleAddTask(id domain.ConnID, conn core.Conn, data []byte) {
	type addPayload struct {
		RoomID domain.RoomID `json:"roomId"`
		Column domain.Column `json:"column"`
		Task   domain.Task   `json:"task"`
	}
	var p addPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad add-task payload")
		return
	}
	lines, ok := ctl.boards.AddTask(p.RoomID, p.Column, p.Task)
	if !ok {
		return
	}
	resp := struct {
		Event  string        `json:"event"`
		Task   domain.Task   `json:"task"`
		Column domain.Column `json:"column"`
	}{"task-added", p.Task, p.Column}
	ctl.broadcastRoom(p.RoomID, "", resp)
	ctl.broadcastRoom(p.RoomID, "", activityLogMsg(lines))
}

func (ctl *Controller) handleEditTask(id domain.ConnID, conn core.Conn, data []byte) {
	type editPayload struct {
		RoomID domain.RoomID `json:"roomId"`
		Task   domain.Task   `json:"task"`
	}
	var p editPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad edit-task payload")
		return
	}
	lines, ok := ctl.boards.EditTask(p.RoomID, p.Task)
	if !ok {
		return
	}
	resp := struct {
		Event string      `json:"event"`
		Task  domain.Task `json:"task"`
	}{"task-edited", p.Task}
	ctl.broadcastRoom(p.RoomID, "", resp)
	ctl.broadcastRoom(p.RoomID, "", activityLogMsg(lines))
}

func (ctl *Controller) handleDeleteTask(id domain.ConnID, conn core.Conn, data []byte) {
	type deletePayload struct {
		RoomID domain.RoomID `json:"roomId"`
		Column domain.Column `json:"column"`
		TaskID string        `json:"taskId"`
	}
	var p deletePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad delete-task payload")
		return
	}
	lines, ok := ctl.boards.DeleteTask(p.RoomID, p.Column, p.TaskID)
	if !ok {
		return
	}
	resp := struct {
		Event  string        `json:"event"`
		Column domain.Column `json:"column"`
		TaskID string        `json:"taskId"`
	}{"task-deleted", p.Column, p.TaskID}
	ctl.broadcastRoom(p.RoomID, "", resp)
	ctl.broadcastRoom(p.RoomID, "", activityLogMsg(lines))
}

func (ctl *Controller) handleMoveTask(id domain.ConnID, conn core.Conn, data []byte) {
	type movePayload struct {
		RoomID domain.RoomID `json:"roomId"`
		TaskID string        `json:"taskId"`
		From   domain.Column `json:"from"`
		To     domain.Column `json:"to"`
	}
	var p movePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad move-task payload")
		return
	}
	task, lines, ok := ctl.boards.MoveTask(p.RoomID, p.TaskID, p.From, p.To)
	if !ok {
		// Absent id in the source column: no broadcast, no log line.
		return
	}
	resp := struct {
		Event string        `json:"event"`
		Task  domain.Task   `json:"task"`
		From  domain.Column `json:"from"`
		To    domain.Column `json:"to"`
	}{"task-moved", task, p.From, p.To}
	ctl.broadcastRoom(p.RoomID, "", resp)
	ctl.broadcastRoom(p.RoomID, "", activityLogMsg(lines))
}

func activityLogMsg(lines []string) any {
	return struct {
		Event string   `json:"event"`
		Log   []string `json:"log"`
	}{"activity-log", lines}
}
