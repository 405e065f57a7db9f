package app

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tsenko/CollabSpace/internal/domain"
)

// Board holds one room's kanban columns. Column slices keep insertion order.
type Board map[domain.Column][]domain.Task

func newBoard() Board {
	b := make(Board, len(domain.Columns()))
	for _, c := range domain.Columns() {
		b[c] = []domain.Task{}
	}
	return b
}

type boardEntry struct {
	board Board
	// activityLog is a ring of human-readable lines, newest last. Capped so
	// a long-lived room cannot grow it without bound.
	activityLog []string
}

// BoardStore owns per-room kanban state. A task id appears in at most one
// column; add and move enforce that, everything else trusts the client.
type BoardStore struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]*boardEntry
	logCap int
}

func NewBoardStore(logCap int) *BoardStore {
	if logCap <= 0 {
		logCap = 100
	}
	return &BoardStore{rooms: make(map[domain.RoomID]*boardEntry), logCap: logCap}
}

// Snapshot returns a copy of the room's board and activity log. A room with
// no board yet yields empty columns, which is what a fresh joiner expects.
func (s *BoardStore) Snapshot(roomID domain.RoomID) (Board, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.rooms[roomID]
	if !ok {
		return newBoard(), []string{}
	}
	board := make(Board, len(e.board))
	for col, tasks := range e.board {
		board[col] = append([]domain.Task{}, tasks...)
	}
	return board, append([]string{}, e.activityLog...)
}

// AddTask appends the task to the column. A duplicate id anywhere on the
// board is a silent no-op to keep the one-column invariant.
func (s *BoardStore) AddTask(roomID domain.RoomID, col domain.Column, task domain.Task) ([]string, bool) {
	if !col.Valid() || task.ID == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entryLocked(roomID)
	if _, _, ok := findTask(e.board, task.ID); ok {
		return nil, false
	}
	e.board[col] = append(e.board[col], task)
	return s.appendLogLocked(e, fmt.Sprintf("Added %q to %s", task.Title, col)), true
}

// EditTask replaces the task with the same id, wherever it currently sits.
// Editing an unknown id is a no-op.
func (s *BoardStore) EditTask(roomID domain.RoomID, task domain.Task) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rooms[roomID]
	if !ok {
		return nil, false
	}
	col, idx, ok := findTask(e.board, task.ID)
	if !ok {
		return nil, false
	}
	e.board[col][idx] = task
	return s.appendLogLocked(e, fmt.Sprintf("Edited %q in %s", task.Title, col)), true
}

// DeleteTask removes the task from the client-declared column. Absent id or
// wrong column is a no-op.
func (s *BoardStore) DeleteTask(roomID domain.RoomID, col domain.Column, taskID string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rooms[roomID]
	if !ok {
		return nil, false
	}
	tasks := e.board[col]
	for i, t := range tasks {
		if t.ID == taskID {
			e.board[col] = append(tasks[:i:i], tasks[i+1:]...)
			return s.appendLogLocked(e, fmt.Sprintf("Deleted %q from %s", t.Title, col)), true
		}
	}
	return nil, false
}

// MoveTask removes the task from the source column and appends it unchanged
// to the destination. When the id is not present in the source column the
// whole operation is a no-op: no mutation, no log line.
func (s *BoardStore) MoveTask(roomID domain.RoomID, taskID string, from, to domain.Column) (domain.Task, []string, bool) {
	if !from.Valid() || !to.Valid() {
		return domain.Task{}, nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rooms[roomID]
	if !ok {
		return domain.Task{}, nil, false
	}
	tasks := e.board[from]
	for i, t := range tasks {
		if t.ID == taskID {
			e.board[from] = append(tasks[:i:i], tasks[i+1:]...)
			e.board[to] = append(e.board[to], t)
			lines := s.appendLogLocked(e, fmt.Sprintf("Moved %q from %s to %s", t.Title, from, to))
			return t, lines, true
		}
	}
	return domain.Task{}, nil, false
}

// Evict discards a room's board. Wired to the registry's room eviction hook.
func (s *BoardStore) Evict(roomID domain.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; ok {
		delete(s.rooms, roomID)
		log.Debug().Str("module", "app.board").Str("room", string(roomID)).Msg("board evicted")
	}
}

func (s *BoardStore) entryLocked(roomID domain.RoomID) *boardEntry {
	e, ok := s.rooms[roomID]
	if !ok {
		e = &boardEntry{board: newBoard()}
		s.rooms[roomID] = e
	}
	return e
}

// appendLogLocked appends one line, trims to capacity, and returns a copy of
// the full log for rebroadcast.
func (s *BoardStore) appendLogLocked(e *boardEntry, line string) []string {
	e.activityLog = append(e.activityLog, line)
	if n := len(e.activityLog); n > s.logCap {
		e.activityLog = e.activityLog[n-s.logCap:]
	}
	return append([]string{}, e.activityLog...)
}

func findTask(b Board, taskID string) (domain.Column, int, bool) {
	for _, col := range domain.Columns() {
		for i, t := range b[col] {
			if t.ID == taskID {
				return col, i, true
			}
		}
	}
	return "", 0, false
}
