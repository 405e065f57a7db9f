package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tsenko/CollabSpace/internal/domain"
)

type fileEntry struct {
	meta   domain.FileMeta
	roomID domain.RoomID
}

// FileStore owns uploaded-file metadata and the append-only comment threads
// hanging off each file. Comment events carry only a file id on the wire, so
// the store keeps the file→room mapping that lets comment fan-out stay
// scoped to the owning room.
type FileStore struct {
	mu     sync.RWMutex
	byID   map[string]*fileEntry
	byRoom map[domain.RoomID][]string
}

func NewFileStore() *FileStore {
	return &FileStore{
		byID:   make(map[string]*fileEntry),
		byRoom: make(map[domain.RoomID][]string),
	}
}

func (s *FileStore) AddFile(roomID domain.RoomID, meta domain.FileMeta) {
	if meta.Comments == nil {
		meta.Comments = []domain.Comment{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[meta.ID]; ok {
		return
	}
	s.byID[meta.ID] = &fileEntry{meta: meta, roomID: roomID}
	s.byRoom[roomID] = append(s.byRoom[roomID], meta.ID)
}

// AddComment appends to the file's thread and reports the owning room.
// Commenting on an unknown file is a no-op.
func (s *FileStore) AddComment(fileID string, c domain.Comment) (domain.RoomID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[fileID]
	if !ok {
		return "", false
	}
	e.meta.Comments = append(e.meta.Comments, c)
	return e.roomID, true
}

func (s *FileStore) FilesOf(roomID domain.RoomID) []domain.FileMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byRoom[roomID]
	out := make([]domain.FileMeta, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.byID[id]; ok {
			meta := e.meta
			meta.Comments = append([]domain.Comment{}, e.meta.Comments...)
			out = append(out, meta)
		}
	}
	return out
}

// Evict discards a room's files. Wired to the registry's room eviction hook.
func (s *FileStore) Evict(roomID domain.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, ok := s.byRoom[roomID]
	if !ok {
		return
	}
	for _, id := range ids {
		delete(s.byID, id)
	}
	delete(s.byRoom, roomID)
	log.Debug().Str("module", "app.files").Str("room", string(roomID)).Msg("files evicted")
}
