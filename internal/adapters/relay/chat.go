package relay

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tsenko/CollabSpace/internal/core"
	"github.com/tsenko/CollabSpace/internal/domain"
)

func (ctl *Controller) handleSendMessage(id domain.ConnID, conn core.Conn, data []byte) {
	type messagePayload struct {
		RoomID    domain.RoomID `json:"roomId"`
		Username  string        `json:"username"`
		Message   string        `json:"message"`
		Timestamp int64         `json:"timestamp"`
	}
	var p messagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad send-message payload")
		return
	}
	if p.Timestamp == 0 {
		p.Timestamp = time.Now().UnixMilli()
	}
	resp := struct {
		Event     string `json:"event"`
		Username  string `json:"username"`
		Message   string `json:"message"`
		Timestamp int64  `json:"timestamp"`
	}{"receive-message", p.Username, p.Message, p.Timestamp}
	ctl.broadcastRoom(p.RoomID, id, resp)
}

func (ctl *Controller) handleTyping(id domain.ConnID, conn core.Conn, data []byte) {
	type typingPayload struct {
		RoomID   domain.RoomID `json:"roomId"`
		Username string        `json:"username"`
	}
	var p typingPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad typing payload")
		return
	}
	resp := struct {
		Event    string `json:"event"`
		Username string `json:"username"`
	}{"typing", p.Username}
	ctl.broadcastRoom(p.RoomID, id, resp)
}

// handleVoiceChunk forwards an opaque audio fragment to the other members.
// No re-encoding, no re-chunking: fragments are assumed small and the usual
// drop-on-full-buffer rule is the only flow control.
func (ctl *Controller) handleVoiceChunk(id domain.ConnID, conn core.Conn, data []byte) {
	type chunkPayload struct {
		RoomID domain.RoomID `json:"roomId"`
		Chunk  []byte        `json:"chunk"`
	}
	var p chunkPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad voice-chunk payload")
		return
	}
	resp := struct {
		Event string `json:"event"`
		Chunk []byte `json:"chunk"`
	}{"receive-voice-chunk", p.Chunk}
	ctl.broadcastRoom(p.RoomID, id, resp)
}

// voice-start / voice-end are stream markers with no fan-out of their own.
func (ctl *Controller) handleVoiceMarker(id domain.ConnID, conn core.Conn, data []byte) {
	var env struct {
		Event  string        `json:"event"`
		RoomID domain.RoomID `json:"roomId"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return
	}
	log.Info().Str("module", "relay").Str("conn", string(id)).Str("room", string(env.RoomID)).Str("event", env.Event).Msg("voice stream marker")
}
