package relay

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tsenko/CollabSpace/internal/app"
	"github.com/tsenko/CollabSpace/internal/config"
	"github.com/tsenko/CollabSpace/internal/core"
	"github.com/tsenko/CollabSpace/internal/domain"
)

type handlerFunc func(id domain.ConnID, conn core.Conn, data []byte)

// Controller multiplexes every domain relay over one websocket per client.
// Inbound frames are JSON envelopes with an "event" field; the rest of the
// envelope is the event payload. Dispatch is a table keyed by event name.
type Controller struct {
	cfg    *config.Config
	reg    *app.Registry
	boards *app.BoardStore
	files  *app.FileStore

	handlers map[string]handlerFunc
}

func NewController(cfg *config.Config, reg *app.Registry, boards *app.BoardStore, files *app.FileStore) *Controller {
	ctl := &Controller{cfg: cfg, reg: reg, boards: boards, files: files}
	ctl.handlers = map[string]handlerFunc{
		"join":          ctl.handleJoin,
		"leave":         ctl.handleLeave,
		"user-activity": ctl.handleUserActivity,

		"code-change": ctl.handleCodeChange,
		"sync-code":   ctl.handleSyncCode,

		"join-drawing-room": ctl.handleJoinAlias,
		"draw-line":         ctl.handleDrawLine,

		"join-chat-room":  ctl.handleJoinAlias,
		"leave-chat-room": ctl.handleLeave,
		"send-message":    ctl.handleSendMessage,
		"typing":          ctl.handleTyping,
		"voice-start":     ctl.handleVoiceMarker,
		"voice-chunk":     ctl.handleVoiceChunk,
		"voice-end":       ctl.handleVoiceMarker,

		"join-file-room":  ctl.handleJoinFiles,
		"leave-file-room": ctl.handleLeave,
		"add-comment":     ctl.handleAddComment,

		"join-kanban-room": ctl.handleJoinKanban,
		"add-task":         ctl.handleAddTask,
		"edit-task":        ctl.handleEditTask,
		"delete-task":      ctl.handleDeleteTask,
		"move-task":        ctl.handleMoveTask,

		"join-video-room":    ctl.handleJoinVideo,
		"leave-video-room":   ctl.handleLeaveVideo,
		"send-offer":         ctl.handleSendOffer,
		"send-answer":        ctl.handleSendAnswer,
		"send-ice-candidate": ctl.handleSendICECandidate,

		"ping": ctl.handlePing,
	}
	return ctl
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and runs the connection until transport
// loss. Every connection gets a fresh id; identity dies with the socket.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "relay").Msg("ws upgrade")
		return
	}

	id := domain.ConnID(uuid.NewString())
	conn := newWSConn(ws, ctl.cfg.SendBuffer)
	ctl.reg.Bind(id, conn)
	log.Info().Str("module", "relay").Str("conn", string(id)).Msg("new connection")

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		ctl.writePump(ctx, conn)
	}()
	go func() {
		defer cancel()
		ctl.readPump(ctx, id, conn)
	}()
}

func (ctl *Controller) dispatch(id domain.ConnID, conn core.Conn, data []byte) {
	var env struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "relay").Str("conn", string(id)).Msg("bad json")
		return
	}
	h, ok := ctl.handlers[env.Event]
	if !ok {
		log.Warn().Str("module", "relay").Str("event", env.Event).Msg("unknown event")
		return
	}
	h(id, conn, data)
}

func (ctl *Controller) sendJSON(conn core.Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "relay").Msg("sendJSON marshal")
		return
	}
	if err := conn.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "relay").Msg("frame dropped")
	}
}

// sendTo delivers to one connection; unknown ids are dropped silently, per
// the point-to-point forwarding contract.
func (ctl *Controller) sendTo(target domain.ConnID, v any) {
	conn, ok := ctl.reg.ConnOf(target)
	if !ok {
		log.Debug().Str("module", "relay").Str("target", string(target)).Msg("target gone, dropping")
		return
	}
	ctl.sendJSON(conn, v)
}

// broadcastRoom fans out to every current member except `except`. Pass the
// zero ConnID to reach the whole room. The frame is marshaled once; a full
// recipient buffer drops the frame for that recipient only.
func (ctl *Controller) broadcastRoom(roomID domain.RoomID, except domain.ConnID, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "relay").Msg("broadcast marshal")
		return
	}
	for _, mid := range ctl.reg.MembersOf(roomID) {
		if mid == except {
			continue
		}
		conn, ok := ctl.reg.ConnOf(mid)
		if !ok {
			continue
		}
		if err := conn.TrySend(b); err != nil {
			log.Warn().Err(err).Str("module", "relay").Str("conn", string(mid)).Msg("frame dropped")
		}
	}
}

func (ctl *Controller) publishPresence(roomID domain.RoomID) {
	resp := struct {
		Event string                 `json:"event"`
		Users []domain.PresenceEntry `json:"users"`
	}{"room-users", ctl.reg.Snapshot(roomID)}
	ctl.broadcastRoom(roomID, "", resp)
}

// PublishFileUploaded announces an upload into the room. Called by the HTTP
// upload endpoint after the blob is stored.
func (ctl *Controller) PublishFileUploaded(roomID domain.RoomID, meta domain.FileMeta) {
	ctl.files.AddFile(roomID, meta)
	resp := struct {
		Event string `json:"event"`
		domain.FileMeta
	}{"file-uploaded", meta}
	ctl.broadcastRoom(roomID, "", resp)
}
