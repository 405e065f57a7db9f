package relay

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsenko/CollabSpace/internal/app"
	"github.com/tsenko/CollabSpace/internal/config"
	"github.com/tsenko/CollabSpace/internal/core"
	"github.com/tsenko/CollabSpace/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {}

func (f *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, fr := range f.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(fr, &m))
		out = append(out, m)
	}
	return out
}

func (f *fakeConn) named(t *testing.T, event string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, m := range f.events(t) {
		if m["event"] == event {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

func newTestController() (*Controller, *app.Registry) {
	cfg := &config.Config{
		SendBuffer:     16,
		ReadLimit:      1 << 20,
		PingPeriod:     time.Minute,
		ActivityLogCap: 10,
	}
	reg := app.NewRegistry()
	boards := app.NewBoardStore(cfg.ActivityLogCap)
	files := app.NewFileStore()
	reg.OnRoomEvicted(boards.Evict)
	reg.OnRoomEvicted(files.Evict)
	return NewController(cfg, reg, boards, files), reg
}

func connect(reg *app.Registry, id domain.ConnID) *fakeConn {
	c := &fakeConn{}
	reg.Bind(id, c)
	return c
}

func send(t *testing.T, ctl *Controller, id domain.ConnID, conn core.Conn, v map[string]any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	ctl.dispatch(id, conn, b)
}

func presenceNames(t *testing.T, m map[string]any) []string {
	t.Helper()
	users, ok := m["users"].([]any)
	require.True(t, ok)
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.(map[string]any)["displayName"].(string))
	}
	return names
}

// The end-to-end shape of a session: two members join, one edits code, one
// drops — presence and fan-out stay exact throughout.
func TestCollabSessionScenario(t *testing.T) {
	ctl, reg := newTestController()
	a := connect(reg, "a")
	b := connect(reg, "b")

	send(t, ctl, "a", a, map[string]any{"event": "join", "roomId": "demo", "displayName": "Alice"})
	snaps := a.named(t, "room-users")
	require.Len(t, snaps, 1)
	assert.Equal(t, []string{"Alice"}, presenceNames(t, snaps[0]))

	send(t, ctl, "b", b, map[string]any{"event": "join", "roomId": "demo", "displayName": "Bob"})
	snaps = a.named(t, "room-users")
	require.Len(t, snaps, 2)
	assert.Equal(t, []string{"Alice", "Bob"}, presenceNames(t, snaps[1]))
	snaps = b.named(t, "room-users")
	require.Len(t, snaps, 1)
	assert.Equal(t, []string{"Alice", "Bob"}, presenceNames(t, snaps[0]))

	a.reset()
	b.reset()
	send(t, ctl, "a", a, map[string]any{"event": "code-change", "roomId": "demo", "code": "print(1)"})
	got := b.named(t, "code-change")
	require.Len(t, got, 1)
	assert.Equal(t, "print(1)", got[0]["code"])
	assert.Empty(t, a.events(t), "sender never receives its own change")

	a.reset()
	b.reset()
	ctl.sweep("a")
	disc := b.named(t, "disconnected")
	require.Len(t, disc, 1)
	assert.Equal(t, "a", disc[0]["connectionId"])
	assert.Equal(t, "Alice", disc[0]["displayName"])
	snaps = b.named(t, "room-users")
	require.Len(t, snaps, 1)
	assert.Equal(t, []string{"Bob"}, presenceNames(t, snaps[0]))
	require.Len(t, b.named(t, "user-left"), 1)
	assert.Empty(t, a.events(t), "nothing delivered after disconnect")
}

func TestSweepCoversEveryRoomExactlyOnce(t *testing.T) {
	ctl, reg := newTestController()
	a := connect(reg, "a")
	watchers := map[domain.ConnID]*fakeConn{
		"w1": connect(reg, "w1"),
		"w2": connect(reg, "w2"),
		"w3": connect(reg, "w3"),
	}
	send(t, ctl, "a", a, map[string]any{"event": "join", "roomId": "code", "displayName": "Alice"})
	send(t, ctl, "a", a, map[string]any{"event": "join", "roomId": "draw", "displayName": "Alice"})
	send(t, ctl, "a", a, map[string]any{"event": "join", "roomId": "video", "displayName": "Alice"})
	for id, room := range map[domain.ConnID]string{"w1": "code", "w2": "draw", "w3": "video"} {
		send(t, ctl, id, watchers[id], map[string]any{"event": "join", "roomId": room, "displayName": "W"})
	}
	for _, w := range watchers {
		w.reset()
	}

	ctl.sweep("a")
	ctl.sweep("a") // second sweep must be inert

	for id, w := range watchers {
		assert.Len(t, w.named(t, "disconnected"), 1, "watcher %s", id)
		assert.Len(t, w.named(t, "room-users"), 1, "watcher %s", id)
		assert.Len(t, w.named(t, "user-left"), 1, "watcher %s", id)
	}
}

func TestJoinedNoticeAndSyncCode(t *testing.T) {
	ctl, reg := newTestController()
	a := connect(reg, "a")
	b := connect(reg, "b")
	send(t, ctl, "a", a, map[string]any{"event": "join", "roomId": "demo", "displayName": "Alice"})

	send(t, ctl, "b", b, map[string]any{"event": "join", "roomId": "demo", "displayName": "Bob"})
	joined := a.named(t, "joined")
	require.Len(t, joined, 1)
	assert.Equal(t, "b", joined[0]["connectionId"])
	assert.Equal(t, "Bob", joined[0]["displayName"])
	assert.Empty(t, b.named(t, "joined"), "newcomer gets presence, not its own notice")

	// Alice answers the notice with her buffer; only Bob sees it.
	send(t, ctl, "a", a, map[string]any{"event": "sync-code", "targetId": "b", "code": "print(1)"})
	sync := b.named(t, "sync-code")
	require.Len(t, sync, 1)
	assert.Equal(t, "print(1)", sync[0]["code"])
	assert.Empty(t, a.named(t, "sync-code"))
}

func TestDrawLineFanOut(t *testing.T) {
	ctl, reg := newTestController()
	a := connect(reg, "a")
	b := connect(reg, "b")
	send(t, ctl, "a", a, map[string]any{"event": "join-drawing-room", "roomId": "demo"})
	send(t, ctl, "b", b, map[string]any{"event": "join-drawing-room", "roomId": "demo"})

	send(t, ctl, "a", a, map[string]any{
		"event": "draw-line", "roomId": "demo",
		"x0": 1.0, "y0": 2.0, "x1": 3.0, "y1": 4.0,
		"color": "#ff0000", "tool": "rectangle",
	})

	got := b.named(t, "draw-line")
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0]["x0"])
	assert.Equal(t, 4.0, got[0]["y1"])
	assert.Equal(t, "rectangle", got[0]["tool"])
	assert.NotContains(t, got[0], "text", "empty text omitted")
	assert.Empty(t, a.named(t, "draw-line"))
}

func TestChatAndVoiceFanOut(t *testing.T) {
	ctl, reg := newTestController()
	a := connect(reg, "a")
	b := connect(reg, "b")
	send(t, ctl, "a", a, map[string]any{"event": "join-chat-room", "roomId": "demo"})
	send(t, ctl, "b", b, map[string]any{"event": "join-chat-room", "roomId": "demo"})

	send(t, ctl, "a", a, map[string]any{"event": "send-message", "roomId": "demo", "username": "Alice", "message": "hi"})
	msgs := b.named(t, "receive-message")
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0]["message"])
	assert.NotZero(t, msgs[0]["timestamp"], "server stamps unstamped messages")
	assert.Empty(t, a.named(t, "receive-message"))

	send(t, ctl, "a", a, map[string]any{"event": "typing", "roomId": "demo", "username": "Alice"})
	require.Len(t, b.named(t, "typing"), 1)

	chunk := []byte{0x01, 0x02, 0xff}
	send(t, ctl, "a", a, map[string]any{"event": "voice-chunk", "roomId": "demo", "chunk": chunk})
	voiced := b.named(t, "receive-voice-chunk")
	require.Len(t, voiced, 1)
	assert.Equal(t, "AQL/", voiced[0]["chunk"], "payload forwarded opaque, base64 on the wire")
}

func TestUserActivityUpdatesPresence(t *testing.T) {
	ctl, reg := newTestController()
	a := connect(reg, "a")
	b := connect(reg, "b")
	send(t, ctl, "a", a, map[string]any{"event": "join", "roomId": "demo", "displayName": "Alice"})
	b.reset()

	send(t, ctl, "b", b, map[string]any{"event": "user-activity", "roomId": "demo", "activity": "typing"})
	assert.Empty(t, b.events(t), "non-member activity is ignored")

	a.reset()
	send(t, ctl, "a", a, map[string]any{"event": "user-activity", "roomId": "demo", "activity": "typing"})
	snaps := a.named(t, "room-users")
	require.Len(t, snaps, 1)
	users := snaps[0]["users"].([]any)
	assert.Equal(t, "typing", users[0].(map[string]any)["activity"])
}

func TestCommentsAreRoomScoped(t *testing.T) {
	ctl, reg := newTestController()
	a := connect(reg, "a")
	b := connect(reg, "b")
	outsider := connect(reg, "c")
	send(t, ctl, "a", a, map[string]any{"event": "join-file-room", "roomId": "demo"})
	send(t, ctl, "b", b, map[string]any{"event": "join-file-room", "roomId": "demo"})
	send(t, ctl, "c", outsider, map[string]any{"event": "join-file-room", "roomId": "elsewhere"})

	ctl.PublishFileUploaded("demo", domain.FileMeta{ID: "f1", Name: "notes.txt", URL: "/uploads/f1.txt"})
	require.Len(t, a.named(t, "file-uploaded"), 1)
	require.Len(t, b.named(t, "file-uploaded"), 1)
	assert.Empty(t, outsider.named(t, "file-uploaded"))

	send(t, ctl, "a", a, map[string]any{"event": "add-comment", "fileId": "f1", "comment": map[string]any{"author": "Alice", "text": "nice"}})
	require.Len(t, a.named(t, "new-comment"), 1, "commenter sees it too")
	require.Len(t, b.named(t, "new-comment"), 1)
	assert.Empty(t, outsider.named(t, "new-comment"), "comment stays in the owning room")

	outsider.reset()
	send(t, ctl, "a", a, map[string]any{"event": "add-comment", "fileId": "ghost", "comment": map[string]any{"author": "Alice", "text": "?"}})
	assert.Empty(t, a.named(t, "new-comment")[1:], "unknown file is dropped")

	late := connect(reg, "d")
	send(t, ctl, "d", late, map[string]any{"event": "join-file-room", "roomId": "demo"})
	lists := late.named(t, "file-list")
	require.Len(t, lists, 1)
	files := lists[0]["files"].([]any)
	require.Len(t, files, 1, "late joiner sees shared files")
	assert.Len(t, files[0].(map[string]any)["comments"], 1)
}

func TestKanbanRelay(t *testing.T) {
	ctl, reg := newTestController()
	a := connect(reg, "a")
	b := connect(reg, "b")
	send(t, ctl, "a", a, map[string]any{"event": "join-kanban-room", "roomId": "demo"})

	boards := a.named(t, "board-data")
	require.Len(t, boards, 1, "joiner gets the board snapshot")
	require.Len(t, a.named(t, "activity-log"), 1)

	send(t, ctl, "a", a, map[string]any{
		"event": "add-task", "roomId": "demo", "column": "todo",
		"task": map[string]any{"id": "t1", "title": "write tests", "priority": "high"},
	})
	added := a.named(t, "task-added")
	require.Len(t, added, 1, "kanban deltas reach the sender too")
	assert.Equal(t, "todo", added[0]["column"])
	require.Len(t, a.named(t, "activity-log"), 2)

	send(t, ctl, "b", b, map[string]any{"event": "join-kanban-room", "roomId": "demo"})
	boards = b.named(t, "board-data")
	require.Len(t, boards, 1)
	tasks := boards[0]["tasks"].(map[string]any)
	assert.Len(t, tasks["todo"], 1, "late joiner sees live board state")

	a.reset()
	b.reset()
	send(t, ctl, "a", a, map[string]any{"event": "move-task", "roomId": "demo", "taskId": "t1", "from": "todo", "to": "done"})
	require.Len(t, b.named(t, "task-moved"), 1)
	require.Len(t, b.named(t, "activity-log"), 1)

	a.reset()
	b.reset()
	send(t, ctl, "a", a, map[string]any{"event": "move-task", "roomId": "demo", "taskId": "t1", "from": "todo", "to": "done"})
	assert.Empty(t, a.events(t), "move of an id absent from source is silent")
	assert.Empty(t, b.events(t))
}

func TestVideoMeshThirdJoiner(t *testing.T) {
	ctl, reg := newTestController()
	a := connect(reg, "a")
	b := connect(reg, "b")
	c := connect(reg, "c")
	send(t, ctl, "a", a, map[string]any{"event": "join-video-room", "roomId": "call"})
	send(t, ctl, "b", b, map[string]any{"event": "join-video-room", "roomId": "call"})
	a.reset()
	b.reset()

	send(t, ctl, "c", c, map[string]any{"event": "join-video-room", "roomId": "call"})

	all := c.named(t, "all-users")
	require.Len(t, all, 1)
	assert.Equal(t, []any{"a", "b"}, all[0]["users"], "existing peers in join order")

	for name, peer := range map[string]*fakeConn{"a": a, "b": b} {
		joined := peer.named(t, "user-joined")
		require.Len(t, joined, 1, "peer %s", name)
		assert.Equal(t, "c", joined[0]["connectionId"])
	}
	assert.Empty(t, c.named(t, "user-joined"), "joiner is not told about itself")
}

func TestSignalingIsPointToPoint(t *testing.T) {
	ctl, reg := newTestController()
	a := connect(reg, "a")
	b := connect(reg, "b")
	c := connect(reg, "c")
	for id, conn := range map[domain.ConnID]*fakeConn{"a": a, "b": b, "c": c} {
		send(t, ctl, id, conn, map[string]any{"event": "join-video-room", "roomId": "call"})
	}
	a.reset()
	b.reset()
	c.reset()

	send(t, ctl, "a", a, map[string]any{
		"event": "send-offer", "targetId": "b",
		"offer": map[string]any{"type": "offer", "sdp": "v=0"},
	})
	offers := b.named(t, "receive-offer")
	require.Len(t, offers, 1)
	assert.Equal(t, "a", offers[0]["from"], "forward is tagged with the sender")
	assert.Equal(t, "v=0", offers[0]["offer"].(map[string]any)["sdp"])
	assert.Empty(t, c.events(t), "no broadcast in signaling")

	send(t, ctl, "b", b, map[string]any{
		"event": "send-answer", "targetId": "a",
		"answer": map[string]any{"type": "answer", "sdp": "v=0"},
	})
	require.Len(t, a.named(t, "receive-answer"), 1)

	send(t, ctl, "a", a, map[string]any{
		"event": "send-ice-candidate", "targetId": "b",
		"candidate": map[string]any{"candidate": "candidate:1 1 UDP 1 0.0.0.0 9 typ host"},
	})
	cands := b.named(t, "receive-ice-candidate")
	require.Len(t, cands, 1)
	assert.Equal(t, "a", cands[0]["from"])

	// A vanished target is dropped without telling the sender.
	a.reset()
	send(t, ctl, "a", a, map[string]any{
		"event": "send-offer", "targetId": "ghost",
		"offer": map[string]any{"type": "offer", "sdp": "v=0"},
	})
	assert.Empty(t, a.events(t))
}

func TestLeaveVideoRoomAnnouncesUserLeft(t *testing.T) {
	ctl, reg := newTestController()
	a := connect(reg, "a")
	b := connect(reg, "b")
	send(t, ctl, "a", a, map[string]any{"event": "join-video-room", "roomId": "call"})
	send(t, ctl, "b", b, map[string]any{"event": "join-video-room", "roomId": "call"})
	a.reset()

	send(t, ctl, "b", b, map[string]any{"event": "leave-video-room", "roomId": "call"})
	left := a.named(t, "user-left")
	require.Len(t, left, 1)
	assert.Equal(t, "b", left[0]["connectionId"])
}

func TestMalformedAndUnknownFramesAreDropped(t *testing.T) {
	ctl, reg := newTestController()
	a := connect(reg, "a")
	b := connect(reg, "b")
	send(t, ctl, "a", a, map[string]any{"event": "join", "roomId": "demo", "displayName": "Alice"})
	send(t, ctl, "b", b, map[string]any{"event": "join", "roomId": "demo", "displayName": "Bob"})
	a.reset()
	b.reset()

	ctl.dispatch("a", a, []byte("{not json"))
	send(t, ctl, "a", a, map[string]any{"event": "no-such-event"})
	send(t, ctl, "a", a, map[string]any{"event": "code-change", "code": "x"}) // missing roomId

	assert.Empty(t, a.events(t))
	assert.Empty(t, b.events(t), "malformed input never propagates")
}

func TestPing(t *testing.T) {
	ctl, reg := newTestController()
	a := connect(reg, "a")
	send(t, ctl, "a", a, map[string]any{"event": "ping"})
	require.Len(t, a.named(t, "pong"), 1)
}
