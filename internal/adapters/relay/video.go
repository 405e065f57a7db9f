package relay

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/tsenko/CollabSpace/internal/core"
	"github.com/tsenko/CollabSpace/internal/domain"
)

// handleJoinVideo wires the joiner into the room's full mesh: the joiner
// learns every existing peer at once, each existing peer learns the joiner
// individually, and every pair negotiates its own link from there.
func (ctl *Controller) handleJoinVideo(id domain.ConnID, conn core.Conn, data []byte) {
	type joinPayload struct {
		RoomID domain.RoomID `json:"roomId"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad join-video-room payload")
		return
	}
	if !ctl.reg.Join(id, p.RoomID, "") {
		return
	}
	ctl.publishPresence(p.RoomID)

	peers := make([]domain.ConnID, 0)
	for _, entry := range ctl.reg.Snapshot(p.RoomID) {
		if entry.ConnectionID != id {
			peers = append(peers, entry.ConnectionID)
		}
	}
	ctl.sendJSON(conn, struct {
		Event string          `json:"event"`
		Users []domain.ConnID `json:"users"`
	}{"all-users", peers})

	joined := struct {
		Event        string        `json:"event"`
		ConnectionID domain.ConnID `json:"connectionId"`
	}{"user-joined", id}
	for _, peer := range peers {
		ctl.sendTo(peer, joined)
	}
	log.Info().Str("module", "relay").Str("conn", string(id)).Str("room", string(p.RoomID)).Int("peers", len(peers)).Msg("joined video mesh")
}

func (ctl *Controller) handleLeaveVideo(id domain.ConnID, conn core.Conn, data []byte) {
	type leavePayload struct {
		RoomID domain.RoomID `json:"roomId"`
	}
	var p leavePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad leave-video-room payload")
		return
	}
	if ctl.reg.Leave(id, p.RoomID) {
		ctl.announceUserLeft(p.RoomID, id)
		ctl.publishPresence(p.RoomID)
	}
}

// announceUserLeft tells the room a peer is gone so the others tear down
// their side of the link. Shared with the disconnection sweep.
func (ctl *Controller) announceUserLeft(roomID domain.RoomID, id domain.ConnID) {
	resp := struct {
		Event        string        `json:"event"`
		ConnectionID domain.ConnID `json:"connectionId"`
	}{"user-left", id}
	ctl.broadcastRoom(roomID, id, resp)
}

// The three negotiation messages are strict point-to-point forwards. The
// payload is tagged with the sender's id so the recipient knows which peer
// link it belongs to; a vanished target is dropped without telling the
// sender, negotiation timeouts are an endpoint concern.

func (ctl *Controller) handleSendOffer(id domain.ConnID, conn core.Conn, data []byte) {
	type offerPayload struct {
		TargetID domain.ConnID             `json:"targetId"`
		Offer    webrtc.SessionDescription `json:"offer"`
	}
	var p offerPayload
	if err := json.Unmarshal(data, &p); err != nil || p.TargetID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad send-offer payload")
		return
	}
	ctl.sendTo(p.TargetID, struct {
		Event string                    `json:"event"`
		From  domain.ConnID             `json:"from"`
		Offer webrtc.SessionDescription `json:"offer"`
	}{"receive-offer", id, p.Offer})
}

func (ctl *Controller) handleSendAnswer(id domain.ConnID, conn core.Conn, data []byte) {
	type answerPayload struct {
		TargetID domain.ConnID             `json:"targetId"`
		Answer   webrtc.SessionDescription `json:"answer"`
	}
	var p answerPayload
	if err := json.Unmarshal(data, &p); err != nil || p.TargetID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad send-answer payload")
		return
	}
	ctl.sendTo(p.TargetID, struct {
		Event  string                    `json:"event"`
		From   domain.ConnID             `json:"from"`
		Answer webrtc.SessionDescription `json:"answer"`
	}{"receive-answer", id, p.Answer})
}

func (ctl *Controller) handleSendICECandidate(id domain.ConnID, conn core.Conn, data []byte) {
	type candidatePayload struct {
		TargetID  domain.ConnID           `json:"targetId"`
		Candidate webrtc.ICECandidateInit `json:"candidate"`
	}
	var p candidatePayload
	if err := json.Unmarshal(data, &p); err != nil || p.TargetID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad send-ice-candidate payload")
		return
	}
	ctl.sendTo(p.TargetID, struct {
		Event     string                  `json:"event"`
		From      domain.ConnID           `json:"from"`
		Candidate webrtc.ICECandidateInit `json:"candidate"`
	}{"receive-ice-candidate", id, p.Candidate})
}
