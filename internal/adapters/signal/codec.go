package signal

import (
	"encoding/json"
	"fmt"

	"github.com/okulov/liveclass/internal/core"
	"github.com/okulov/liveclass/internal/domain"
)

// wireMessage is the envelope for every message in either direction.
type wireMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants.
const (
	typeJoin               = "join"
	typeLeave              = "leave"
	typeChatMessage        = "chat-message"
	typeToggleMic          = "toggle-mic"
	typeToggleVideo        = "toggle-video"
	typeAnalysisReport     = "analysis-report"
	typeRosterSnapshot     = "roster-snapshot"
	typeParticipantJoined  = "participant-joined"
	typeParticipantLeft    = "participant-left"
	typeParticipantUpdated = "participant-updated"
	typeOffer              = "offer"
	typeAnswer             = "answer"
	typeCandidate          = "candidate"
)

type joinPayload struct {
	RoomID      domain.RoomID `json:"roomId"`
	DisplayName string        `json:"displayName"`
	Role        domain.Role   `json:"role"`
	PeerID      domain.PeerID `json:"peerIdentity"`
}

type chatOutPayload struct {
	RoomID domain.RoomID `json:"roomId"`
	Text   string        `json:"text"`
	Sender string        `json:"sender"`
}

type togglePayload struct {
	RoomID domain.RoomID `json:"roomId"`
	Value  bool          `json:"value"`
}

type leavePayload struct {
	RoomID domain.RoomID `json:"roomId"`
}

type analysisPayload struct {
	RoomID      domain.RoomID         `json:"roomId,omitempty"`
	PeerID      domain.PeerID         `json:"peerIdentity"`
	APIResponse domain.AnalysisResult `json:"apiResponse"`
}

type leftPayload struct {
	ID     domain.ParticipantID `json:"id"`
	PeerID domain.PeerID        `json:"peerIdentity,omitempty"`
}

type patchPayload struct {
	ID domain.ParticipantID `json:"id"`
	domain.ParticipantPatch
}

// sdpPayload carries relayed offers and answers. To is set on the way
// out, From on the way in; the server swaps them.
type sdpPayload struct {
	To   domain.PeerID `json:"to,omitempty"`
	From domain.PeerID `json:"from,omitempty"`
	SDP  string        `json:"sdp"`
}

type candidatePayload struct {
	To        domain.PeerID     `json:"to,omitempty"`
	From      domain.PeerID     `json:"from,omitempty"`
	Candidate core.ICECandidate `json:"candidate"`
}

func encode(out core.Outbound) (wireMessage, error) {
	var (
		typ     string
		payload any
	)
	switch o := out.(type) {
	case core.JoinRoom:
		typ = typeJoin
		payload = joinPayload{RoomID: o.RoomID, DisplayName: o.DisplayName, Role: o.Role, PeerID: o.PeerID}
	case core.SendChat:
		typ = typeChatMessage
		payload = chatOutPayload{RoomID: o.RoomID, Text: o.Text, Sender: o.Sender}
	case core.ToggleMic:
		typ = typeToggleMic
		payload = togglePayload{RoomID: o.RoomID, Value: o.Value}
	case core.ToggleVideo:
		typ = typeToggleVideo
		payload = togglePayload{RoomID: o.RoomID, Value: o.Value}
	case core.LeaveRoom:
		typ = typeLeave
		payload = leavePayload{RoomID: o.RoomID}
	case core.ReportAnalysis:
		typ = typeAnalysisReport
		payload = analysisPayload{RoomID: o.RoomID, PeerID: o.PeerID, APIResponse: o.Result}
	case core.SendOffer:
		typ = typeOffer
		payload = sdpPayload{To: o.To, SDP: o.SDP}
	case core.SendAnswer:
		typ = typeAnswer
		payload = sdpPayload{To: o.To, SDP: o.SDP}
	case core.SendCandidate:
		typ = typeCandidate
		payload = candidatePayload{To: o.To, Candidate: o.Candidate}
	default:
		return wireMessage{}, fmt.Errorf("unencodable outbound %T", out)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return wireMessage{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return wireMessage{Type: typ, Payload: raw}, nil
}

func decode(msg wireMessage) (core.Event, error) {
	switch msg.Type {
	case typeRosterSnapshot:
		var list []domain.Participant
		if err := json.Unmarshal(msg.Payload, &list); err != nil {
			return nil, fmt.Errorf("bad roster snapshot: %w", err)
		}
		return core.RosterSnapshot{Participants: list}, nil

	case typeParticipantJoined:
		var p domain.Participant
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("bad participant-joined: %w", err)
		}
		return core.ParticipantJoined{Participant: p}, nil

	case typeParticipantLeft:
		var p leftPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("bad participant-left: %w", err)
		}
		return core.ParticipantLeft{ID: p.ID, PeerID: p.PeerID}, nil

	case typeChatMessage:
		var m domain.ChatMessage
		if err := json.Unmarshal(msg.Payload, &m); err != nil {
			return nil, fmt.Errorf("bad chat-message: %w", err)
		}
		return core.ChatReceived{Message: m}, nil

	case typeParticipantUpdated:
		var p patchPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("bad participant-updated: %w", err)
		}
		return core.ParticipantPatched{ID: p.ID, Patch: p.ParticipantPatch}, nil

	case typeAnalysisReport:
		var p analysisPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("bad analysis-report: %w", err)
		}
		return core.AnalysisReported{PeerID: p.PeerID, Result: p.APIResponse}, nil

	case typeOffer:
		var p sdpPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("bad offer: %w", err)
		}
		return core.OfferReceived{From: p.From, SDP: p.SDP}, nil

	case typeAnswer:
		var p sdpPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("bad answer: %w", err)
		}
		return core.AnswerReceived{From: p.From, SDP: p.SDP}, nil

	case typeCandidate:
		var p candidatePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("bad candidate: %w", err)
		}
		return core.CandidateReceived{From: p.From, Candidate: p.Candidate}, nil
	}
	return nil, fmt.Errorf("unknown signal type %q", msg.Type)
}
