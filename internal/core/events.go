package core

import "github.com/okulov/liveclass/internal/domain"

// Event is the typed sum of everything that can mutate room state or
// drive a peer action. Signaling events and peer-link callbacks are
// funneled through one queue so processing order stays explicit and
// testable without a live network.
type Event interface{ isEvent() }

// RosterSnapshot carries the full participant list, delivered once per
// signaling connection. It seeds outgoing calls: the local client is
// the initiator toward every peer already present.
type RosterSnapshot struct {
	Participants []domain.Participant
}

type ParticipantJoined struct {
	Participant domain.Participant
}

type ParticipantLeft struct {
	ID     domain.ParticipantID
	PeerID domain.PeerID
}

type ChatReceived struct {
	Message domain.ChatMessage
}

type ParticipantPatched struct {
	ID    domain.ParticipantID
	Patch domain.ParticipantPatch
}

type AnalysisReported struct {
	PeerID domain.PeerID
	Result domain.AnalysisResult
}

// ConnState reflects the signaling connection only. It never tears
// down peer links by itself.
type ConnState struct {
	Connected bool
}

// OfferReceived, AnswerReceived and CandidateReceived are the relayed
// peer negotiation messages, addressed by the remote peer identity.
type OfferReceived struct {
	From domain.PeerID
	SDP  string
}

type AnswerReceived struct {
	From domain.PeerID
	SDP  string
}

type CandidateReceived struct {
	From      domain.PeerID
	Candidate ICECandidate
}

// ICECandidate is the transport-neutral candidate form carried over
// signaling. The rtc adapter converts it to and from pion's type.
type ICECandidate struct {
	Candidate     string `json:"candidate"`
	SDPMid        string `json:"sdpMid,omitempty"`
	SDPMLineIndex uint16 `json:"sdpMLineIndex,omitempty"`
}

// StreamAdded and StreamRemoved are posted by the peer-link layer when
// a remote media stream comes up or a link dies. They may arrive
// before or after the matching roster event.
type StreamAdded struct {
	PeerID domain.PeerID
	Stream RemoteStream
}

type StreamRemoved struct {
	PeerID domain.PeerID
}

// SetLocalMuted and SetLocalVideoOn are local-only mutations.
type SetLocalMuted struct {
	Muted bool
}

type SetLocalVideoOn struct {
	VideoOn bool
}

func (RosterSnapshot) isEvent()     {}
func (ParticipantJoined) isEvent()  {}
func (ParticipantLeft) isEvent()    {}
func (ChatReceived) isEvent()       {}
func (ParticipantPatched) isEvent() {}
func (AnalysisReported) isEvent()   {}
func (ConnState) isEvent()          {}
func (OfferReceived) isEvent()      {}
func (AnswerReceived) isEvent()     {}
func (CandidateReceived) isEvent()  {}
func (StreamAdded) isEvent()        {}
func (StreamRemoved) isEvent()      {}
func (SetLocalMuted) isEvent()      {}
func (SetLocalVideoOn) isEvent()    {}
