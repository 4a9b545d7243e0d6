package core

import "github.com/okulov/liveclass/internal/domain"

// Outbound intents, one type per wire message the client can send.
// The signal adapter owns the encoding.

type JoinRoom struct {
	RoomID      domain.RoomID
	DisplayName string
	Role        domain.Role
	PeerID      domain.PeerID
}

type SendChat struct {
	RoomID domain.RoomID
	Text   string
	Sender string
}

type ToggleMic struct {
	RoomID domain.RoomID
	Value  bool
}

type ToggleVideo struct {
	RoomID domain.RoomID
	Value  bool
}

type LeaveRoom struct {
	RoomID domain.RoomID
}

type ReportAnalysis struct {
	RoomID domain.RoomID
	PeerID domain.PeerID
	Result domain.AnalysisResult
}

// SendOffer, SendAnswer and SendCandidate are relayed verbatim to the
// addressed peer for link negotiation.

type SendOffer struct {
	To  domain.PeerID
	SDP string
}

type SendAnswer struct {
	To  domain.PeerID
	SDP string
}

type SendCandidate struct {
	To        domain.PeerID
	Candidate ICECandidate
}

func (JoinRoom) isOutbound()       {}
func (SendChat) isOutbound()       {}
func (ToggleMic) isOutbound()      {}
func (ToggleVideo) isOutbound()    {}
func (LeaveRoom) isOutbound()      {}
func (ReportAnalysis) isOutbound() {}
func (SendOffer) isOutbound()      {}
func (SendAnswer) isOutbound()     {}
func (SendCandidate) isOutbound()  {}
