package rtc

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/okulov/liveclass/internal/domain"
)

// LinkState is the lifecycle of one peer media link.
// Closed is terminal: identity reuse creates a fresh Link.
type LinkState int32

const (
	LinkIdle LinkState = iota
	LinkOutgoing
	LinkIncoming
	LinkConnected
	LinkClosed
)

func (s LinkState) String() string {
	switch s {
	case LinkIdle:
		return "idle"
	case LinkOutgoing:
		return "outgoing"
	case LinkIncoming:
		return "incoming"
	case LinkConnected:
		return "connected"
	case LinkClosed:
		return "closed"
	}
	return "unknown"
}

// Link is one direct media connection to a remote peer.
type Link struct {
	peer domain.PeerID
	pc   *webrtc.PeerConnection

	mu      sync.Mutex
	state   LinkState
	pending []webrtc.ICECandidateInit
	remote  *remoteStream

	closeOnce sync.Once
}

func (l *Link) Peer() domain.PeerID { return l.peer }

func (l *Link) State() LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Link) setState(s LinkState) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// setRemoteDescription applies the description and flushes candidates
// that arrived before it. pion rejects candidates until the remote
// description is set.
func (l *Link) setRemoteDescription(desc webrtc.SessionDescription) error {
	if err := l.pc.SetRemoteDescription(desc); err != nil {
		return err
	}
	l.mu.Lock()
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()
	for _, cand := range pending {
		if err := l.pc.AddICECandidate(cand); err != nil {
			log.Error().Err(err).Str("module", "rtc").Str("peer", string(l.peer)).Msg("flush buffered candidate")
		}
	}
	return nil
}

func (l *Link) addCandidate(cand webrtc.ICECandidateInit) error {
	l.mu.Lock()
	if l.pc.RemoteDescription() == nil {
		l.pending = append(l.pending, cand)
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()
	return l.pc.AddICECandidate(cand)
}

// PendingCandidates reports how many candidates are buffered waiting
// for the remote description.
func (l *Link) PendingCandidates() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

func (l *Link) close() {
	l.closeOnce.Do(func() {
		l.setState(LinkClosed)
		if err := l.pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "rtc").Str("peer", string(l.peer)).Msg("close error")
		} else {
			log.Info().Str("module", "rtc").Str("peer", string(l.peer)).Msg("link closed")
		}
	})
}

// remoteStream collects the remote tracks of one link.
type remoteStream struct {
	peer domain.PeerID

	mu     sync.Mutex
	tracks []*webrtc.TrackRemote
}

func (r *remoteStream) PeerID() domain.PeerID { return r.peer }

func (r *remoteStream) Tracks() []*webrtc.TrackRemote {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*webrtc.TrackRemote(nil), r.tracks...)
}

func (r *remoteStream) add(t *webrtc.TrackRemote) {
	r.mu.Lock()
	r.tracks = append(r.tracks, t)
	r.mu.Unlock()
}
