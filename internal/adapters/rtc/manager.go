package rtc

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/okulov/liveclass/internal/core"
	"github.com/okulov/liveclass/internal/domain"
)

// DefaultSTUNServers are the public servers used for NAT traversal.
// There is no TURN fallback: links behind symmetric NATs fail silently.
var DefaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// Emitter is the outbound half of the signaling channel the manager
// relays negotiation messages through.
type Emitter interface {
	Emit(core.Outbound)
}

// Manager keeps exactly one live media link per remote peer identity
// in a full mesh. It never redials on its own: a failed link is purged
// and the peer stays in the roster until it re-announces.
type Manager struct {
	api     *webrtc.API
	cfg     webrtc.Configuration
	emitter Emitter
	notify  func(core.Event)

	mu    sync.Mutex
	links map[domain.PeerID]*Link
}

// NewManager wires a link manager. api carries the media engine
// matching the local codecs (or pion defaults when no local media is
// available). notify receives StreamAdded/StreamRemoved events and
// must not block.
func NewManager(api *webrtc.API, stunServers []string, emitter Emitter, notify func(core.Event)) *Manager {
	if len(stunServers) == 0 {
		stunServers = DefaultSTUNServers
	}
	return &Manager{
		api: api,
		cfg: webrtc.Configuration{
			ICEServers: []webrtc.ICEServer{{URLs: stunServers}},
		},
		emitter: emitter,
		notify:  notify,
		links:   make(map[domain.PeerID]*Link),
	}
}

// Link returns the current link for peer, if any.
func (m *Manager) Link(peer domain.PeerID) (*Link, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[peer]
	return l, ok
}

// Dial initiates a link toward peer. With no local tracks it logs and
// returns: absence of local media is a race the caller resolves by not
// calling before acquisition completes.
func (m *Manager) Dial(peer domain.PeerID, tracks []webrtc.TrackLocal) {
	if len(tracks) == 0 {
		log.Warn().Str("module", "rtc").Str("peer", string(peer)).Msg("dial skipped, local media not ready")
		return
	}

	link, err := m.newLink(peer, LinkOutgoing, tracks)
	if err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("peer", string(peer)).Msg("dial")
		return
	}

	offer, err := link.pc.CreateOffer(nil)
	if err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("peer", string(peer)).Msg("create offer")
		m.drop(peer, link)
		return
	}
	if err := link.pc.SetLocalDescription(offer); err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("peer", string(peer)).Msg("set local offer")
		m.drop(peer, link)
		return
	}

	m.emitter.Emit(core.SendOffer{To: peer, SDP: offer.SDP})
	log.Info().Str("module", "rtc").Str("peer", string(peer)).Msg("dialing")
}

// Accept answers an unsolicited offer with the current local tracks.
// An empty track set produces a degenerate receive-only link rather
// than a rejection.
func (m *Manager) Accept(peer domain.PeerID, sdp string, tracks []webrtc.TrackLocal) {
	link, err := m.newLink(peer, LinkIncoming, tracks)
	if err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("peer", string(peer)).Msg("accept")
		return
	}

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := link.setRemoteDescription(offer); err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("peer", string(peer)).Msg("set remote offer")
		m.drop(peer, link)
		return
	}

	answer, err := link.pc.CreateAnswer(nil)
	if err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("peer", string(peer)).Msg("create answer")
		m.drop(peer, link)
		return
	}
	if err := link.pc.SetLocalDescription(answer); err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("peer", string(peer)).Msg("set local answer")
		m.drop(peer, link)
		return
	}

	m.emitter.Emit(core.SendAnswer{To: peer, SDP: answer.SDP})
	log.Info().Str("module", "rtc").Str("peer", string(peer)).Msg("accepted incoming call")
}

// HandleAnswer applies the remote answer on an outgoing link.
func (m *Manager) HandleAnswer(peer domain.PeerID, sdp string) {
	link, ok := m.Link(peer)
	if !ok {
		log.Warn().Str("module", "rtc").Str("peer", string(peer)).Msg("answer for unknown link")
		return
	}
	desc := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}
	if err := link.setRemoteDescription(desc); err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("peer", string(peer)).Msg("set remote answer")
	}
}

// HandleCandidate applies or buffers a relayed remote candidate.
func (m *Manager) HandleCandidate(peer domain.PeerID, cand core.ICECandidate) {
	link, ok := m.Link(peer)
	if !ok {
		log.Warn().Str("module", "rtc").Str("peer", string(peer)).Msg("candidate for unknown link")
		return
	}
	if err := link.addCandidate(toICEInit(cand)); err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("peer", string(peer)).Msg("add candidate")
	}
}

// Close tears down the link for peer, if any.
func (m *Manager) Close(peer domain.PeerID) {
	m.mu.Lock()
	link, ok := m.links[peer]
	if ok {
		delete(m.links, peer)
	}
	m.mu.Unlock()
	if ok {
		link.close()
	}
}

// CloseAll tears down every link on session teardown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	links := make([]*Link, 0, len(m.links))
	for _, l := range m.links {
		links = append(links, l)
	}
	m.links = make(map[domain.PeerID]*Link)
	m.mu.Unlock()
	for _, l := range links {
		l.close()
	}
}

// newLink creates a fresh link for peer, implicitly closing and
// replacing any prior one for the same identity.
func (m *Manager) newLink(peer domain.PeerID, state LinkState, tracks []webrtc.TrackLocal) (*Link, error) {
	pc, err := m.api.NewPeerConnection(m.cfg)
	if err != nil {
		return nil, err
	}

	link := &Link{
		peer:   peer,
		pc:     pc,
		state:  state,
		remote: &remoteStream{peer: peer},
	}

	for _, t := range tracks {
		if _, err := pc.AddTrack(t); err != nil {
			_ = pc.Close()
			return nil, err
		}
	}

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		m.emitter.Emit(core.SendCandidate{To: peer, Candidate: fromICEInit(cand.ToJSON())})
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "rtc").
			Str("peer", string(peer)).
			Str("kind", track.Kind().String()).
			Str("stream_id", track.StreamID()).
			Msg("remote track")
		link.remote.add(track)
		m.notify(core.StreamAdded{PeerID: peer, Stream: link.remote})
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("peer", string(peer)).Str("state", s.String()).Msg("peer state")
		switch s {
		case webrtc.PeerConnectionStateConnected:
			link.setState(LinkConnected)
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			m.dropIfCurrent(peer, link)
		}
	})

	m.mu.Lock()
	prev := m.links[peer]
	m.links[peer] = link
	m.mu.Unlock()
	if prev != nil {
		prev.close()
	}

	return link, nil
}

// drop removes link from the table if it is still current and closes
// it, publishing the stream removal.
func (m *Manager) drop(peer domain.PeerID, link *Link) {
	m.mu.Lock()
	if m.links[peer] == link {
		delete(m.links, peer)
	}
	m.mu.Unlock()
	link.close()
}

func (m *Manager) dropIfCurrent(peer domain.PeerID, link *Link) {
	m.mu.Lock()
	current := m.links[peer] == link
	if current {
		delete(m.links, peer)
	}
	m.mu.Unlock()
	link.close()
	if current {
		m.notify(core.StreamRemoved{PeerID: peer})
	}
}

func toICEInit(c core.ICECandidate) webrtc.ICECandidateInit {
	init := webrtc.ICECandidateInit{Candidate: c.Candidate}
	if c.SDPMid != "" {
		mid := c.SDPMid
		init.SDPMid = &mid
	}
	idx := c.SDPMLineIndex
	init.SDPMLineIndex = &idx
	return init
}

func fromICEInit(c webrtc.ICECandidateInit) core.ICECandidate {
	out := core.ICECandidate{Candidate: c.Candidate}
	if c.SDPMid != nil {
		out.SDPMid = *c.SDPMid
	}
	if c.SDPMLineIndex != nil {
		out.SDPMLineIndex = *c.SDPMLineIndex
	}
	return out
}
