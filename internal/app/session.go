// Package app orchestrates the room session: it wires local media,
// the signaling channel, the peer mesh and the state store, and
// serializes every mutation on a single event loop.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/okulov/liveclass/internal/core"
	"github.com/okulov/liveclass/internal/domain"
)

// SessionConfig is the immutable session input.
type SessionConfig struct {
	RoomID      domain.RoomID
	DisplayName string
	Role        domain.Role
	PeerID      domain.PeerID
}

// Session owns every handle of one live room session. All cross
// cutting state (signal channel, local stream, link table, store)
// lives here with a scoped lifetime; nothing is ambient.
type Session struct {
	cfg    SessionConfig
	signal core.SignalChannel
	media  core.MediaSource
	links  core.LinkDialer
	store  *core.Store

	capture *CaptureLoop

	peerEvents chan core.Event
	cmds       chan func()

	cancel   context.CancelFunc
	stopOnce sync.Once
}

func NewSession(cfg SessionConfig, sig core.SignalChannel, media core.MediaSource, store *core.Store) *Session {
	return &Session{
		cfg:        cfg,
		signal:     sig,
		media:      media,
		store:      store,
		peerEvents: make(chan core.Event, 64),
		cmds:       make(chan func(), 16),
	}
}

// SetLinks attaches the link manager. It is set after construction
// because the manager posts its events through NotifyPeerEvent.
func (s *Session) SetLinks(links core.LinkDialer) { s.links = links }

// SetCaptureLoop attaches the analysis loop; only the capturing role
// gets one.
func (s *Session) SetCaptureLoop(cl *CaptureLoop) { s.capture = cl }

// NotifyPeerEvent is the callback the link manager posts stream
// lifecycle events through. It must not block the rtc callbacks, so a
// full queue drops with a log instead.
func (s *Session) NotifyPeerEvent(ev core.Event) {
	select {
	case s.peerEvents <- ev:
	default:
		log.Warn().Str("module", "app.session").Msg("peer event queue full, dropped")
	}
}

// Snapshot exposes the current room state for observers.
func (s *Session) Snapshot() core.RoomState { return s.store.Snapshot() }

// Run drives the session until ctx is done or Leave is called. Media,
// links and the signaling connection are released on every exit path.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	defer func() {
		s.signal.Emit(core.LeaveRoom{RoomID: s.cfg.RoomID})
		s.links.CloseAll()
		s.media.Close()
		s.signal.Close()
		log.Info().Str("module", "app.session").Str("room", string(s.cfg.RoomID)).Msg("session closed")
	}()

	if err := s.media.Acquire(ctx); err != nil {
		// Reported once; the session continues and peer links carry no
		// local tracks.
		log.Error().Err(err).Str("module", "app.session").Msg("camera/microphone unavailable, continuing without local media")
	}

	hello := core.JoinRoom{
		RoomID:      s.cfg.RoomID,
		DisplayName: s.cfg.DisplayName,
		Role:        s.cfg.Role,
		PeerID:      s.cfg.PeerID,
	}
	go func() {
		if err := s.signal.Run(ctx, hello); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("module", "app.session").Msg("signal channel stopped")
		}
	}()

	if s.capture != nil {
		go s.capture.Run(ctx)
	}

	log.Info().
		Str("module", "app.session").
		Str("room", string(s.cfg.RoomID)).
		Str("role", string(s.cfg.Role)).
		Str("peer", string(s.cfg.PeerID)).
		Msg("session started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-s.signal.Events():
			if !ok {
				return nil
			}
			s.handle(ev)
		case ev := <-s.peerEvents:
			s.handle(ev)
		case fn := <-s.cmds:
			fn()
		}
	}
}

// handle processes one event on the loop goroutine. Ordering within
// the signaling channel is arrival order; peer callbacks interleave
// with no ordering guarantee relative to roster events.
func (s *Session) handle(ev core.Event) {
	switch e := ev.(type) {
	case core.RosterSnapshot:
		s.store.Apply(ev)
		// The local client is the newcomer: it initiates toward every
		// peer already present. Later joiners dial us instead, so no
		// call is ever placed twice.
		for _, p := range e.Participants {
			if p.PeerID == "" || p.PeerID == s.cfg.PeerID {
				continue
			}
			s.links.Dial(p.PeerID, s.media.Tracks())
		}

	case core.ParticipantLeft:
		s.store.Apply(ev)
		if e.PeerID != "" {
			s.links.Close(e.PeerID)
		}

	case core.OfferReceived:
		if e.From == s.cfg.PeerID {
			return
		}
		s.links.Accept(e.From, e.SDP, s.media.Tracks())

	case core.AnswerReceived:
		s.links.HandleAnswer(e.From, e.SDP)

	case core.CandidateReceived:
		s.links.HandleCandidate(e.From, e.Candidate)

	default:
		s.store.Apply(ev)
	}
}

// do posts a command onto the loop so local intents are serialized
// with inbound events.
func (s *Session) do(fn func()) {
	select {
	case s.cmds <- fn:
	default:
		log.Warn().Str("module", "app.session").Msg("command queue full, dropped")
	}
}

// SendChat emits a chat intent. The message is appended to the log
// when the server echoes it back, keeping ordering identical for all
// participants.
func (s *Session) SendChat(text string) {
	if text == "" {
		return
	}
	s.signal.Emit(core.SendChat{RoomID: s.cfg.RoomID, Text: text, Sender: s.cfg.DisplayName})
}

// ToggleMic flips the local mute flag and announces it to the room.
func (s *Session) ToggleMic() {
	s.do(func() {
		muted := !s.store.Snapshot().Local.Muted
		s.store.Apply(core.SetLocalMuted{Muted: muted})
		s.signal.Emit(core.ToggleMic{RoomID: s.cfg.RoomID, Value: muted})
	})
}

// ToggleVideo flips the local camera flag and announces it.
func (s *Session) ToggleVideo() {
	s.do(func() {
		videoOn := !s.store.Snapshot().Local.VideoOn
		s.store.Apply(core.SetLocalVideoOn{VideoOn: videoOn})
		s.signal.Emit(core.ToggleVideo{RoomID: s.cfg.RoomID, Value: videoOn})
	})
}

// Leave ends the session; Run's teardown path does the rest.
func (s *Session) Leave() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}
