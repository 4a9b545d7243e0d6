package core

import (
	"sync"

	"github.com/okulov/liveclass/internal/domain"

	"github.com/rs/zerolog/log"
)

// LocalState is the implicit projection of the local user. It is
// tracked apart from the roster and never appears in it.
type LocalState struct {
	Muted   bool `json:"isMuted"`
	VideoOn bool `json:"isVideoOn"`
}

// RoomState is one immutable snapshot of the room as seen locally:
// roster, chat log, per-peer analysis results and live remote streams.
// Mutations go through Reduce, which always returns a fresh snapshot.
type RoomState struct {
	Roster    []domain.Participant                    `json:"participants"`
	Chat      []domain.ChatMessage                    `json:"chat"`
	Analysis  map[domain.PeerID]domain.AnalysisResult `json:"analysis"`
	Streams   map[domain.PeerID]RemoteStream          `json:"-"`
	Local     LocalState                              `json:"local"`
	Connected bool                                    `json:"connected"`
}

func NewRoomState() RoomState {
	return RoomState{
		Analysis: map[domain.PeerID]domain.AnalysisResult{},
		Streams:  map[domain.PeerID]RemoteStream{},
		// Camera starts on, microphone open, matching the join intent.
		Local: LocalState{VideoOn: true},
	}
}

// Participant looks up a roster entry by id.
func (s RoomState) Participant(id domain.ParticipantID) (domain.Participant, bool) {
	for _, p := range s.Roster {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Participant{}, false
}

func (s RoomState) hasPeer(peer domain.PeerID) bool {
	for _, p := range s.Roster {
		if p.PeerID == peer {
			return true
		}
	}
	return false
}

func (s RoomState) clone() RoomState {
	next := s
	next.Roster = append([]domain.Participant(nil), s.Roster...)
	next.Chat = append([]domain.ChatMessage(nil), s.Chat...)
	next.Analysis = make(map[domain.PeerID]domain.AnalysisResult, len(s.Analysis))
	for k, v := range s.Analysis {
		next.Analysis[k] = v
	}
	next.Streams = make(map[domain.PeerID]RemoteStream, len(s.Streams))
	for k, v := range s.Streams {
		next.Streams[k] = v
	}
	return next
}

// Reduce applies one event and returns the next snapshot. It is a pure
// function: the input state is never modified, so observers never see
// torn state.
func Reduce(s RoomState, ev Event) RoomState {
	switch e := ev.(type) {
	case RosterSnapshot:
		next := s.clone()
		next.Roster = append([]domain.Participant(nil), e.Participants...)
		// A fresh snapshot is authoritative: drop analysis entries for
		// peers no longer present.
		for peer := range next.Analysis {
			if !next.hasPeer(peer) {
				delete(next.Analysis, peer)
			}
		}
		return next

	case ParticipantJoined:
		next := s.clone()
		next.Roster = append(next.Roster, e.Participant)
		next.Chat = append(next.Chat, domain.NewSystemMessage(e.Participant.Name+" joined the class"))
		return next

	case ParticipantLeft:
		next := s.clone()
		kept := next.Roster[:0]
		var name string
		for _, p := range next.Roster {
			if p.ID == e.ID {
				name = p.Name
				continue
			}
			kept = append(kept, p)
		}
		next.Roster = kept
		// Leave purges the analysis result and the live stream entry in
		// the same update.
		if e.PeerID != "" {
			delete(next.Analysis, e.PeerID)
			delete(next.Streams, e.PeerID)
		}
		if name != "" {
			next.Chat = append(next.Chat, domain.NewSystemMessage(name+" left the class"))
		}
		return next

	case ChatReceived:
		next := s.clone()
		next.Chat = append(next.Chat, e.Message)
		return next

	case ParticipantPatched:
		next := s.clone()
		for i, p := range next.Roster {
			if p.ID == e.ID {
				next.Roster[i] = e.Patch.ApplyTo(p)
			}
		}
		return next

	case AnalysisReported:
		// Results are only stored for peers present in the roster;
		// reports overwrite, never merge.
		if !s.hasPeer(e.PeerID) {
			log.Debug().Str("module", "core.state").Str("peer", string(e.PeerID)).Msg("analysis report for unknown peer dropped")
			return s
		}
		next := s.clone()
		next.Analysis[e.PeerID] = e.Result
		return next

	case StreamAdded:
		next := s.clone()
		next.Streams[e.PeerID] = e.Stream
		return next

	case StreamRemoved:
		next := s.clone()
		delete(next.Streams, e.PeerID)
		return next

	case ConnState:
		next := s.clone()
		next.Connected = e.Connected
		return next

	case SetLocalMuted:
		next := s.clone()
		next.Local.Muted = e.Muted
		return next

	case SetLocalVideoOn:
		next := s.clone()
		next.Local.VideoOn = e.VideoOn
		return next
	}
	return s
}

// Store holds the current snapshot. Apply runs on the session's event
// loop only; Snapshot may be read from anywhere.
type Store struct {
	mu    sync.RWMutex
	state RoomState
}

func NewStore() *Store {
	return &Store{state: NewRoomState()}
}

func (st *Store) Apply(ev Event) RoomState {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state = Reduce(st.state, ev)
	return st.state
}

func (st *Store) Snapshot() RoomState {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state
}
