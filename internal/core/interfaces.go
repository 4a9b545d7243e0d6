package core

import (
	"context"
	"errors"
	"image"

	"github.com/pion/webrtc/v4"

	"github.com/okulov/liveclass/internal/domain"
)

// ErrFrameNotReady is a retryable precondition failure, not an error
// worth surfacing: the capture stream exists but is not producing
// frames yet.
var ErrFrameNotReady = errors.New("capture frame not ready")

// SignalChannel is the persistent connection to the room-coordination
// server. Owned by the session; the session must Close() it.
type SignalChannel interface {
	// Run connects and keeps the channel alive until ctx is done,
	// re-dialing with a fixed backoff. hello is re-sent after every
	// successful (re)connect.
	Run(ctx context.Context, hello Outbound) error
	// Emit queues an outbound intent. Delivery is at-least-once while
	// connected; nothing is replayed across reconnects.
	Emit(Outbound)
	// Events delivers decoded inbound events in arrival order.
	Events() <-chan Event
	Close()
}

// Outbound is a room-level intent ready for the wire.
type Outbound interface{ isOutbound() }

// RemoteStream is a live remote media stream published by a peer link.
type RemoteStream interface {
	PeerID() domain.PeerID
	// Tracks returns the remote tracks received so far.
	Tracks() []*webrtc.TrackRemote
}

// MediaSource owns the local capture devices. Exactly one instance
// exists per session and only it may stop the tracks.
type MediaSource interface {
	// Acquire opens camera and microphone. A device error is fatal to
	// local media only; the session continues without it.
	Acquire(ctx context.Context) error
	// Tracks returns the local tracks to attach to peer links, or nil
	// when acquisition has not completed.
	Tracks() []webrtc.TrackLocal
	Close()
}

// FrameSource samples single frames from the dedicated capture stream.
type FrameSource interface {
	// Frame returns the latest frame, or ErrFrameNotReady while the
	// capture stream is absent or has zero dimensions.
	Frame() (image.Image, error)
}

// Analyzer submits one frame to the remote analysis endpoint.
type Analyzer interface {
	Analyze(ctx context.Context, frame image.Image) (domain.AnalysisResult, error)
}

// LinkDialer keeps at most one live media link per remote peer
// identity. Dialing an identity again closes and replaces the prior
// link. Closed links are never redialed automatically.
type LinkDialer interface {
	// Dial initiates a link toward peer using the given local tracks.
	// With no tracks it logs and does nothing: absence of local media
	// is a race the caller must not retry.
	Dial(peer domain.PeerID, tracks []webrtc.TrackLocal)
	// Accept answers an unsolicited offer with the current local
	// tracks, which may be empty.
	Accept(peer domain.PeerID, sdp string, tracks []webrtc.TrackLocal)
	HandleAnswer(peer domain.PeerID, sdp string)
	HandleCandidate(peer domain.PeerID, cand ICECandidate)
	Close(peer domain.PeerID)
	CloseAll()
}
