// Package media owns the local capture devices: the room stream sent
// to peers and the dedicated capture track sampled by the analysis
// loop. Exactly one Source exists per session and only it stops the
// tracks.
package media

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	_ "github.com/pion/mediadevices/pkg/driver/camera"     // registers the camera adapter
	_ "github.com/pion/mediadevices/pkg/driver/microphone" // registers the microphone adapter
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/okulov/liveclass/internal/core"
)

// Config carries the capture constraints.
type Config struct {
	Width     int
	Height    int
	FrameRate float32
}

// Source acquires and owns the local media stream.
type Source struct {
	cfg      Config
	selector *mediadevices.CodecSelector

	mu      sync.Mutex
	stream  mediadevices.MediaStream
	capture mediadevices.MediaStream
}

func NewSource(cfg Config) (*Source, error) {
	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, fmt.Errorf("vp8 params: %w", err)
	}
	vpxParams.BitRate = 500_000
	vpxParams.KeyFrameInterval = 15

	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, fmt.Errorf("opus params: %w", err)
	}

	selector := mediadevices.NewCodecSelector(
		mediadevices.WithVideoEncoders(&vpxParams),
		mediadevices.WithAudioEncoders(&opusParams),
	)

	return &Source{cfg: cfg, selector: selector}, nil
}

// WebRTCAPI builds a pion API whose media engine matches the local
// codecs. Peer links must be created through it so local tracks bind.
func (s *Source) WebRTCAPI() *webrtc.API {
	engine := webrtc.MediaEngine{}
	s.selector.Populate(&engine)
	return webrtc.NewAPI(webrtc.WithMediaEngine(&engine))
}

// Acquire opens camera and microphone for the room stream. A denied or
// missing device is fatal to local media only: the caller reports it
// once and the session continues without tracks.
func (s *Source) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.Width = prop.Int(s.cfg.Width)
			c.Height = prop.Int(s.cfg.Height)
			c.FrameRate = prop.Float(s.cfg.FrameRate)
			c.FrameFormat = prop.FrameFormat(frame.FormatYUY2)
		},
		Audio: func(c *mediadevices.MediaTrackConstraints) {
			c.SampleRate = prop.Int(48000)
			c.ChannelCount = prop.Int(1)
		},
		Codec: s.selector,
	})
	if err != nil {
		return fmt.Errorf("get user media: %w", err)
	}

	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()

	log.Info().Str("module", "media").Int("tracks", len(stream.GetTracks())).Msg("local media acquired")
	return nil
}

// Tracks returns the local tracks to attach to peer links, or nil when
// acquisition has not completed.
func (s *Source) Tracks() []webrtc.TrackLocal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return nil
	}
	var out []webrtc.TrackLocal
	for _, t := range s.stream.GetTracks() {
		out = append(out, t)
	}
	return out
}

// OpenCapture acquires the dedicated video-only capture stream and
// returns a frame source for the analysis loop.
func (s *Source) OpenCapture(ctx context.Context) (core.FrameSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.Width = prop.Int(s.cfg.Width)
			c.Height = prop.Int(s.cfg.Height)
			c.FrameRate = prop.Float(s.cfg.FrameRate)
		},
		Codec: s.selector,
	})
	if err != nil {
		return nil, fmt.Errorf("get capture media: %w", err)
	}

	var reader video.Reader
	for _, t := range stream.GetVideoTracks() {
		if vt, ok := t.(*mediadevices.VideoTrack); ok {
			reader = vt.NewReader(true)
			break
		}
	}
	if reader == nil {
		for _, t := range stream.GetTracks() {
			_ = t.Close()
		}
		return nil, fmt.Errorf("capture stream has no video track")
	}

	s.mu.Lock()
	s.capture = stream
	s.mu.Unlock()

	log.Info().Str("module", "media").Msg("capture stream opened")
	return &frameSource{reader: reader}, nil
}

// Close stops every track on both streams. It runs on every session
// exit path.
func (s *Source) Close() {
	s.mu.Lock()
	stream, capture := s.stream, s.capture
	s.stream, s.capture = nil, nil
	s.mu.Unlock()

	for _, st := range []mediadevices.MediaStream{stream, capture} {
		if st == nil {
			continue
		}
		for _, t := range st.GetTracks() {
			if err := t.Close(); err != nil {
				log.Error().Err(err).Str("module", "media").Str("track", t.ID()).Msg("track close")
			}
		}
	}
	log.Info().Str("module", "media").Msg("local media released")
}

// frameSource samples single frames from the capture reader.
type frameSource struct {
	mu     sync.Mutex
	reader video.Reader
}

func (f *frameSource) Frame() (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	img, release, err := f.reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	defer release()

	if img == nil || img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		return nil, core.ErrFrameNotReady
	}
	return img, nil
}
