package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/okulov/liveclass/internal/core"
	"github.com/okulov/liveclass/internal/domain"
)

// CaptureLoop runs the capture → analyze → report cycle for the
// capturing role. It is a single self-rescheduling task, not a fixed
// interval: a successful cycle schedules the next one with no delay,
// bounded only by the network round trip; a not-ready frame or a
// failed submission reschedules after the fixed retry delay.
type CaptureLoop struct {
	frames     core.FrameSource
	analyzer   core.Analyzer
	report     func(domain.AnalysisResult)
	retryDelay time.Duration

	// after is swappable so tests control the reschedule clock.
	after func(time.Duration) <-chan time.Time
}

func NewCaptureLoop(frames core.FrameSource, analyzer core.Analyzer, report func(domain.AnalysisResult), retryDelay time.Duration) *CaptureLoop {
	return &CaptureLoop{
		frames:     frames,
		analyzer:   analyzer,
		report:     report,
		retryDelay: retryDelay,
		after:      time.After,
	}
}

// Run cycles until ctx is done. Cancellation is checked before every
// reschedule and again after every completed network call, so a
// cancelled loop performs no further side effects even when an
// in-flight request resolves late.
func (cl *CaptureLoop) Run(ctx context.Context) {
	log.Info().Str("module", "app.capture").Msg("capture loop started")
	defer log.Info().Str("module", "app.capture").Msg("capture loop stopped")

	for ctx.Err() == nil {
		frame, err := cl.frames.Frame()
		if err != nil {
			// Not-ready frames are a retryable precondition, not an
			// error; nothing is submitted this cycle.
			log.Debug().Err(err).Str("module", "app.capture").Msg("frame not ready")
			if !cl.wait(ctx) {
				return
			}
			continue
		}

		result, err := cl.analyzer.Analyze(ctx, frame)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Warn().Err(err).Str("module", "app.capture").Msg("analysis failed, will retry")
			if !cl.wait(ctx) {
				return
			}
			continue
		}

		cl.report(result)
		// Back-to-back sampling: reschedule immediately on success.
	}
}

func (cl *CaptureLoop) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-cl.after(cl.retryDelay):
		return true
	}
}
