package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/okulov/liveclass/internal/adapters/analysis"
	router "github.com/okulov/liveclass/internal/adapters/http"
	"github.com/okulov/liveclass/internal/adapters/media"
	"github.com/okulov/liveclass/internal/adapters/rtc"
	signaling "github.com/okulov/liveclass/internal/adapters/signal"
	"github.com/okulov/liveclass/internal/app"
	"github.com/okulov/liveclass/internal/config"
	"github.com/okulov/liveclass/internal/core"
	"github.com/okulov/liveclass/internal/domain"
)

var (
	flagRoom string
	flagName string
	flagRole string
)

var rootCmd = &cobra.Command{
	Use:   "liveclass",
	Short: "Join a live class room: mesh video links, chat and attention analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagRoom, "room", "", "room identifier to join")
	rootCmd.Flags().StringVar(&flagName, "name", "", "display name")
	rootCmd.Flags().StringVar(&flagRole, "role", string(domain.RoleStudent), "role: teacher or student")
	_ = rootCmd.MarkFlagRequired("room")
	_ = rootCmd.MarkFlagRequired("name")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	rootCmd.SilenceUsage = true
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("liveclass exited")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	role, err := domain.ParseRole(flagRole)
	if err != nil {
		return err
	}

	sessionCfg := app.SessionConfig{
		RoomID:      domain.RoomID(flagRoom),
		DisplayName: flagName,
		Role:        role,
		PeerID:      domain.NewPeerID(),
	}

	source, err := media.NewSource(media.Config{
		Width:     cfg.CaptureWidth,
		Height:    cfg.CaptureHeight,
		FrameRate: cfg.CaptureFrameRate,
	})
	if err != nil {
		return err
	}

	sigClient := signaling.NewClient(cfg.SignalingURL, cfg.ReconnectDelay)
	store := core.NewStore()
	session := app.NewSession(sessionCfg, sigClient, source, store)
	session.SetLinks(rtc.NewManager(source.WebRTCAPI(), cfg.STUNServers, sigClient, session.NotifyPeerEvent))

	if role == domain.RoleStudent {
		frames, err := source.OpenCapture(ctx)
		if err != nil {
			// Same policy as the room stream: report once, run without.
			log.Error().Err(err).Msg("capture stream unavailable, analysis disabled")
		} else {
			analyzer := analysis.NewClient(cfg.AnalysisURL, cfg.AnalysisTimeout)
			session.SetCaptureLoop(app.NewCaptureLoop(frames, analyzer, func(r domain.AnalysisResult) {
				sigClient.Emit(core.ReportAnalysis{RoomID: sessionCfg.RoomID, PeerID: sessionCfg.PeerID, Result: r})
			}, cfg.RetryDelay))
		}
	}

	var srv *http.Server
	if role == domain.RoleTeacher && cfg.StatusAddr != "" {
		srv = &http.Server{
			Addr:    cfg.StatusAddr,
			Handler: router.SetupRouter(cfg.Mode, session),
		}
		go func() {
			log.Info().Str("addr", cfg.StatusAddr).Msg("status server started")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("status server error")
			}
		}()
	}

	err = session.Run(ctx)

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			log.Error().Err(serr).Msg("status server forced to shutdown")
		}
	}
	log.Info().Msg("session exited gracefully")
	return err
}
