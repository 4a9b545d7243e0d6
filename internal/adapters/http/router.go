// Package http serves the local read-only status API: the observer
// role's view of the room (roster, chat length, analysis results) and
// a health probe. It never mutates session state.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/okulov/liveclass/internal/core"
	"github.com/okulov/liveclass/internal/domain"
)

// StateSource is the session-side read surface the router exposes.
type StateSource interface {
	Snapshot() core.RoomState
}

type stateResponse struct {
	Connected    bool                                    `json:"connected"`
	Participants []domain.Participant                    `json:"participants"`
	ChatCount    int                                     `json:"chatCount"`
	Analysis     map[domain.PeerID]domain.AnalysisResult `json:"analysis"`
	LiveStreams  []domain.PeerID                         `json:"liveStreams"`
	Local        core.LocalState                         `json:"local"`
}

func SetupRouter(mode string, src StateSource) *gin.Engine {
	if mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api")
	api.GET("/state", func(c *gin.Context) {
		s := src.Snapshot()
		streams := make([]domain.PeerID, 0, len(s.Streams))
		for peer := range s.Streams {
			streams = append(streams, peer)
		}
		c.JSON(http.StatusOK, stateResponse{
			Connected:    s.Connected,
			Participants: s.Roster,
			ChatCount:    len(s.Chat),
			Analysis:     s.Analysis,
			LiveStreams:  streams,
			Local:        s.Local,
		})
	})

	log.Info().Str("module", "adapters.http").Msg("status router setup")
	return r
}
