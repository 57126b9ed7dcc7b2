// Package status serves the transceiver counters over HTTP.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/norasector/faketrx/pkg/trx/link"
	"github.com/rs/zerolog/log"
)

type StatsProvider interface {
	Stats() link.Stats
}

type Server struct {
	srv      *http.Server
	provider StatsProvider
	started  time.Time
}

type statsResponse struct {
	UptimeSeconds float64    `json:"uptime_seconds"`
	Link          link.Stats `json:"link"`
}

func NewServer(port int, provider StatsProvider) *Server {
	s := &Server{
		provider: provider,
		started:  time.Now(),
		srv:      &http.Server{Addr: fmt.Sprintf(":%d", port)},
	}
	s.srv.Handler = s.Handler()
	return s
}

func (s *Server) Handler() http.Handler {
	handler := httprouter.New()
	handler.GET("/healthz", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	handler.GET("/stats", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		resp := statsResponse{
			UptimeSeconds: time.Since(s.started).Seconds(),
			Link:          s.provider.Stats(),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Warn().Err(err).Msg("error writing stats")
		}
	})
	return handler
}

func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	log.Info().Str("addr", s.srv.Addr).Msg("status server starting")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
