// Package trx is a virtual transceiver: uplink bursts received from L1 are
// passed through a simulated radio channel and handed back as downlink bursts.
package trx

import (
	"context"
	"errors"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/faketrx/pkg/trx/link"
	"github.com/norasector/faketrx/pkg/trx/sim"
	"github.com/norasector/faketrx/pkg/trx/status"
	"github.com/norasector/faketrx/pkg/util"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type TRX struct {
	link          *link.Link
	channel       *sim.Channel
	statusServer  *status.Server
	writeAPI      api.WriteAPI
	logger        zerolog.Logger
	statsInterval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

type TRXOption func(t *TRX) error

func WithInfluxDB(writeAPI api.WriteAPI) TRXOption {
	return func(t *TRX) error {
		t.writeAPI = writeAPI
		return nil
	}
}

func WithStatusServer(srv *status.Server) TRXOption {
	return func(t *TRX) error {
		t.statusServer = srv
		return nil
	}
}

func WithLogger(logger zerolog.Logger) TRXOption {
	return func(t *TRX) error {
		t.logger = logger
		return nil
	}
}

// WithStatsInterval sets how often link counters are reported. Zero disables reporting.
func WithStatsInterval(interval time.Duration) TRXOption {
	return func(t *TRX) error {
		if interval < 0 {
			return errors.New("stats interval must not be negative")
		}
		t.statsInterval = interval
		return nil
	}
}

func NewTRX(l *link.Link, ch *sim.Channel, opts ...TRXOption) (*TRX, error) {
	if l == nil || ch == nil {
		return nil, errors.New("must specify link and channel")
	}

	t := &TRX{
		link:     l,
		channel:  ch,
		writeAPI: &util.DiscardWriteAPI{}, // overwritten with option
		logger:   log.Logger,
	}

	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (t *TRX) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	return nil
}

func (t *TRX) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return t.link.Start(ctx)
	})

	if t.statusServer != nil {
		eg.Go(func() error {
			return t.statusServer.Run(ctx)
		})
	}

	if t.statsInterval > 0 {
		eg.Go(func() error {
			return t.reportStats(ctx)
		})
	}

	eg.Go(func() error {
		return t.forwardBursts(ctx)
	})

	t.logger.Info().
		Str("local", t.link.LocalAddr().String()).
		Msg("Starting")

	return eg.Wait()
}

func (t *TRX) forwardBursts(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ul := <-t.link.Receive():
			dl, err := t.channel.Forward(ul)
			if err != nil {
				t.logger.Warn().Err(err).Object("uplink", ul).Msg("dropping burst")
				continue
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case t.link.Send() <- dl:
			}
		}
	}
}

func (t *TRX) reportStats(ctx context.Context) error {
	tick := time.NewTicker(t.statsInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			stats := t.link.Stats()
			t.logger.Debug().
				Uint64("received", stats.Received).
				Uint64("sent", stats.Sent).
				Uint64("dropped", stats.Dropped).
				Msg("link stats")

			t.writeAPI.WritePoint(influxdb2.NewPoint("trx.stats",
				map[string]string{
					"local": t.link.LocalAddr().String(),
				},
				map[string]interface{}{
					"received":       stats.Received,
					"sent":           stats.Sent,
					"dropped":        stats.Dropped,
					"bytes_received": stats.BytesReceived,
					"bytes_sent":     stats.BytesSent,
				}, time.Now()))
		}
	}
}
