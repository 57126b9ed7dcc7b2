// Package sim models the radio channel between two virtual transceivers:
// a burst handed down by L1 for transmission comes back up as a received
// burst with simulated signal quality.
package sim

import (
	"fmt"
	"math"

	"github.com/norasector/faketrx/pkg/gsm/sbit"
	"github.com/norasector/faketrx/pkg/trx/datamsg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	DefaultRSSI = -60
	DefaultToA  = 0.0
)

type Channel struct {
	rssi   distuv.Normal
	toa    distuv.Normal
	logger zerolog.Logger
}

type Option func(c *Channel)

// WithRSSI sets the mean received signal strength in dBm and its standard deviation.
func WithRSSI(base, jitter float64) Option {
	return func(c *Channel) {
		c.rssi.Mu = base
		c.rssi.Sigma = jitter
	}
}

// WithToA sets the mean time of arrival in symbol periods and its standard deviation.
func WithToA(base, jitter float64) Option {
	return func(c *Channel) {
		c.toa.Mu = base
		c.toa.Sigma = jitter
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

func NewChannel(opts ...Option) *Channel {
	c := &Channel{
		rssi:   distuv.Normal{Mu: DefaultRSSI},
		toa:    distuv.Normal{Mu: DefaultToA},
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Forward turns a burst sent by L1 into the burst the peer receives. The
// uplink burst carries hard bits, the downlink one carries soft bits.
func (c *Channel) Forward(ul *datamsg.Uplink) (*datamsg.Downlink, error) {
	if !ul.Validate() {
		return nil, fmt.Errorf("%w: cannot forward uplink", datamsg.ErrValidation)
	}

	fn, _ := ul.FN()
	tn, _ := ul.TN()
	burst := datamsg.Burst(sbit.Bytes(sbit.UbitToSbit(ul.Burst())))

	rssi, ok := c.sampleRSSI()
	if !ok {
		return nil, fmt.Errorf("%w: simulated rssi is not a number", datamsg.ErrValidation)
	}

	dl := datamsg.NewDownlink(fn, tn, rssi, c.sampleToA(), burst)
	if !dl.Validate() {
		return nil, fmt.Errorf("%w: simulated downlink out of range", datamsg.ErrValidation)
	}

	c.logger.Trace().Object("uplink", ul).Object("downlink", dl).Msg("forwarded burst")

	return dl, nil
}

// sampleRSSI reports false when the draw is NaN.
func (c *Channel) sampleRSSI() (int, bool) {
	v := c.sample(c.rssi)
	if math.IsNaN(v) {
		return 0, false
	}
	rssi := int(math.Round(math.Max(datamsg.RSSIMin, math.Min(datamsg.RSSIMax, v))))
	return rssi, true
}

func (c *Channel) sampleToA() float64 {
	return math.Max(datamsg.ToAMin, math.Min(datamsg.ToAMax, c.sample(c.toa)))
}

func (c *Channel) sample(d distuv.Normal) float64 {
	if d.Sigma == 0 {
		return d.Mu
	}
	return d.Rand()
}
