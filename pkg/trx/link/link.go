// Package link moves TRX DATA messages over UDP, one message per datagram.
// The link sits on the transceiver side: it receives uplink bursts from L1
// and sends downlink bursts back to it.
package link

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/faketrx/pkg/trx/capture"
	"github.com/norasector/faketrx/pkg/trx/datamsg"
	"github.com/norasector/faketrx/pkg/util"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// maxDatagramSize leaves room for the largest header with an EDGE burst.
	maxDatagramSize = 2048

	receiveChannels = 32
	sendChannels    = 32
)

// Stats are the link counters since it was created.
type Stats struct {
	Received      uint64 `json:"received"`
	Sent          uint64 `json:"sent"`
	Dropped       uint64 `json:"dropped"`
	BytesReceived uint64 `json:"bytes_received"`
	BytesSent     uint64 `json:"bytes_sent"`
}

type Link struct {
	// 64-bit atomic counters first for alignment on 32-bit platforms
	received      uint64
	sent          uint64
	dropped       uint64
	bytesReceived uint64
	bytesSent     uint64

	conn       *net.UDPConn
	remoteAddr *net.UDPAddr
	recvChan   chan *datamsg.Uplink
	sendChan   chan *datamsg.Downlink
	metrics    api.WriteAPI
	capture    *capture.Writer
	logger     zerolog.Logger
}

type Option func(l *Link) error

func WithInfluxDB(writeAPI api.WriteAPI) Option {
	return func(l *Link) error {
		l.metrics = writeAPI
		return nil
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Link) error {
		l.logger = logger
		return nil
	}
}

// WithCapture records every datagram received or sent.
func WithCapture(w *capture.Writer) Option {
	return func(l *Link) error {
		l.capture = w
		return nil
	}
}

// New binds the local UDP socket. remoteAddr is where downlink bursts are sent.
func New(localAddr, remoteAddr string, opts ...Option) (*Link, error) {
	laddr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, err
	}
	raddr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, err
	}

	l := &Link{
		remoteAddr: raddr,
		recvChan:   make(chan *datamsg.Uplink, receiveChannels),
		sendChan:   make(chan *datamsg.Downlink, sendChannels),
		metrics:    &util.DiscardWriteAPI{},
		logger:     log.Logger,
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	l.conn, err = net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", localAddr, err)
	}

	return l, nil
}

// Receive returns decoded uplink bursts.
func (l *Link) Receive() <-chan *datamsg.Uplink {
	return l.recvChan
}

// Send accepts downlink bursts to encode and transmit.
func (l *Link) Send() chan<- *datamsg.Downlink {
	return l.sendChan
}

func (l *Link) LocalAddr() *net.UDPAddr {
	return l.conn.LocalAddr().(*net.UDPAddr)
}

func (l *Link) Stats() Stats {
	return Stats{
		Received:      atomic.LoadUint64(&l.received),
		Sent:          atomic.LoadUint64(&l.sent),
		Dropped:       atomic.LoadUint64(&l.dropped),
		BytesReceived: atomic.LoadUint64(&l.bytesReceived),
		BytesSent:     atomic.LoadUint64(&l.bytesSent),
	}
}

// Start runs until ctx is done or the socket fails. The socket is closed on return.
func (l *Link) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	l.logger.Info().
		Str("local", l.conn.LocalAddr().String()).
		Str("remote", l.remoteAddr.String()).
		Msg("data link starting")

	eg.Go(func() error {
		<-ctx.Done()
		return l.conn.Close()
	})

	eg.Go(func() error {
		return l.receiveLoop(ctx)
	})

	eg.Go(func() error {
		return l.sendLoop(ctx)
	})

	return eg.Wait()
}

func (l *Link) receiveLoop(ctx context.Context) error {
	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return err
			}
		}
		atomic.AddUint64(&l.bytesReceived, uint64(n))
		l.record(capture.DirectionUplink, buf[:n])

		msg := &datamsg.Uplink{}
		var decodeErr error
		elapsed := util.TimeOperationMicroseconds(func() {
			decodeErr = msg.Decode(buf[:n])
		})
		if decodeErr != nil {
			l.logger.Warn().Err(decodeErr).Str("from", from.String()).Int("length", n).Msg("discarding datagram")
			l.drop("uplink", "decode")
			continue
		}

		atomic.AddUint64(&l.received, 1)
		l.metrics.WritePoint(influxdb2.NewPoint("trx.data.rx",
			map[string]string{
				"direction": "uplink",
			},
			map[string]interface{}{
				"bytes_read":     n,
				"burst_length":   len(msg.Burst()),
				"decode_time_us": elapsed,
			}, time.Now()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case l.recvChan <- msg:
		}
	}
}

func (l *Link) sendLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-l.sendChan:
			encoded, err := msg.Encode()
			if err != nil {
				l.logger.Warn().Err(err).Object("downlink", msg).Msg("not sending downlink")
				l.drop("downlink", "encode")
				continue
			}

			bytesWritten, err := l.conn.WriteToUDP(encoded, l.remoteAddr)
			if err != nil {
				l.logger.Error().Err(err).Msg("error writing")
				l.drop("downlink", "write")
				continue
			}
			l.record(capture.DirectionDownlink, encoded)

			atomic.AddUint64(&l.sent, 1)
			atomic.AddUint64(&l.bytesSent, uint64(bytesWritten))
			l.metrics.WritePoint(influxdb2.NewPoint("trx.data.tx",
				map[string]string{
					"direction": "downlink",
				},
				map[string]interface{}{
					"bytes_written": bytesWritten,
					"burst_length":  len(msg.Burst()),
				}, time.Now()))
		}
	}
}

func (l *Link) drop(direction, reason string) {
	atomic.AddUint64(&l.dropped, 1)
	l.metrics.WritePoint(influxdb2.NewPoint("trx.data.dropped",
		map[string]string{
			"direction": direction,
			"reason":    reason,
		},
		map[string]interface{}{
			"dropped": 1,
		}, time.Now()))
}

func (l *Link) record(dir capture.Direction, data []byte) {
	if l.capture == nil {
		return
	}
	rec := capture.Record{
		Direction: dir,
		Timestamp: time.Now(),
		Data:      data,
	}
	if err := l.capture.Write(rec); err != nil {
		l.logger.Warn().Err(err).Msg("error writing capture")
	}
}
