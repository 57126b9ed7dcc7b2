package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/faketrx/pkg/trx"
	"github.com/norasector/faketrx/pkg/trx/capture"
	"github.com/norasector/faketrx/pkg/trx/config"
	"github.com/norasector/faketrx/pkg/trx/link"
	"github.com/norasector/faketrx/pkg/trx/sim"
	"github.com/norasector/faketrx/pkg/trx/status"
	"github.com/norasector/faketrx/pkg/util"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)
	configFile := flag.String("config", "faketrx.yaml", "YAML config file")

	flag.Parse()

	opts, err := config.Load(*configFile)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configFile).Msg("error loading config file")
	}

	level, err := zerolog.ParseLevel(opts.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("log_level", opts.LogLevel).Msg("invalid log level")
	}
	log.Logger = log.Logger.Level(level)

	var writeAPI api.WriteAPI = &util.DiscardWriteAPI{}
	if opts.InfluxDB.Host != "" {
		client := influxdb2.NewClient(opts.InfluxDB.Host, "")
		defer client.Close()
		writeAPI = client.WriteAPI(opts.InfluxDB.Organization, opts.InfluxDB.Bucket)
	}

	linkOpts := []link.Option{
		link.WithInfluxDB(writeAPI),
		link.WithLogger(log.Logger.With().Str("component", "link").Logger()),
	}
	if opts.CaptureLocation != "" {
		f, err := os.Create(opts.CaptureLocation)
		if err != nil {
			log.Fatal().Err(err).Str("capture", opts.CaptureLocation).Msg("failed to create capture file")
		}
		defer f.Close()
		linkOpts = append(linkOpts, link.WithCapture(capture.NewWriter(f)))
	}

	dataLink, err := link.New(opts.LocalDataAddr(), opts.RemoteDataAddr(), linkOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create data link")
	}

	channel := sim.NewChannel(
		sim.WithRSSI(opts.Channel.BaseRSSI(), opts.Channel.RSSIJitter),
		sim.WithToA(opts.Channel.ToA, opts.Channel.ToAJitter),
		sim.WithLogger(log.Logger.With().Str("component", "channel").Logger()),
	)

	trxOpts := []trx.TRXOption{
		trx.WithInfluxDB(writeAPI),
		trx.WithLogger(log.Logger),
		trx.WithStatsInterval(opts.StatsInterval),
	}
	if opts.StatusServer.Port != 0 {
		trxOpts = append(trxOpts, trx.WithStatusServer(status.NewServer(opts.StatusServer.Port, dataLink)))
	}

	transceiver, err := trx.NewTRX(dataLink, channel, trxOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create transceiver")
	}

	eg, ctx := errgroup.WithContext(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	eg.Go(func() error {

		select {
		case <-sigChan:
		case <-ctx.Done():
		}

		return transceiver.Stop()
	})

	eg.Go(func() error {
		return transceiver.Start(ctx)
	})

	if err := eg.Wait(); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("exited program")
	}
}
