package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nocturnekv/respd/internal/config"
	"github.com/nocturnekv/respd/internal/logging"
	"github.com/nocturnekv/respd/internal/metrics"
	"github.com/nocturnekv/respd/internal/server"
	"github.com/nocturnekv/respd/internal/store"
)

// Entry point of the respd server.
//
// Startup sequence:
//  1. Load configuration (.env, then env vars, then CLI flags, in that
//     order of increasing precedence).
//  2. Build the structured logger.
//  3. Start the storage mailbox.
//  4. Optionally start the Prometheus metrics HTTP server.
//  5. Start the active-expiration sweeper.
//  6. If configured as a replica, perform the replication handshake
//     against the master before accepting any client connections.
//  7. Accept and serve client connections until signalled to stop.
func main() {
	bootLog := logging.New("boot", logging.Options{Level: "info"})

	cfg, err := config.Load(os.Args[1:], &bootLog)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("loading configuration")
	}

	log := logging.New("respd", logging.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mailbox := store.NewMailbox()

	var collectors *metrics.Collectors
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		collectors = metrics.New(reg)

		metricsSrv := metrics.NewServer(cfg.MetricsAddr, reg)
		go func() {
			if err := metricsSrv.Serve(); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	sweepInterval, err := time.ParseDuration(cfg.SweepInterval)
	if err != nil {
		log.Fatal().Err(err).Str("value", cfg.SweepInterval).Msg("invalid sweep interval")
	}
	sweeper, err := store.NewSweeper(mailbox, sweepInterval, cfg.SweepSampleSize)
	if err != nil {
		log.Fatal().Err(err).Msg("starting expiration sweeper")
	}
	if collectors != nil {
		sweeper.OnSweep = func(removed int) {
			collectors.SweepRemovedTotal.Add(float64(removed))
		}
	}
	sweeper.Start()
	defer func() {
		if err := sweeper.Stop(); err != nil {
			log.Warn().Err(err).Msg("stopping expiration sweeper")
		}
	}()

	var info *server.Info
	if cfg.IsReplica() {
		info = server.NewSlaveInfo(net.JoinHostPort(cfg.MasterHost, strconv.Itoa(cfg.MasterPort)))
		replID, offset, err := server.Handshake(cfg.MasterHost, cfg.MasterPort, cfg.Port, log.With().Str("role", "replica").Logger())
		if err != nil {
			log.Fatal().Err(err).Msg("replication handshake failed")
		}
		info.AdoptHandshake(replID, offset)
	} else {
		info = server.NewMasterInfo()
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	ln, err := server.Listen(addr, mailbox, info, collectors, log)
	if err != nil {
		log.Fatal().Err(err).Str("addr", addr).Msg("binding listener")
	}

	log.Info().Str("addr", addr).Bool("replica", cfg.IsReplica()).Msg("respd listening")

	if err := ln.Serve(ctx); err != nil {
		log.Fatal().Err(err).Msg("listener stopped")
	}

	log.Info().Msg("respd shut down")
}
