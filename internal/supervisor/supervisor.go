// Package supervisor runs the reconnect loop and the set of cooperative
// session processes that share one connection and one store (spec §4.5).
package supervisor

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/elrafoon/ptnet-mgr/internal/connection"
	"github.com/elrafoon/ptnet-mgr/internal/firmware"
	"github.com/elrafoon/ptnet-mgr/internal/logger"
	"github.com/elrafoon/ptnet-mgr/internal/metrics"
	"github.com/elrafoon/ptnet-mgr/internal/process"
	"github.com/elrafoon/ptnet-mgr/internal/store"
	"github.com/elrafoon/ptnet-mgr/internal/telemetry"
)

// Config holds the supervisor's tunables (spec §4.5, §6).
type Config struct {
	ServerAddress string
	TReconnect    time.Duration
	NodeScan      process.NodeScanConfig
}

// Supervisor owns the reconnect loop: dial, build the multiplexer, run the
// cooperative processes to first failure, tear down, back off, repeat
// (spec §4.5).
type Supervisor struct {
	cfg      Config
	store    *store.Store
	firmware *firmware.Index // nil if no firmware directory is configured
	metrics  *metrics.Metrics
}

// New builds a Supervisor. firmwareIndex may be nil, in which case the FWU
// process still runs but never issues an update advisory (spec §4.7). m may
// be nil to disable Prometheus instrumentation.
func New(cfg Config, st *store.Store, firmwareIndex *firmware.Index, m *metrics.Metrics) *Supervisor {
	return &Supervisor{cfg: cfg, store: st, firmware: firmwareIndex, metrics: m}
}

// Run blocks until ctx is cancelled, reconnecting with fixed back-off
// t_reconnect on every terminal session error (spec §4.5, §5).
func (s *Supervisor) Run(ctx context.Context) error {
	attempt := func() error {
		err := s.runSession(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err != nil {
			logger.Warn("supervisor: session ended, reconnecting",
				"error", err, "t_reconnect", s.cfg.TReconnect)
		}
		return err
	}

	bo := backoff.WithContext(backoff.NewConstantBackOff(s.cfg.TReconnect), ctx)
	err := backoff.Retry(attempt, bo)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// runSession opens one TCP connection, builds the multiplexer and the
// cooperative process set, and joins them fail-fast (spec §4.5): the
// dispatcher always occupies slot 0.
func (s *Supervisor) runSession(ctx context.Context) error {
	sessionID := uuid.New().String()
	log := logger.With("session_id", sessionID, "server_address", s.cfg.ServerAddress)

	ctx, span := telemetry.StartSpan(ctx, "supervisor.session", trace.WithAttributes(telemetry.SessionID(sessionID)))
	defer span.End()

	dialer := net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, "tcp", s.cfg.ServerAddress)
	if err != nil {
		return fmt.Errorf("supervisor: dial: %w", err)
	}
	defer rawConn.Close()

	log.Info("supervisor: session established")
	conn := connection.New(rawConn, connection.WithMetrics(s.metrics))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return conn.Run(gctx) })
	g.Go(func() error { return process.NewNodeScan(conn, s.store, s.cfg.NodeScan, s.metrics).Run(gctx) })
	g.Go(func() error { return process.NewPersistor(conn, s.store, s.metrics).Run(gctx) })
	g.Go(func() error { return process.NewFWU(conn, s.store, s.firmware, s.metrics).Run(gctx) })

	err = g.Wait()
	log.Info("supervisor: session ended")
	return err
}
