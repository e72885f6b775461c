// Package process implements the cooperative session processes the
// supervisor runs alongside the dispatcher (spec §4.5): the periodic node
// scanner, the telemetry persistor and the firmware-update orchestrator.
package process

import (
	"context"
	"fmt"
	"time"

	"github.com/elrafoon/ptnet-mgr/internal/connection"
	"github.com/elrafoon/ptnet-mgr/internal/logger"
	"github.com/elrafoon/ptnet-mgr/internal/metrics"
	"github.com/elrafoon/ptnet-mgr/internal/model"
	"github.com/elrafoon/ptnet-mgr/internal/protocol/ptnet"
	"github.com/elrafoon/ptnet-mgr/internal/ptneterr"
	"github.com/elrafoon/ptnet-mgr/internal/store"
	"github.com/elrafoon/ptnet-mgr/internal/telemetry"
)

// tcRDIEWidth is ieWidth(TC_C_RD): TC_C_RD = 0x65 = 0b011_00101, top three
// bits 011 = 3 (spec §4.1's width rule). The read command itself carries no
// meaningful payload, so the slot is sent zeroed.
const tcRDIEWidth = 3

// NodeScanConfig holds the periodic scanner's tunables (spec §4.5).
type NodeScanConfig struct {
	Period          time.Duration
	ResponseTimeout time.Duration
}

// DefaultNodeScanConfig is the spec's default scan period (10s) and the
// fixed 5s per-node response timeout (spec §5).
func DefaultNodeScanConfig() NodeScanConfig {
	return NodeScanConfig{Period: 10 * time.Second, ResponseTimeout: 5 * time.Second}
}

// NodeScan periodically interrogates every known node for its device status
// (spec §4.5).
type NodeScan struct {
	conn    *connection.Connection
	store   *store.Store
	cfg     NodeScanConfig
	metrics *metrics.Metrics
}

// NewNodeScan builds a NodeScan process sharing conn and st with its sibling
// processes (spec §4.5: "non-owning references"). m may be nil to disable
// instrumentation.
func NewNodeScan(conn *connection.Connection, st *store.Store, cfg NodeScanConfig, m *metrics.Metrics) *NodeScan {
	return &NodeScan{conn: conn, store: st, cfg: cfg, metrics: m}
}

// Run scans a snapshot of the store's node set, pacing work by cfg.Period
// between nodes and once for an empty pass, repeating until ctx is cancelled
// (spec §4.5: "Between nodes and between empty passes, tick the interval
// timer to pace work" — cfg.Period is a per-node rate limit, not a per-pass
// cadence).
func (p *NodeScan) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := p.pass(ctx); err != nil {
			return err
		}
	}
}

func (p *NodeScan) pass(ctx context.Context) error {
	addrs, err := p.store.List(ctx)
	if err != nil {
		return fmt.Errorf("nodescan: list: %w", err)
	}

	ctx, span := telemetry.StartNodeScanSpan(ctx, len(addrs))
	defer span.End()
	start := time.Now()
	defer func() { p.metrics.ObserveScanDuration(time.Since(start)) }()

	for _, addr := range addrs {
		if ctx.Err() != nil {
			return nil
		}
		if err := p.scanNode(ctx, addr); err != nil {
			return err
		}
		if err := p.tick(ctx); err != nil {
			return err
		}
	}

	if len(addrs) == 0 {
		if err := p.tick(ctx); err != nil {
			return err
		}
	}
	return nil
}

// tick paces work by cfg.Period, returning early if ctx is cancelled first.
func (p *NodeScan) tick(ctx context.Context) error {
	if p.cfg.Period <= 0 {
		return nil
	}
	timer := time.NewTimer(p.cfg.Period)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
		return nil
	}
}

// scanNode sends one interrogation request and waits up to
// cfg.ResponseTimeout for both the delivery result and a matching TI232
// response; a timeout of either is swallowed as a skip, never an error
// (spec §4.5, §7: "NodeScan swallows per-node timeouts (log-only)").
func (p *NodeScan) scanNode(ctx context.Context, addr model.NodeAddress) error {
	telemetry.AddEvent(ctx, "scan_node", telemetry.Address(addr.String()), telemetry.TI(int(ptnet.TC_C_RD)))

	waitCtx, cancel := context.WithTimeout(ctx, p.cfg.ResponseTimeout)
	defer cancel()

	iobs, unsub := p.conn.SubscribeParsedIOBs()
	defer unsub()

	payload := ptnet.NewBuilder().
		WithASDH(ptnet.ASDH{CA: 0x3E, Cot: ptnet.COTReq, PN: false}).
		BeginGroup(ptnet.DUI{TI: ptnet.TC_C_RD, N: 1, SQ: false}).
		AddIOA(ptnet.IOA(0)).
		AddRawIE(make([]byte, tcRDIEWidth)).
		Bytes()

	header := ptnet.NewHeader(true, ptnet.FCPrmSendNoreply, addr)
	_, result, err := p.conn.Send(ptnet.PortAuto, header, payload)
	if err != nil {
		return fmt.Errorf("nodescan: send %s: %w", addr, err)
	}

	select {
	case _, ok := <-result:
		if !ok {
			return fmt.Errorf("nodescan: %s: %w: link down", addr, ptneterr.ErrIO)
		}
	case <-waitCtx.Done():
		logger.Warn("nodescan: no delivery result, skipping node", "address", addr)
		return nil
	}

	for {
		select {
		case ev, ok := <-iobs:
			if !ok {
				return fmt.Errorf("nodescan: %s: %w: link down", addr, ptneterr.ErrIO)
			}
			if !isDeviceStatusResponse(ev, addr) {
				continue
			}
			return nil
		case <-waitCtx.Done():
			logger.Warn("nodescan: response timeout, skipping node", "address", addr)
			return nil
		}
	}
}

func isDeviceStatusResponse(ev connection.IOBEvent, addr model.NodeAddress) bool {
	if ev.Address != addr {
		return false
	}
	if ev.IOB.ASDH.CA != 0x3E || ev.IOB.ASDH.Cot != ptnet.COTReq || ev.IOB.ASDH.PN {
		return false
	}
	if ev.IOB.IOA != ptnet.IOA(1) {
		return false
	}
	_, ok := ev.IOB.IE.(ptnet.IE232)
	return ok
}
