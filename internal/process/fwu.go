package process

import (
	"context"
	"fmt"

	"github.com/elrafoon/ptnet-mgr/internal/connection"
	"github.com/elrafoon/ptnet-mgr/internal/firmware"
	"github.com/elrafoon/ptnet-mgr/internal/logger"
	"github.com/elrafoon/ptnet-mgr/internal/metrics"
	"github.com/elrafoon/ptnet-mgr/internal/model"
	"github.com/elrafoon/ptnet-mgr/internal/protocol/ptnet"
	"github.com/elrafoon/ptnet-mgr/internal/ptneterr"
	"github.com/elrafoon/ptnet-mgr/internal/store"
)

// fwIUIEWidth is ieWidth(TC_C_FW_IU): TC_C_FW_IU = 0xF0 = 0b111_10000, top
// three bits 111 = 7 (spec §4.1's width rule). The cancellation command
// carries no meaningful payload, so the slot is sent zeroed.
const fwIUIEWidth = 7

// FWU reacts to node-record changes, issuing firmware-update advisories and
// cancellations for the goal/state combinations the source actually
// implements (spec §4.7). Every other combination of State axis A and B is
// reserved: FWU deliberately takes no action for them.
type FWU struct {
	conn     *connection.Connection
	store    *store.Store
	firmware *firmware.Index // nil disables the "newer firmware available" advisory
	metrics  *metrics.Metrics
}

// NewFWU builds a FWU process. firmware may be nil when no firmware
// directory is configured; the orchestrator then still cancels in-progress
// updates but never advises one (spec §4.7's goal=None/fw_state=Idle action
// needs the index to find a candidate). m may be nil to disable
// instrumentation.
func NewFWU(conn *connection.Connection, st *store.Store, idx *firmware.Index, m *metrics.Metrics) *FWU {
	return &FWU{conn: conn, store: st, firmware: idx, metrics: m}
}

// Run reacts to every NodeAdded/NodeModified event until the channel closes
// or ctx is cancelled (spec §4.7).
func (p *FWU) Run(ctx context.Context) error {
	events, unsub := p.store.Subscribe()
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("fwu: %w: link down", ptneterr.ErrIO)
			}
			if err := p.handle(ctx, ev); err != nil {
				return err
			}
		}
	}
}

func (p *FWU) handle(ctx context.Context, ev store.Event) error {
	rec := ev.Record
	if rec.DeviceStatus == nil {
		return nil
	}

	goal, err := p.store.GetFWUState(ctx, rec.Address)
	if err != nil {
		return fmt.Errorf("fwu: goal %s: %w", rec.Address, err)
	}
	if goal.Goal.Kind != model.GoalNone {
		return nil // other goal variants are reserved (spec §4.7)
	}

	switch rec.DeviceStatus.FWState {
	case model.FWStateIdle:
		p.advise(rec)
		return nil
	case model.FWStateDownload, model.FWStateFlashing, model.FWStateUpdated:
		return p.cancel(rec.Address)
	default:
		return nil
	}
}

func (p *FWU) advise(rec model.NodeRecord) {
	if p.firmware == nil {
		return
	}
	latest, ok := p.firmware.Latest(rec.DeviceStatus.HWVersion)
	if !ok || !rec.DeviceStatus.FWVersion.Less(latest.Header.FWVersion) {
		return
	}
	logger.Info("fwu: newer firmware available",
		"address", rec.Address,
		"current", rec.DeviceStatus.FWVersion,
		"available", latest.Header.FWVersion)
	p.metrics.IncFWUAdvisory()
}

// cancel sends the DEACT command that aborts an in-progress update (spec
// §4.7: "goal=None, fw_state∈{Download,Flashing,Updated}").
func (p *FWU) cancel(addr model.NodeAddress) error {
	payload := ptnet.NewBuilder().
		WithASDH(ptnet.ASDH{CA: 0x3E, Cot: ptnet.COTDeact, PN: false}).
		BeginGroup(ptnet.DUI{TI: ptnet.TC_C_FW_IU, N: 1, SQ: false}).
		AddIOA(ptnet.IOA(0)).
		AddRawIE(make([]byte, fwIUIEWidth)).
		Bytes()

	header := ptnet.NewHeader(true, ptnet.FCPrmSendNoreply, addr)
	_, _, err := p.conn.Send(ptnet.PortAuto, header, payload)
	if err != nil {
		return fmt.Errorf("fwu: cancel %s: %w", addr, err)
	}
	p.metrics.IncFWUCancellation()
	return nil
}
