package process

import (
	"context"
	"fmt"

	"github.com/elrafoon/ptnet-mgr/internal/connection"
	"github.com/elrafoon/ptnet-mgr/internal/metrics"
	"github.com/elrafoon/ptnet-mgr/internal/model"
	"github.com/elrafoon/ptnet-mgr/internal/protocol/ptnet"
	"github.com/elrafoon/ptnet-mgr/internal/ptneterr"
	"github.com/elrafoon/ptnet-mgr/internal/store"
)

// deviceStatusIOA and deviceDescriptorIOA are the fixed IOAs the persistor
// recognizes under common address 0x3E (spec §4.6).
const (
	deviceStatusIOA     ptnet.IOA = 1
	deviceDescriptorIOA ptnet.IOA = 2
)

// Persistor writes every inbound device-status/device-descriptor IOB into
// the node store (spec §4.6).
type Persistor struct {
	conn    *connection.Connection
	store   *store.Store
	metrics *metrics.Metrics
}

// NewPersistor builds a Persistor process sharing conn and st with its
// sibling processes. m may be nil to disable instrumentation.
func NewPersistor(conn *connection.Connection, st *store.Store, m *metrics.Metrics) *Persistor {
	return &Persistor{conn: conn, store: st, metrics: m}
}

// Run applies every parsed IOB until the channel closes (link down) or ctx
// is cancelled (spec §4.6).
func (p *Persistor) Run(ctx context.Context) error {
	iobs, unsub := p.conn.SubscribeParsedIOBs()
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-iobs:
			if !ok {
				return fmt.Errorf("persistor: %w: link down", ptneterr.ErrIO)
			}
			if err := p.apply(ctx, ev); err != nil {
				return err
			}
		}
	}
}

func (p *Persistor) apply(ctx context.Context, ev connection.IOBEvent) error {
	if ev.IOB.ASDH.CA != 0x3E {
		return nil
	}

	switch ev.IOB.IOA {
	case deviceStatusIOA:
		ie, ok := ev.IOB.IE.(ptnet.IE232)
		if !ok {
			return nil
		}
		status := model.DeviceStatus{FWState: ie.FWState, FWVersion: ie.FWVersion, HWVersion: ie.HWVersion}
		if err := p.store.Modify(ctx, ev.Address, func(rec model.NodeRecord) (model.NodeRecord, bool) {
			rec.DeviceStatus = &status
			return rec, true
		}); err != nil {
			return err
		}
		p.metrics.IncPersistApplied(metrics.FieldDeviceStatus)
		return nil

	case deviceDescriptorIOA:
		ie, ok := ev.IOB.IE.(ptnet.IE233)
		if !ok {
			return nil
		}
		descriptor := model.DeviceDescriptor{Raw: ie.Raw}
		if err := p.store.Modify(ctx, ev.Address, func(rec model.NodeRecord) (model.NodeRecord, bool) {
			rec.DeviceDescriptor = &descriptor
			return rec, true
		}); err != nil {
			return err
		}
		p.metrics.IncPersistApplied(metrics.FieldDeviceDescriptor)
		return nil

	default:
		return nil
	}
}
