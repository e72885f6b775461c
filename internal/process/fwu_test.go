package process

import (
	"context"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elrafoon/ptnet-mgr/internal/model"
	"github.com/elrafoon/ptnet-mgr/internal/protocol/ptnet"
	"github.com/elrafoon/ptnet-mgr/internal/store"
)

// cancelFrameSize mirrors the outbound Message framing for FWU's DEACT
// cancellation command: header(16) + payload (ASDH 2 + DUI 2 + IOA 1 +
// fwIUIEWidth-byte IE).
const cancelFrameSize = 16 + 2 + 2 + 1 + fwIUIEWidth

func TestFWU_GoalNoneIdle_NoAction(t *testing.T) {
	st := openTestStore(t)
	conn, gateway := dialTestConn(t)

	fwu := NewFWU(conn, st, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- fwu.Run(ctx) }()

	var addr model.NodeAddress
	addr[5] = 0x1
	rec := model.NodeRecord{
		Address:      addr,
		DeviceStatus: &model.DeviceStatus{FWState: model.FWStateIdle},
	}
	require.NoError(t, st.Update(context.Background(), rec, store.UpdateOrCreate))

	sawFrame := make(chan struct{}, 1)
	go func() {
		_, _ = io.ReadFull(gateway, make([]byte, cancelFrameSize))
		sawFrame <- struct{}{}
	}()

	select {
	case <-sawFrame:
		t.Fatal("FWU must not send a cancellation for goal=None, fw_state=Idle")
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	<-runErr
}

func TestFWU_GoalNoneInProgress_SendsCancellation(t *testing.T) {
	st := openTestStore(t)
	conn, gateway := dialTestConn(t)

	fwu := NewFWU(conn, st, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- fwu.Run(ctx) }()

	var addr model.NodeAddress
	addr[5] = 0x2

	frame := make(chan []byte, 1)
	go func() {
		buf := make([]byte, cancelFrameSize)
		if _, err := io.ReadFull(gateway, buf); err == nil {
			frame <- buf
		}
		var res [6]byte
		binary.LittleEndian.PutUint16(res[0:2], ptnet.MagicResult)
		binary.LittleEndian.PutUint16(res[2:4], binary.LittleEndian.Uint16(buf[2:4]))
		binary.LittleEndian.PutUint16(res[4:6], 0)
		_, _ = gateway.Write(res[:])
	}()

	rec := model.NodeRecord{
		Address:      addr,
		DeviceStatus: &model.DeviceStatus{FWState: model.FWStateFlashing},
	}
	require.NoError(t, st.Update(context.Background(), rec, store.UpdateOrCreate))

	select {
	case buf := <-frame:
		// Frame layout: magic(2) id(2) port(4) C(1) address(6) payload_len(1).
		assert.Equal(t, addr[:], buf[9:15])
		cByte := buf[8]
		assert.Equal(t, ptnet.FCPrmSendNoreply, ptnet.FC(cByte&0x0F))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for cancellation frame")
	}

	cancel()
	<-runErr
}

func TestFWU_ReservedGoal_NoAction(t *testing.T) {
	st := openTestStore(t)
	conn, gateway := dialTestConn(t)

	fwu := NewFWU(conn, st, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- fwu.Run(ctx) }()

	var addr model.NodeAddress
	addr[5] = 0x3
	require.NoError(t, st.SetGoal(context.Background(), addr, model.Goal{Kind: model.GoalKeepCurrent}))

	rec := model.NodeRecord{
		Address:      addr,
		DeviceStatus: &model.DeviceStatus{FWState: model.FWStateFlashing},
	}
	require.NoError(t, st.Update(context.Background(), rec, store.UpdateOrCreate))

	sawFrame := make(chan struct{}, 1)
	go func() {
		_, _ = io.ReadFull(gateway, make([]byte, cancelFrameSize))
		sawFrame <- struct{}{}
	}()

	select {
	case <-sawFrame:
		t.Fatal("FWU must not act on reserved goal variants")
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	<-runErr
}
