package connection

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elrafoon/ptnet-mgr/internal/model"
	"github.com/elrafoon/ptnet-mgr/internal/protocol/ptnet"
)

// requestFrameSize is the outbound Message frame's fixed size: magic(2) +
// id(2) + port(4) + C(1) + address(6) + payload_len(1).
const requestFrameSize = 16

func dialPipe(t *testing.T) (*Connection, net.Conn) {
	t.Helper()
	client, gateway := net.Pipe()
	t.Cleanup(func() { _ = client.Close(); _ = gateway.Close() })
	return New(client), gateway
}

// Scenario S3 (spec §8): result correlation.
func TestConnection_ResultCorrelation(t *testing.T) {
	conn, gateway := dialPipe(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- conn.Run(ctx) }()

	go func() { _, _ = io.ReadFull(gateway, make([]byte, requestFrameSize)) }()

	header := ptnet.NewHeader(true, ptnet.FCPrmSendNoreply, [6]byte{1, 2, 3, 4, 5, 6})
	id, waiter, err := conn.Send(ptnet.PortAuto, header, nil)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), id)

	writeResult(t, gateway, MessageResult{MsgID: id, Result: 0})

	select {
	case result, ok := <-waiter:
		require.True(t, ok)
		assert.Equal(t, uint16(0), result)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for result")
	}

	cancel()
	<-runErr
}

func TestConnection_DuplicateResultIsDroppedWithWarning(t *testing.T) {
	conn, gateway := dialPipe(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- conn.Run(ctx) }()

	go func() { _, _ = io.ReadFull(gateway, make([]byte, requestFrameSize)) }()

	header := ptnet.NewHeader(true, ptnet.FCPrmSendNoreply, [6]byte{})
	id, waiter, err := conn.Send(ptnet.PortAuto, header, nil)
	require.NoError(t, err)

	writeResult(t, gateway, MessageResult{MsgID: id, Result: 0})
	<-waiter

	// A second arrival for the same id must not panic or deliver anywhere;
	// it is simply dropped (spec §8 scenario S3).
	writeResult(t, gateway, MessageResult{MsgID: id, Result: 0})

	cancel()
	<-runErr
}

func TestConnection_ServerMessageFansOutAndParsesIOBs(t *testing.T) {
	conn, gateway := dialPipe(t)

	serverMsgs, unsubSM := conn.SubscribeServerMessages()
	defer unsubSM()
	iobs, unsubIOB := conn.SubscribeParsedIOBs()
	defer unsubIOB()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- conn.Run(ctx) }()

	// One DUI_group: ASDH(ca=0x3E,cot=REQ) DUI(ti=34,n=1,sq=0) IOA=1 IE34{0x99}.
	payload := []byte{0x3E, byte(ptnet.COTReq), 34, 0x01, 0x01, 0x99}
	header := ptnet.NewHeader(true, ptnet.FCPrmSendNoreply, [6]byte{0xAA})
	writeServerMessage(t, gateway, ServerMessage{Port: ptnet.PortAuto, Header: header, Payload: payload})

	select {
	case sm := <-serverMsgs:
		assert.Equal(t, payload, sm.Payload)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for server message")
	}

	select {
	case ev := <-iobs:
		assert.Equal(t, ptnet.IOA(1), ev.IOB.IOA)
		assert.Equal(t, model.NodeAddress(header.Address), ev.Address)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for parsed IOB")
	}

	cancel()
	<-runErr
}

func TestConnection_UnknownMagicTerminatesSession(t *testing.T) {
	conn, gateway := dialPipe(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- conn.Run(ctx) }()

	var bad [2]byte
	binary.LittleEndian.PutUint16(bad[:], 0xFFFF)
	_, err := gateway.Write(bad[:])
	require.NoError(t, err)

	select {
	case err := <-runErr:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatcher to terminate")
	}
}

func writeResult(t *testing.T, gateway net.Conn, res MessageResult) {
	t.Helper()
	buf := make([]byte, 0, 6)
	buf = binary.LittleEndian.AppendUint16(buf, ptnet.MagicResult)
	buf = binary.LittleEndian.AppendUint16(buf, res.MsgID)
	buf = binary.LittleEndian.AppendUint16(buf, res.Result)
	done := make(chan struct{})
	go func() { _, _ = gateway.Write(buf); close(done) }()
	<-done
}

func writeServerMessage(t *testing.T, gateway net.Conn, sm ServerMessage) {
	t.Helper()
	buf := make([]byte, 0, 2+serverMessageHeaderSize+len(sm.Payload))
	buf = binary.LittleEndian.AppendUint16(buf, ptnet.MagicServerMessage)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sm.Port))
	buf = append(buf, sm.Header.C)
	buf = append(buf, sm.Header.Address[:]...)
	buf = append(buf, byte(len(sm.Payload)))
	buf = append(buf, sm.Payload...)
	done := make(chan struct{})
	go func() { _, _ = gateway.Write(buf); close(done) }()
	<-done
}
