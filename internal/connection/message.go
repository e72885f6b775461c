// Package connection implements the connection multiplexer (spec §4.4): one
// full-duplex TCP session carrying three interleaved frame classes, with id
// generation, request/response correlation, and broadcast fan-out to
// multiple in-process consumers.
package connection

import (
	"encoding/binary"
	"fmt"

	"github.com/elrafoon/ptnet-mgr/internal/protocol/ptnet"
)

// maxPayloadLen is payload_len's wire width: a single byte (spec §4.4, §6).
const maxPayloadLen = 255

// Message is the outbound request frame's fixed part (spec §4.4, §6):
// `{ id:u16, port:i32, Header{C:u8,address:[6]byte}, payload_len:u8 }`,
// little-endian, packed, followed by `payload[payload_len]`.
type Message struct {
	ID      uint16
	Port    int32
	Header  ptnet.Header
	Payload []byte
}

func encodeMessage(m Message) ([]byte, error) {
	if len(m.Payload) > maxPayloadLen {
		return nil, fmt.Errorf("connection: encode message: payload length %d exceeds %d", len(m.Payload), maxPayloadLen)
	}
	buf := make([]byte, 0, 2+14+len(m.Payload))
	buf = binary.LittleEndian.AppendUint16(buf, ptnet.MagicMessage)
	buf = binary.LittleEndian.AppendUint16(buf, m.ID)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.Port))
	buf = append(buf, m.Header.C)
	buf = append(buf, m.Header.Address[:]...)
	buf = append(buf, byte(len(m.Payload)))
	buf = append(buf, m.Payload...)
	return buf, nil
}

// MessageResult is the inbound delivery-result frame's fixed part (spec
// §4.4, §6): `{ msg_id:u16, result:u16 }`, magic already consumed.
type MessageResult struct {
	MsgID  uint16
	Result uint16
}

func decodeMessageResult(b []byte) MessageResult {
	return MessageResult{
		MsgID:  binary.LittleEndian.Uint16(b[0:2]),
		Result: binary.LittleEndian.Uint16(b[2:4]),
	}
}

// messageResultSize is MessageResult's encoded width.
const messageResultSize = 4

// ServerMessage is the inbound server-pushed frame's fixed part (spec §4.4,
// §6): `{ port:i32, Header{C:u8,address:[6]byte}, payload_len:u8 }`, magic
// already consumed, followed by `payload[payload_len]`.
type ServerMessage struct {
	Port    int32
	Header  ptnet.Header
	Payload []byte
}

// serverMessageHeaderSize is ServerMessage's fixed part, excluding payload.
const serverMessageHeaderSize = 4 + 1 + 6 + 1

func decodeServerMessageHeader(b []byte) (ServerMessage, int) {
	sm := ServerMessage{
		Port: int32(binary.LittleEndian.Uint32(b[0:4])),
		Header: ptnet.Header{
			C: b[4],
		},
	}
	copy(sm.Header.Address[:], b[5:11])
	payloadLen := int(b[11])
	return sm, payloadLen
}
