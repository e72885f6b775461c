// Package firmware implements the firmware image container and the
// directory index over it (spec §4.2, §6): a 116-byte header wrapped in a
// magic/CRC envelope, followed immediately by the payload (the header-prefix
// layout, canonical per spec §9 — see SPEC_FULL.md Open Question 1).
package firmware

import (
	"encoding/binary"

	"github.com/elrafoon/ptnet-mgr/internal/model"
)

const (
	magic1 uint32 = 0xFEEDBEEF
	magic2 uint32 = 0xDEADBEEF

	headerSize   = 116
	envelopeSize = 4 + headerSize + 4 + 4 // magic1 | header | header_crc | magic2
)

func checksum(b []byte) uint32 {
	return crc32Cksum(b)
}

// Header is the 116-byte firmware header, version 0 layout (spec §3): the
// first 15 bytes are the known fields; the remainder is reserved and
// preserved verbatim for the CRC but otherwise ignored.
type Header struct {
	Version     uint8
	HWVersion   model.HWVersion
	FWVersion   model.FWVersion
	PayloadSize uint32
	PayloadCRC  uint32
}

func decodeHeader(b []byte) Header {
	return Header{
		Version:     b[0],
		HWVersion:   model.HWVersion{VID: b[1], PID: b[2], Rev: b[3]},
		FWVersion:   model.FWVersion{Major: b[4], Minor: b[5], Patch: b[6]},
		PayloadSize: binary.LittleEndian.Uint32(b[7:11]),
		PayloadCRC:  binary.LittleEndian.Uint32(b[11:15]),
	}
}

// Image is a parsed, verified firmware image. Payload aliases the backing
// buffer (typically memory-mapped, per spec §4.2): callers must not retain
// it past the buffer's lifetime.
type Image struct {
	Header  Header
	Payload []byte
}

// Parse validates and decodes one firmware container out of buf (spec
// §4.2). buf must hold the full envelope plus payload; this package never
// reads a header without validating the payload that follows it, since the
// header-prefix layout always presents both together.
func Parse(buf []byte) (*Image, error) {
	if len(buf) < envelopeSize {
		return nil, verifyErr(ErrHeaderMagicNotPresent)
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != magic1 {
		return nil, verifyErr(ErrHeaderMagicNotPresent)
	}

	headerBytes := buf[4 : 4+headerSize]
	headerCRC := binary.LittleEndian.Uint32(buf[4+headerSize : 4+headerSize+4])
	magic2Offset := 4 + headerSize + 4
	if binary.LittleEndian.Uint32(buf[magic2Offset:magic2Offset+4]) != magic2 {
		return nil, verifyErr(ErrHeaderMagicNotPresent)
	}
	if checksum(headerBytes) != headerCRC {
		return nil, verifyErr(ErrHeaderCRCInvalid)
	}

	header := decodeHeader(headerBytes)
	payload := buf[envelopeSize:]
	if uint32(len(payload)) != header.PayloadSize {
		return nil, verifyErr(ErrPayloadSizeInvalid)
	}
	if checksum(payload) != header.PayloadCRC {
		return nil, verifyErr(ErrPayloadCRCInvalid)
	}

	return &Image{Header: header, Payload: payload}, nil
}
