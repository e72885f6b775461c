package ptnet

import (
	"encoding/binary"
	"fmt"

	"github.com/elrafoon/ptnet-mgr/internal/model"
)

// TypeID selects an IE's wire layout (spec §4.1, glossary "TI").
type TypeID uint8

// Known type identifiers, as named by spec §6 and the GLOSSARY. Numeric
// values for identifiers not pinned by a scenario in spec §8 are inferred from
// the width rule documented on ieWidth below (SPEC_FULL.md, Open Question 4).
const (
	TI16  TypeID = 16
	TI25  TypeID = 25
	TI32  TypeID = 32
	TI33  TypeID = 33
	TI34  TypeID = 34
	TI48  TypeID = 48
	TI49  TypeID = 49
	TI50  TypeID = 50
	TI56  TypeID = 56
	TI68  TypeID = 68
	TI84  TypeID = 84
	TI90  TypeID = 90
	TI129 TypeID = 129
	TI130 TypeID = 130
	TI131 TypeID = 131
	TI132 TypeID = 132
	TI147 TypeID = 147
	TI161 TypeID = 161
	TI192 TypeID = 192
	TI219 TypeID = 219
	TI232 TypeID = 232
	TI233 TypeID = 233
	TI240 TypeID = 240
)

// ieWidth returns the wire width, in bytes, of the IE associated with ti.
//
// This is "a static table keyed on TI" (spec §4.1). Every width the spec
// pins explicitly — TI34=1, TI161=5, TI232=7, TI233=7 (spec §3, §6, §8) —
// equals the TI byte's top three bits read as a plain integer, so the table
// is expressed as that rule rather than as 256 hand-written entries; see
// SPEC_FULL.md's Open Question 4 for the derivation. It is total: every
// possible TI byte has a width, which is what lets an unrecognized TI still
// decode as IEUnknown instead of aborting (spec §8, boundary behaviors).
func ieWidth(ti TypeID) int {
	return int(ti) >> 5
}

// IE is a typed information element payload (glossary "IE").
type IE interface {
	// TypeID returns the wire type identifier this element was decoded as.
	TypeID() TypeID
}

// IEUnknown is yielded for any TI this package does not special-case with a
// typed struct; it carries the raw ieWidth(ti) bytes verbatim (spec §8:
// "Unknown TI -> IE::Unknown(bytes); does not abort").
type IEUnknown struct {
	TI    TypeID
	Bytes []byte
}

func (u IEUnknown) TypeID() TypeID { return u.TI }

// IE32 is a one-byte measured value (monitor direction).
type IE32 struct{ Value uint8 }

func (IE32) TypeID() TypeID { return TI32 }

// IE33 is a one-byte measured value (monitor direction).
type IE33 struct{ Value uint8 }

func (IE33) TypeID() TypeID { return TI33 }

// IE34 is a one-byte scaled measured value (monitor direction); see spec §8
// scenario S2.
type IE34 struct{ Value uint8 }

func (IE34) TypeID() TypeID { return TI34 }

// IE48 is a one-byte setpoint command (control direction).
type IE48 struct{ Value uint8 }

func (IE48) TypeID() TypeID { return TI48 }

// IE49 is a one-byte setpoint command (control direction).
type IE49 struct{ Value uint8 }

func (IE49) TypeID() TypeID { return TI49 }

// IE50 is a one-byte setpoint command (control direction).
type IE50 struct{ Value uint8 }

func (IE50) TypeID() TypeID { return TI50 }

// IE56 is a one-byte system-information control-direction element.
type IE56 struct{ Value uint8 }

func (IE56) TypeID() TypeID { return TI56 }

// IE68 is a two-byte measured value (monitor direction).
type IE68 struct{ Value uint16 }

func (IE68) TypeID() TypeID { return TI68 }

// IE84 is a two-byte system-information control-direction element.
type IE84 struct{ Value uint16 }

func (IE84) TypeID() TypeID { return TI84 }

// IE90 is a two-byte system-information control-direction element.
type IE90 struct{ Value uint16 }

func (IE90) TypeID() TypeID { return TI90 }

// IE129..IE132 are four-byte measured values (monitor direction).
type IE129 struct{ Value uint32 }

func (IE129) TypeID() TypeID { return TI129 }

type IE130 struct{ Value uint32 }

func (IE130) TypeID() TypeID { return TI130 }

type IE131 struct{ Value uint32 }

func (IE131) TypeID() TypeID { return TI131 }

type IE132 struct{ Value uint32 }

func (IE132) TypeID() TypeID { return TI132 }

// IE147 is a four-byte system-information/parameter element.
type IE147 struct{ Value uint32 }

func (IE147) TypeID() TypeID { return TI147 }

// IE161 is a five-byte measured value: a little-endian uint32 plus a
// one-byte quality descriptor (spec §8 scenario S1).
type IE161 struct {
	Value uint32
	QDS   uint8
}

func (IE161) TypeID() TypeID { return TI161 }

// IE192 is a six-byte monitor-direction element, carried opaque.
type IE192 struct{ Raw [6]byte }

func (IE192) TypeID() TypeID { return TI192 }

// IE219 is a six-byte control-direction element, carried opaque.
type IE219 struct{ Raw [6]byte }

func (IE219) TypeID() TypeID { return TI219 }

// IE232 is M_DEV_ST, the device status element (spec §3): firmware state,
// firmware version and hardware version, 7 bytes total.
type IE232 struct {
	FWState   model.FWState
	FWVersion model.FWVersion
	HWVersion model.HWVersion
}

func (IE232) TypeID() TypeID { return TI232 }

// IE233 is M_DEV_DC, the 7-byte opaque device descriptor (spec §3).
type IE233 struct{ Raw [7]byte }

func (IE233) TypeID() TypeID { return TI233 }

// IE240 is a seven-byte control-direction element, carried opaque.
type IE240 struct{ Raw [7]byte }

func (IE240) TypeID() TypeID { return TI240 }

// decodeIE parses the ieWidth(ti)-byte buf into a typed IE, falling back to
// IEUnknown for any TI this package has not special-cased. buf must have
// exactly ieWidth(ti) bytes; callers (the scanner) guarantee this.
func decodeIE(ti TypeID, buf []byte) (IE, error) {
	switch ti {
	case TI32:
		return IE32{Value: buf[0]}, nil
	case TI33:
		return IE33{Value: buf[0]}, nil
	case TI34:
		return IE34{Value: buf[0]}, nil
	case TI48:
		return IE48{Value: buf[0]}, nil
	case TI49:
		return IE49{Value: buf[0]}, nil
	case TI50:
		return IE50{Value: buf[0]}, nil
	case TI56:
		return IE56{Value: buf[0]}, nil
	case TI68:
		return IE68{Value: binary.LittleEndian.Uint16(buf)}, nil
	case TI84:
		return IE84{Value: binary.LittleEndian.Uint16(buf)}, nil
	case TI90:
		return IE90{Value: binary.LittleEndian.Uint16(buf)}, nil
	case TI129:
		return IE129{Value: binary.LittleEndian.Uint32(buf)}, nil
	case TI130:
		return IE130{Value: binary.LittleEndian.Uint32(buf)}, nil
	case TI131:
		return IE131{Value: binary.LittleEndian.Uint32(buf)}, nil
	case TI132:
		return IE132{Value: binary.LittleEndian.Uint32(buf)}, nil
	case TI147:
		return IE147{Value: binary.LittleEndian.Uint32(buf)}, nil
	case TI161:
		return IE161{Value: binary.LittleEndian.Uint32(buf[0:4]), QDS: buf[4]}, nil
	case TI192:
		var raw [6]byte
		copy(raw[:], buf)
		return IE192{Raw: raw}, nil
	case TI219:
		var raw [6]byte
		copy(raw[:], buf)
		return IE219{Raw: raw}, nil
	case TI232:
		return IE232{
			FWState:   model.FWState(buf[0]),
			FWVersion: model.FWVersion{Major: buf[1], Minor: buf[2], Patch: buf[3]},
			HWVersion: model.HWVersion{VID: buf[4], PID: buf[5], Rev: buf[6]},
		}, nil
	case TI233:
		var raw [7]byte
		copy(raw[:], buf)
		return IE233{Raw: raw}, nil
	case TI240:
		var raw [7]byte
		copy(raw[:], buf)
		return IE240{Raw: raw}, nil
	default:
		cp := make([]byte, len(buf))
		copy(cp, buf)
		return IEUnknown{TI: ti, Bytes: cp}, nil
	}
}

// EncodeIE marshals a typed IE back to its ieWidth(ti)-byte wire form, used by
// tests to round-trip builder output and by the builder when callers pass a
// typed IE instead of raw bytes.
func EncodeIE(ie IE) ([]byte, error) {
	width := ieWidth(ie.TypeID())
	buf := make([]byte, width)

	switch v := ie.(type) {
	case IE32:
		buf[0] = v.Value
	case IE33:
		buf[0] = v.Value
	case IE34:
		buf[0] = v.Value
	case IE48:
		buf[0] = v.Value
	case IE49:
		buf[0] = v.Value
	case IE50:
		buf[0] = v.Value
	case IE56:
		buf[0] = v.Value
	case IE68:
		binary.LittleEndian.PutUint16(buf, v.Value)
	case IE84:
		binary.LittleEndian.PutUint16(buf, v.Value)
	case IE90:
		binary.LittleEndian.PutUint16(buf, v.Value)
	case IE129:
		binary.LittleEndian.PutUint32(buf, v.Value)
	case IE130:
		binary.LittleEndian.PutUint32(buf, v.Value)
	case IE131:
		binary.LittleEndian.PutUint32(buf, v.Value)
	case IE132:
		binary.LittleEndian.PutUint32(buf, v.Value)
	case IE147:
		binary.LittleEndian.PutUint32(buf, v.Value)
	case IE161:
		binary.LittleEndian.PutUint32(buf[0:4], v.Value)
		buf[4] = v.QDS
	case IE192:
		copy(buf, v.Raw[:])
	case IE219:
		copy(buf, v.Raw[:])
	case IE232:
		buf[0] = byte(v.FWState)
		buf[1], buf[2], buf[3] = v.FWVersion.Major, v.FWVersion.Minor, v.FWVersion.Patch
		buf[4], buf[5], buf[6] = v.HWVersion.VID, v.HWVersion.PID, v.HWVersion.Rev
	case IE233:
		copy(buf, v.Raw[:])
	case IE240:
		copy(buf, v.Raw[:])
	case IEUnknown:
		copy(buf, v.Bytes)
	default:
		return nil, fmt.Errorf("ptnet: encode IE: unsupported type %T", ie)
	}
	return buf, nil
}
