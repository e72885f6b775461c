package ptnet

// ASDH is the ASDU header (spec §4.1, glossary "ASDH"): common address plus
// cause of transmission and the P/N flag, 2 bytes total.
type ASDH struct {
	CA  uint8
	Cot COT
	PN  bool
}

func decodeASDH(b []byte) ASDH {
	return ASDH{
		CA:  b[0],
		Cot: COT(b[1] & 0x3F),
		PN:  b[1]&0x80 != 0,
	}
}

func (a ASDH) encode() [2]byte {
	v := byte(a.Cot) & 0x3F
	if a.PN {
		v |= 0x80
	}
	return [2]byte{a.CA, v}
}

// DUI is the Data Unit Identifier (spec §4.1, glossary "DUI"): type
// identifier plus the variable structure qualifier (count + sequence flag),
// 2 bytes total.
//
// VSQ bit layout: N occupies the low 4 bits, SQ is bit 4; bits 5-7 are
// reserved (zero in every wire example this package has). Spec §4.1's prose
// describes a 7-bit N with SQ in bit 7, but both worked scenarios in §8 (S1:
// VSQ=0x03 -> n=3,sq=0; S2: VSQ=0x15 -> n=5,sq=1) and the low4/bit4 layout
// are the only reading consistent with those bytes, so the scenarios win
// over the prose (see DESIGN.md).
type DUI struct {
	TI TypeID
	N  uint8
	SQ bool
}

func decodeDUI(b []byte) DUI {
	return DUI{
		TI: TypeID(b[0]),
		N:  b[1] & 0x0F,
		SQ: b[1]&0x10 != 0,
	}
}

func (d DUI) encode() [2]byte {
	v := d.N & 0x0F
	if d.SQ {
		v |= 0x10
	}
	return [2]byte{byte(d.TI), v}
}

// IOA is an Information Object Address (spec §4.1, glossary "IOA"), one byte.
type IOA uint8
