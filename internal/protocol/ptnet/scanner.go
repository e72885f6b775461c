package ptnet

import (
	"errors"
	"fmt"

	"github.com/elrafoon/ptnet-mgr/internal/ptneterr"
)

// TokenKind identifies which field a Token carries (spec §4.1).
type TokenKind int

const (
	TokenASDH TokenKind = iota
	TokenDUI
	TokenIOA
	TokenIE
)

// Token is one unit of the scanner's pull-based output stream.
// Exactly one field matching Kind is populated.
type Token struct {
	Kind TokenKind
	ASDH ASDH
	DUI  DUI
	IOA  IOA
	IE   IE
}

// scanState is the scanner's internal state machine position (spec §4.1):
// ScanASDH -> ScanDUI -> ScanIOA -> {ScanIE | ScanDUI}.
type scanState int

const (
	scanASDH scanState = iota
	scanDUI
	scanIOA
	scanIE
)

// Scanner is a pull iterator over one ASDU byte slice. It holds no I/O state:
// constructing a new Scanner over the same slice restarts parsing from the
// beginning (spec §4.1).
type Scanner struct {
	buf   []byte
	pos   int
	state scanState

	curCOT COT // cause of transmission from the ASDH; selects no-IE groups
	curDUI DUI
	remain uint8 // IE groups left to produce in the current DUI_group
}

// NewScanner creates a scanner over buf. buf is not copied or retained beyond
// the lifetime of the Next calls; callers must not mutate it while scanning.
func NewScanner(buf []byte) *Scanner {
	return &Scanner{buf: buf, state: scanASDH}
}

// Next returns the next token, io.EOF-equivalent ptneterr.ErrIO-free success
// sentinel (a nil, nil return means the scan is complete at a group
// boundary), ptneterr.ErrShortRead if the buffer ends mid-group, or
// ptneterr.ErrInvalidPacket if a DUI's VSQ.N is zero (spec §4.1, §8).
func (s *Scanner) Next() (*Token, error) {
	switch s.state {
	case scanASDH:
		return s.nextASDH()
	case scanDUI:
		return s.nextDUI()
	case scanIOA:
		return s.nextIOA()
	case scanIE:
		return s.nextIE()
	default:
		return nil, fmt.Errorf("ptnet: scanner: unreachable state %d", s.state)
	}
}

func (s *Scanner) nextASDH() (*Token, error) {
	if len(s.buf)-s.pos < 2 {
		if s.pos == 0 {
			return nil, fmt.Errorf("ptnet: scanner: %w: buffer too short for ASDH", ptneterr.ErrShortRead)
		}
		return nil, nil
	}
	asdh := decodeASDH(s.buf[s.pos : s.pos+2])
	s.pos += 2
	s.curCOT = asdh.Cot
	s.state = scanDUI
	return &Token{Kind: TokenASDH, ASDH: asdh}, nil
}

func (s *Scanner) nextDUI() (*Token, error) {
	if s.pos == len(s.buf) {
		// Clean end of buffer at a group boundary: success.
		return nil, nil
	}
	if len(s.buf)-s.pos < 2 {
		return nil, fmt.Errorf("ptnet: scanner: %w: buffer too short for DUI", ptneterr.ErrShortRead)
	}
	dui := decodeDUI(s.buf[s.pos : s.pos+2])
	if dui.N == 0 {
		return nil, fmt.Errorf("ptnet: scanner: %w: VSQ.N == 0", ptneterr.ErrInvalidPacket)
	}
	s.pos += 2
	s.curDUI = dui
	s.remain = dui.N
	s.state = scanIOA
	return &Token{Kind: TokenDUI, DUI: dui}, nil
}

func (s *Scanner) nextIOA() (*Token, error) {
	if len(s.buf)-s.pos < 1 {
		return nil, fmt.Errorf("ptnet: scanner: %w: buffer too short for IOA", ptneterr.ErrShortRead)
	}
	ioa := IOA(s.buf[s.pos])
	s.pos++

	if s.curCOT.noIE() {
		// Certain COTs carry no IE and shall carry only one IOB/IOA
		// regardless of N: emit it and go straight back to ScanDUI
		// (spec §4.1).
		s.state = scanDUI
		return &Token{Kind: TokenIOA, IOA: ioa}, nil
	}

	s.state = scanIE
	return &Token{Kind: TokenIOA, IOA: ioa}, nil
}

func (s *Scanner) nextIE() (*Token, error) {
	width := ieWidth(s.curDUI.TI)
	if len(s.buf)-s.pos < width {
		return nil, fmt.Errorf("ptnet: scanner: %w: buffer too short for IE (ti=%d, width=%d)", ptneterr.ErrShortRead, s.curDUI.TI, width)
	}
	ie, err := decodeIE(s.curDUI.TI, s.buf[s.pos:s.pos+width])
	if err != nil {
		return nil, fmt.Errorf("ptnet: scanner: decode IE: %w", err)
	}
	s.pos += width

	s.remain--
	if s.remain == 0 {
		s.state = scanDUI
	} else if s.curDUI.SQ {
		// SQ mode: stay in ScanIE for the next IE (IOA increment is the IOB
		// iterator's concern, not the token scanner's).
		s.state = scanIE
	} else {
		// Non-SQ mode: each IE is followed by its own IOA.
		s.state = scanIOA
	}
	return &Token{Kind: TokenIE, IE: ie}, nil
}

// All drains the scanner into a slice, stopping at a clean EOF. A non-nil
// error means the scan aborted before a group boundary.
func (s *Scanner) All() ([]Token, error) {
	var toks []Token
	for {
		tok, err := s.Next()
		if err != nil {
			return toks, err
		}
		if tok == nil {
			return toks, nil
		}
		toks = append(toks, *tok)
	}
}

// IsShortRead reports whether err is (or wraps) ptneterr.ErrShortRead.
func IsShortRead(err error) bool { return errors.Is(err, ptneterr.ErrShortRead) }

// IsInvalidPacket reports whether err is (or wraps) ptneterr.ErrInvalidPacket.
func IsInvalidPacket(err error) bool { return errors.Is(err, ptneterr.ErrInvalidPacket) }
