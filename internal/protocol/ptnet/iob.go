package ptnet

import (
	"fmt"

	"github.com/elrafoon/ptnet-mgr/internal/ptneterr"
)

// IOB is a fully-assembled information object: the ASDH and DUI in force when
// it was produced, its address, and its element (spec §4.1, glossary "IOB").
type IOB struct {
	ASDH ASDH
	DUI  DUI
	IOA  IOA
	IE   IE
}

// IOBIterator layers fully-assembled IOBs over the token Scanner, tracking
// the current ASDH/DUI and auto-incrementing IOA in SQ mode (spec §4.1).
type IOBIterator struct {
	scanner *Scanner

	haveASDH bool
	asdh     ASDH
	haveDUI  bool
	dui      DUI

	nextIOA   IOA
	haveIOA   bool
	sawFirstE bool // whether the current DUI_group has seen its explicit IOA yet
}

// NewIOBIterator wraps a Scanner constructed over buf.
func NewIOBIterator(buf []byte) *IOBIterator {
	return &IOBIterator{scanner: NewScanner(buf)}
}

// Next returns the next fully-assembled IOB. A nil IOB and nil error means
// the underlying scan completed cleanly. An IE token arriving before any
// ASDH/DUI is ptneterr.ErrInvalidPacket (spec §4.1).
func (it *IOBIterator) Next() (*IOB, error) {
	for {
		tok, err := it.scanner.Next()
		if err != nil {
			return nil, err
		}
		if tok == nil {
			return nil, nil
		}

		switch tok.Kind {
		case TokenASDH:
			it.asdh = tok.ASDH
			it.haveASDH = true
			it.haveDUI = false

		case TokenDUI:
			if !it.haveASDH {
				return nil, fmt.Errorf("ptnet: iob: %w: DUI before ASDH", ptneterr.ErrInvalidPacket)
			}
			it.dui = tok.DUI
			it.haveDUI = true
			it.haveIOA = false

		case TokenIOA:
			if !it.haveDUI {
				return nil, fmt.Errorf("ptnet: iob: %w: IOA before DUI", ptneterr.ErrInvalidPacket)
			}
			it.nextIOA = tok.IOA
			it.haveIOA = true

			if it.asdh.Cot.noIE() {
				// No-IE COTs: the IOA alone is the complete information
				// object (spec §4.1).
				return &IOB{ASDH: it.asdh, DUI: it.dui, IOA: tok.IOA}, nil
			}

		case TokenIE:
			if !it.haveIOA {
				return nil, fmt.Errorf("ptnet: iob: %w: IE before IOA", ptneterr.ErrInvalidPacket)
			}
			ioa := it.nextIOA
			iob := &IOB{ASDH: it.asdh, DUI: it.dui, IOA: ioa, IE: tok.IE}
			if it.dui.SQ {
				it.nextIOA++
			}
			return iob, nil
		}
	}
}

// All drains the iterator into a slice, stopping at a clean EOF.
func (it *IOBIterator) All() ([]IOB, error) {
	var iobs []IOB
	for {
		iob, err := it.Next()
		if err != nil {
			return iobs, err
		}
		if iob == nil {
			return iobs, nil
		}
		iobs = append(iobs, *iob)
	}
}
