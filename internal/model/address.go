// Package model holds the small value types shared by the wire codec, the
// firmware container, and the node store: NodeAddress, FWVersion and HWVersion
// (spec §3).
package model

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// NodeAddress is the fixed 6-byte identifier of a node. Its total order is
// lexicographic on the bytes; that order is the store's key order (spec §3).
type NodeAddress [6]byte

// String renders the address the way the source does: colon-separated,
// upper-case hex, each byte prefixed "0x" (spec §3's "idiosyncratic format").
func (a NodeAddress) String() string {
	parts := make([]string, len(a))
	for i, b := range a {
		parts[i] = fmt.Sprintf("0x%02X", b)
	}
	return strings.Join(parts, ":")
}

// Compare returns -1, 0 or 1 comparing a to b lexicographically byte-by-byte.
func (a NodeAddress) Compare(b NodeAddress) int {
	return bytes.Compare(a[:], b[:])
}

// Less reports whether a sorts strictly before b.
func (a NodeAddress) Less(b NodeAddress) bool { return a.Compare(b) < 0 }

// ParseAddress parses the full 6-byte address form, tolerating either the
// "0x"-prefixed String() output or plain "aa:bb:cc:dd:ee:ff" hex, for operator
// tools that address a node directly rather than through the external model.
func ParseAddress(s string) (NodeAddress, error) {
	toks := strings.Split(s, ":")
	if len(toks) != 6 {
		return NodeAddress{}, fmt.Errorf("parse address %q: expected 6 hex bytes, got %d", s, len(toks))
	}

	var addr NodeAddress
	for i, tok := range toks {
		tok = strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return NodeAddress{}, fmt.Errorf("parse address %q: byte %d: %w", s, i, err)
		}
		addr[i] = byte(v)
	}
	return addr, nil
}

// ParseUserAddress parses the external user-model's 4-byte address form
// "aa:bb:cc:dd" (hex) and prepends 0x00, 0x00 to reach the 6-byte NodeAddress,
// per spec §4.8.
func ParseUserAddress(s string) (NodeAddress, error) {
	toks := strings.Split(s, ":")
	if len(toks) != 4 {
		return NodeAddress{}, fmt.Errorf("parse user address %q: expected 4 hex bytes, got %d", s, len(toks))
	}

	var addr NodeAddress
	for i, tok := range toks {
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return NodeAddress{}, fmt.Errorf("parse user address %q: byte %d: %w", s, i, err)
		}
		addr[2+i] = byte(v)
	}
	return addr, nil
}
