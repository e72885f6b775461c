package store

import "github.com/elrafoon/ptnet-mgr/internal/model"

// Key namespace (spec §4.3): two tables, "nodes" and "fwu_state", both keyed
// by the node's 6-byte address. The address is appended raw (not hex-encoded)
// so that badger's native byte-lexicographic key iteration matches the
// NodeAddress total order the spec mandates (spec §3).
const (
	prefixNode = "n:"
	prefixFWU  = "f:"
)

func keyNode(addr model.NodeAddress) []byte {
	return append([]byte(prefixNode), addr[:]...)
}

func keyFWU(addr model.NodeAddress) []byte {
	return append([]byte(prefixFWU), addr[:]...)
}

func addrFromNodeKey(key []byte) model.NodeAddress {
	var addr model.NodeAddress
	copy(addr[:], key[len(prefixNode):])
	return addr
}
