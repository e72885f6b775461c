package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x00:0x00:0x00:0x00:0x00:0x01")
	require.NoError(t, err)
	assert.Equal(t, NodeAddress{0, 0, 0, 0, 0, 1}, addr)
	assert.Equal(t, "0x00:0x00:0x00:0x00:0x00:0x01", addr.String())

	_, err = ParseAddress("00:00:00:01")
	assert.Error(t, err)
}

func TestParseUserAddress(t *testing.T) {
	addr, err := ParseUserAddress("AA:BB:CC:DD")
	require.NoError(t, err)
	assert.Equal(t, NodeAddress{0, 0, 0xAA, 0xBB, 0xCC, 0xDD}, addr)
}
