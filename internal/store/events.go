package store

import (
	"github.com/elrafoon/ptnet-mgr/internal/broadcast"
	"github.com/elrafoon/ptnet-mgr/internal/model"
)

// EventChannelCapacity is the bounded broadcast capacity spec §4.4/§9 mandates
// for channels consumers must tolerate gaps on (here, node change events).
const EventChannelCapacity = 128

// EventKind discriminates the events the store publishes (spec §4.3, §8
// scenario S4 for NodeRemoved).
type EventKind int

const (
	NodeAdded EventKind = iota
	NodeModified
	NodeRemoved
)

// Event is a post-commit notification carrying an immutable record snapshot.
// Subscribers must not mutate Record (spec §3, "Ownership / lifecycle").
type Event struct {
	Kind   EventKind
	Record model.NodeRecord
}

func newBroadcaster() *broadcast.Broadcaster[Event] {
	return broadcast.New[Event](EventChannelCapacity)
}
