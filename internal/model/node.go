package model

// DeviceStatus mirrors the wire M_DEV_ST information element (spec §3): the
// node's current firmware state plus the firmware/hardware versions it
// reported.
type DeviceStatus struct {
	FWState   FWState   `cbor:"fw_state"`
	FWVersion FWVersion `cbor:"fw_version"`
	HWVersion HWVersion `cbor:"hw_version"`
}

// FWState is the device firmware state axis the FWU orchestrator reads from
// DeviceStatus (spec §4.7's "State axis A"): Idle | Download | Flashing |
// Updated.
//
// Ordinal values, like the wire magics and TC_C_FW_IU (SPEC_FULL.md Open
// Question 3), originate from the C enum the gateway binds and are not
// reproduced anywhere in this repository's source material; the natural
// declaration order (Idle, Download, Flashing, Updated) is taken as the
// ordinal order pending confirmation against that header.
type FWState uint8

const (
	FWStateIdle FWState = iota
	FWStateDownload
	FWStateFlashing
	FWStateUpdated
)

func (s FWState) String() string {
	switch s {
	case FWStateIdle:
		return "Idle"
	case FWStateDownload:
		return "Download"
	case FWStateFlashing:
		return "Flashing"
	case FWStateUpdated:
		return "Updated"
	default:
		return "Unknown"
	}
}

// DeviceDescriptor mirrors the wire M_DEV_DC information element (spec §3):
// a 7-byte opaque blob, unparsed beyond the wire's own framing.
type DeviceDescriptor struct {
	Raw [7]byte `cbor:"raw"`
}

// NodeRecord is the store's per-address record (spec §3). DeviceStatus and
// DeviceDescriptor are nil until first observed by the persistor.
type NodeRecord struct {
	Address          NodeAddress       `cbor:"address"`
	DeviceStatus     *DeviceStatus     `cbor:"device_status,omitempty"`
	DeviceDescriptor *DeviceDescriptor `cbor:"device_descriptor,omitempty"`
}

// GoalKind discriminates the FWUState.Goal tagged union (spec §3).
type GoalKind uint8

const (
	GoalNone GoalKind = iota
	GoalKeepCurrent
	GoalApproveUpdateTo
	GoalUpdateTo
)

func (k GoalKind) String() string {
	switch k {
	case GoalNone:
		return "None"
	case GoalKeepCurrent:
		return "KeepCurrent"
	case GoalApproveUpdateTo:
		return "ApproveUpdateTo"
	case GoalUpdateTo:
		return "UpdateTo"
	default:
		return "Unknown"
	}
}

// Goal is the FWU goal for one node (spec §3, §4.7). Version is only
// meaningful for ApproveUpdateTo and UpdateTo.
type Goal struct {
	Kind    GoalKind  `cbor:"kind"`
	Version FWVersion `cbor:"version,omitempty"`
}

// FWUState is the fwu_state table's per-address record (spec §3). The zero
// value is the default goal None, lazily created on first inspection.
type FWUState struct {
	Goal Goal `cbor:"goal"`
}
