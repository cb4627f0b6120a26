package pcmio

import "time"

// NodeType is the coarse classification of the attached node the server's
// routing and UI layers key off of.
type NodeType int

const (
	NodeTypeBluetooth NodeType = iota
	// NodeTypeBluetoothNBMic marks an HFP input node as narrowband mic
	// capture.
	NodeTypeBluetoothNBMic
)

// NodeFlags are bitwise metadata flags carried on the attached node.
type NodeFlags uint8

const (
	NodeFlagFloss NodeFlags = 1 << iota
	NodeFlagA2DP
	NodeFlagHFP
)

// Node is the descriptor attached to a PcmDevice, carrying the identity
// and metadata the server's node table needs. It is exclusively owned by
// the device it is attached to.
type Node struct {
	StableID    uint32
	Volume      int // 0..100
	Type        NodeType
	Flags       NodeFlags
	PluggedTime time.Time
}
