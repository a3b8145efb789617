// Package packet defines the uniform packet contract and the handful of
// concrete packet bodies the proxy core cares about directly, plus a set of
// additional bodies carried over from the reference implementation for
// completeness (see SPEC_FULL.md EXTRA). New packet types beyond these are
// expected to be registered by embedding code through the dispatch package's
// generic registration helpers; they don't need to live in this package.
package packet

import "mcproxy/buffer"

// Direction distinguishes which side of the proxy originates a packet.
type Direction uint8

const (
	// Inbound packets travel client -> server.
	Inbound Direction = iota
	// Outbound packets travel server -> client.
	Outbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

// State is the protocol state that determines how a packet's id namespace is
// interpreted. Both halves of a connection pair always share the same State.
type State uint8

const (
	Handshaking State = iota
	Status
	Login
	Play
)

// NumStates is the number of valid protocol states (0..=3), used to size
// per-state dispatch tables.
const NumStates = int(Play) + 1

func (s State) String() string {
	switch s {
	case Handshaking:
		return "handshaking"
	case Status:
		return "status"
	case Login:
		return "login"
	case Play:
		return "play"
	default:
		return "unknown"
	}
}

// Packet is the contract every concrete packet body implements: it knows its
// own (id, state, direction) metadata, can serialize and deserialize itself
// against a buffer.Buffer, and exposes Unwrap as the runtime-type-recovery
// handle so a registered transformer can downcast from the interface back to
// its concrete type (mirroring the reference implementation's Any-based
// downcast, without requiring this package to know about every transformer's
// concrete type).
type Packet interface {
	// ID returns the packet id within this packet's (state, direction) namespace.
	ID() int32
	// State returns the protocol state this packet belongs to.
	State() State
	// Direction returns which side of the connection originates this packet.
	Direction() Direction
	// Read deserializes the packet body (the bytes after the id VarInt) from src.
	Read(src *buffer.Buffer) error
	// Write serializes the packet body (excluding the id VarInt) to dst.
	Write(dst *buffer.Buffer) error
	// Unwrap returns the packet itself as any, the runtime-type-recovery
	// handle used by generic transformer dispatch to downcast to a concrete type.
	Unwrap() any
}
