// Package packet implements the immutable wire-level MAVLink frame plus the
// small amount of mutable routing state (priority, owning connection
// handle) a Connection attaches to it in flight.
package packet

import (
	"fmt"

	"mavrouter/internal/mavaddress"
)

// ConnectionHandle identifies the Connection that owns a packet's backward
// reference, in place of a language-level weak pointer (see SPEC_FULL.md
// §3.A). The zero value means "no connection".
type ConnectionHandle uint64

// Packet is a single parsed MAVLink frame plus routing metadata. The wire
// fields are immutable after construction; Priority is set by a Connection
// right before it queues the packet, and Connection is set by the
// Interface that received it.
type Packet struct {
	data          []byte
	versionMajor  int
	versionMinor  int
	id            uint32
	name          string
	source        mavaddress.Address
	dest          mavaddress.Address
	hasDest       bool
	priority      int
	connection    ConnectionHandle
	hasConnection bool
}

// New constructs a packet. data is the raw wire bytes (copied), id/name
// identify the MAVLink message, source is mandatory, dest is optional
// (hasDest false means the message has no addressed target).
func New(data []byte, versionMajor, versionMinor int, id uint32, name string, source mavaddress.Address, dest mavaddress.Address, hasDest bool) *Packet {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Packet{
		data:         buf,
		versionMajor: versionMajor,
		versionMinor: versionMinor,
		id:           id,
		name:         name,
		source:       source,
		dest:         dest,
		hasDest:      hasDest,
	}
}

// Data returns the raw wire bytes. Callers must not modify the slice.
func (p *Packet) Data() []byte { return p.data }

// ID returns the MAVLink message id.
func (p *Packet) ID() uint32 { return p.id }

// Name returns the MAVLink message name, e.g. "HEARTBEAT".
func (p *Packet) Name() string { return p.name }

// Version returns the MAVLink protocol major/minor version of this frame.
func (p *Packet) Version() (major, minor int) { return p.versionMajor, p.versionMinor }

// Source returns the originating system/component address.
func (p *Packet) Source() mavaddress.Address { return p.source }

// Dest returns the destination address and whether the message carries one.
func (p *Packet) Dest() (mavaddress.Address, bool) { return p.dest, p.hasDest }

// Priority returns the packet's current forwarding priority.
func (p *Packet) Priority() int { return p.priority }

// SetPriority sets the forwarding priority, used by Connection.send to
// annotate a packet before it is queued.
func (p *Packet) SetPriority(priority int) { p.priority = priority }

// Connection returns the owning connection's handle, if any.
func (p *Packet) Connection() (ConnectionHandle, bool) { return p.connection, p.hasConnection }

// SetConnection records which connection a packet was received on.
func (p *Packet) SetConnection(h ConnectionHandle) {
	p.connection = h
	p.hasConnection = true
}

func (p *Packet) String() string {
	s := fmt.Sprintf("%s(#%d) from %s", p.name, p.id, p.source)
	if p.hasDest {
		s += fmt.Sprintf(" to %s", p.dest)
	}
	s += fmt.Sprintf(" (v%d.%d)", p.versionMajor, p.versionMinor)
	return s
}
