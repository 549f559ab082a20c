// Package filter defines the pluggable packet-admission contract Connection
// consults before forwarding, plus its one concrete implementation: a rule
// chain evaluated the way mavtables' ActionResult/Action pair evaluates
// accept/reject/call/goto rules.
package filter

import (
	"mavrouter/internal/mavaddress"
	"mavrouter/internal/packet"
)

// Verdict is the result of asking a Filter whether it will accept a packet
// addressed to recipient, and if so at what priority.
type Verdict struct {
	Accept   bool
	Priority int
}

// Filter decides whether a packet may be forwarded to a candidate
// recipient address. Connection calls WillAccept once per candidate
// address in its broadcast fan-out path, and once for the single
// destination in its targeted-send path.
type Filter interface {
	WillAccept(pkt *packet.Packet, recipient mavaddress.Address) Verdict
}
