// Package codec implements the incremental MAVLink v1/v2 byte-state
// machine every Interface feeds its raw transport bytes through. It is a
// deliberately self-contained, stdlib-only implementation: the original
// mavtables project's retrieved source set (see original_source/_INDEX.md)
// has no PacketParser.cpp either, confirming that byte-to-frame parsing is
// treated as an external dependency the router doesn't own, not a gap in
// this port. gomavlib's Node/Endpoint API reads a whole io.Reader stream
// and does not expose a "feed one byte, maybe get a frame, and I might be
// reset mid-frame" primitive at this granularity, so it is used elsewhere
// (message id -> name lookup, see dialect.go) rather than here.
package codec

import (
	"mavrouter/internal/mavaddress"
	"mavrouter/internal/packet"
)

const (
	magicV1 = 0xFE
	magicV2 = 0xFD

	headerLenV1 = 5 // len, seq, sysid, compid, msgid
	headerLenV2 = 9
)

type state int

const (
	stateIdle state = iota
	stateHeader
	statePayload
	stateChecksum
	stateSignature
)

// Codec incrementally parses a MAVLink v1/v2 byte stream. The zero value is
// ready to use.
type Codec struct {
	st        state
	buf       []byte
	needed    int
	isV2      bool
	incompat  byte
	payloadLn int
}

// Clear resets the parser to its idle state, discarding any partial frame.
// UdpInterface calls this whenever the source endpoint (address or port) of
// an incoming datagram changes mid-stream, per spec §4.7.
func (c *Codec) Clear() {
	c.st = stateIdle
	c.buf = c.buf[:0]
	c.needed = 0
	c.isV2 = false
	c.incompat = 0
	c.payloadLn = 0
}

// ParseByte feeds one byte into the parser. It returns a complete Packet
// and true when b completes a frame, else (nil, false).
func (c *Codec) ParseByte(b byte) (*packet.Packet, bool) {
	switch c.st {
	case stateIdle:
		switch b {
		case magicV1:
			c.buf = append(c.buf[:0], b)
			c.isV2 = false
			c.needed = headerLenV1
			c.st = stateHeader
		case magicV2:
			c.buf = append(c.buf[:0], b)
			c.isV2 = true
			c.needed = headerLenV2
			c.st = stateHeader
		}
		return nil, false

	case stateHeader:
		c.buf = append(c.buf, b)
		if len(c.buf)-1 < c.needed {
			return nil, false
		}
		if c.isV2 {
			c.payloadLn = int(c.buf[1])
			c.incompat = c.buf[2]
		} else {
			c.payloadLn = int(c.buf[1])
		}
		c.needed = c.payloadLn
		if c.needed == 0 {
			c.st = stateChecksum
			c.needed = 2
		} else {
			c.st = statePayload
		}
		return nil, false

	case statePayload:
		c.buf = append(c.buf, b)
		c.needed--
		if c.needed == 0 {
			c.st = stateChecksum
			c.needed = 2
		}
		return nil, false

	case stateChecksum:
		c.buf = append(c.buf, b)
		c.needed--
		if c.needed > 0 {
			return nil, false
		}
		if c.isV2 && c.incompat&0x01 != 0 {
			c.st = stateSignature
			c.needed = 13
			return nil, false
		}
		return c.finish()

	case stateSignature:
		c.buf = append(c.buf, b)
		c.needed--
		if c.needed > 0 {
			return nil, false
		}
		return c.finish()
	}
	return nil, false
}

func (c *Codec) finish() (*packet.Packet, bool) {
	frame := make([]byte, len(c.buf))
	copy(frame, c.buf)
	c.Clear()

	var sysID, compID int
	var msgID uint32
	var payloadStart int
	var versionMajor, versionMinor int

	if frame[0] == magicV2 {
		versionMajor, versionMinor = 2, 0
		sysID = int(frame[5])
		compID = int(frame[6])
		msgID = uint32(frame[7]) | uint32(frame[8])<<8 | uint32(frame[9])<<16
		payloadStart = 10
	} else {
		versionMajor, versionMinor = 1, 0
		sysID = int(frame[3])
		compID = int(frame[4])
		msgID = uint32(frame[5])
		payloadStart = 6
	}

	source, err := mavaddress.NewFromParts(sysID, compID)
	if err != nil {
		return nil, false
	}

	name := MessageName(msgID)
	dest, hasDest := extractDest(msgID, frame[payloadStart:])

	return packet.New(frame, versionMajor, versionMinor, msgID, name, source, dest, hasDest), true
}

// extractDest looks up msgID in the known-targeted-message table and, if
// present, reads target_system/target_component out of the payload at the
// table's fixed offsets.
func extractDest(msgID uint32, payload []byte) (mavaddress.Address, bool) {
	tm, ok := targetedMessages[msgID]
	if !ok {
		return mavaddress.Address{}, false
	}
	if tm.sysOffset >= len(payload) || tm.compOffset >= len(payload) {
		return mavaddress.Address{}, false
	}
	addr, err := mavaddress.NewFromParts(int(payload[tm.sysOffset]), int(payload[tm.compOffset]))
	if err != nil {
		return mavaddress.Address{}, false
	}
	return addr, true
}
