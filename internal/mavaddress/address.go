// Package mavaddress implements the 16-bit MAVLink system/component address
// and the subnet matching built on top of it.
package mavaddress

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrOutOfRange is returned when a numeric component of an address or
// subnet falls outside its valid range.
var ErrOutOfRange = errors.New("mavaddress: out of range")

// Broadcast is the address (0.0) used to mean "every component".
var Broadcast = Address{}

// Address is a MAVLink system/component pair packed into 16 bits, system in
// the high byte and component in the low byte.
type Address struct {
	value uint16
}

// New builds an address from a combined 16-bit value.
func New(value int) (Address, error) {
	if value < 0 || value > 0xFFFF {
		return Address{}, fmt.Errorf("%w: address %d not in [0, 65535]", ErrOutOfRange, value)
	}
	return Address{value: uint16(value)}, nil
}

// NewFromParts builds an address from separate system and component ids,
// each in [0, 255].
func NewFromParts(system, component int) (Address, error) {
	if system < 0 || system > 0xFF {
		return Address{}, fmt.Errorf("%w: system %d not in [0, 255]", ErrOutOfRange, system)
	}
	if component < 0 || component > 0xFF {
		return Address{}, fmt.Errorf("%w: component %d not in [0, 255]", ErrOutOfRange, component)
	}
	return Address{value: uint16(system)<<8 | uint16(component)}, nil
}

// Parse parses the "<system>.<component>" textual form.
func Parse(s string) (Address, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return Address{}, fmt.Errorf("%w: address %q must have exactly one '.'", ErrOutOfRange, s)
	}
	system, err := strconv.Atoi(parts[0])
	if err != nil {
		return Address{}, fmt.Errorf("%w: invalid system in %q", ErrOutOfRange, s)
	}
	component, err := strconv.Atoi(parts[1])
	if err != nil {
		return Address{}, fmt.Errorf("%w: invalid component in %q", ErrOutOfRange, s)
	}
	return NewFromParts(system, component)
}

// Value returns the combined 16-bit address.
func (a Address) Value() int { return int(a.value) }

// System returns the high byte.
func (a Address) System() int { return int(a.value >> 8) }

// Component returns the low byte.
func (a Address) Component() int { return int(a.value & 0xFF) }

// IsBroadcast reports whether this is the all-zero broadcast address.
func (a Address) IsBroadcast() bool { return a.value == 0 }

// Equal reports value equality.
func (a Address) Equal(b Address) bool { return a.value == b.value }

// Less orders addresses by their combined numeric value.
func (a Address) Less(b Address) bool { return a.value < b.value }

func (a Address) String() string {
	return fmt.Sprintf("%d.%d", a.System(), a.Component())
}
