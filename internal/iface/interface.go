// Package iface implements the transport-facing Interface contract and its
// two concrete realizations (serial, UDP), plus InterfaceThreader, which
// drives each Interface's send/receive halves on their own goroutine.
package iface

import (
	"context"
	"fmt"
)

// Interface is the abstract transport contract every concrete interface
// satisfies: one blocking send step and one blocking receive step, each
// bounded by ctx, run in a loop by InterfaceThreader. fmt.Stringer gives
// each interface a diagnostic name (peer address, device path) the way the
// original's friend stream operator delegates to print_().
type Interface interface {
	SendPacket(ctx context.Context) error
	ReceivePacket(ctx context.Context) error
	fmt.Stringer
}
