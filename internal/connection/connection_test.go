package connection

import (
	"context"
	"testing"
	"time"

	"mavrouter/internal/addresspool"
	"mavrouter/internal/filter"
	"mavrouter/internal/mavaddress"
	"mavrouter/internal/packet"
	"mavrouter/internal/pqueue"
)

type acceptAllFilter struct{ priority int }

func (f acceptAllFilter) WillAccept(pkt *packet.Packet, recipient mavaddress.Address) filter.Verdict {
	return filter.Verdict{Accept: true, Priority: f.priority}
}

func mustAddr(t *testing.T, s string) mavaddress.Address {
	t.Helper()
	a, err := mavaddress.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return a
}

func newTestConnection(t *testing.T, f filter.Filter, mirror bool) *Connection {
	t.Helper()
	c, err := New("test", f, mirror, addresspool.New(), pqueue.New(nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func mkTargetedPacket(t *testing.T, source, dest string) *packet.Packet {
	t.Helper()
	return packet.New([]byte{1}, 2, 0, 76, "COMMAND_LONG", mustAddr(t, source), mustAddr(t, dest), true)
}

func mkBroadcastPacket(t *testing.T, source string) *packet.Packet {
	t.Helper()
	return packet.New([]byte{1}, 2, 0, 0, "HEARTBEAT", mustAddr(t, source), mavaddress.Address{}, false)
}

func TestSendToAddress_TargetedAccept(t *testing.T) {
	c := newTestConnection(t, acceptAllFilter{priority: 7}, false)
	c.AddAddress(mustAddr(t, "1.1"))
	pkt := mkTargetedPacket(t, "9.9", "1.1")
	if err := c.Send(pkt); err != nil {
		t.Fatalf("Send: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	got, ok := c.NextPacket(ctx)
	if !ok {
		t.Fatal("expected a queued packet")
	}
	if got.Priority() != 7 {
		t.Fatalf("Priority() = %d, want 7", got.Priority())
	}
}

func TestSendToAddress_TargetedUnreachable(t *testing.T) {
	c := newTestConnection(t, acceptAllFilter{priority: 7}, false)
	// No AddAddress call: the destination was never learned on this
	// connection, so it must not be queued even though the filter accepts.
	pkt := mkTargetedPacket(t, "9.9", "1.1")
	if err := c.Send(pkt); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := c.QueueLen(); n != 0 {
		t.Fatalf("QueueLen() = %d, want 0", n)
	}
}

func TestSendToAll_BroadcastTakesMaxPriority(t *testing.T) {
	c := newTestConnection(t, acceptAllFilter{priority: 3}, false)
	c.AddAddress(mustAddr(t, "1.1"))
	c.AddAddress(mustAddr(t, "1.2"))
	pkt := mkBroadcastPacket(t, "9.9")
	if err := c.Send(pkt); err != nil {
		t.Fatalf("Send: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	got, ok := c.NextPacket(ctx)
	if !ok {
		t.Fatal("expected a queued packet")
	}
	if got.Priority() != 3 {
		t.Fatalf("Priority() = %d, want 3", got.Priority())
	}
	// Only one packet should have been queued (a single broadcast send).
	if n := c.QueueLen(); n != 0 {
		t.Fatalf("QueueLen() = %d, want 0 after draining the single broadcast", n)
	}
}

func TestSendToAll_ExcludesOwnSource(t *testing.T) {
	c := newTestConnection(t, acceptAllFilter{priority: 1}, false)
	src := mustAddr(t, "9.9")
	c.AddAddress(src)
	pkt := mkBroadcastPacket(t, "9.9")
	if err := c.Send(pkt); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := c.QueueLen(); n != 0 {
		t.Fatalf("QueueLen() = %d, want 0 (only candidate was the packet's own source)", n)
	}
}

func TestSend_MirrorBypassesTargetedPath(t *testing.T) {
	c := newTestConnection(t, acceptAllFilter{priority: 2}, true)
	// Mirror connections always go through sendToAll, even for a targeted,
	// non-broadcast destination; reachability of the target doesn't matter.
	c.AddAddress(mustAddr(t, "5.5"))
	pkt := mkTargetedPacket(t, "9.9", "1.1")
	if err := c.Send(pkt); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := c.QueueLen(); n != 1 {
		t.Fatalf("QueueLen() = %d, want 1 (mirror connection should fan out)", n)
	}
}

func TestSendToAll_ComponentBroadcastRestrictsToSystem(t *testing.T) {
	c := newTestConnection(t, acceptAllFilter{priority: 1}, false)
	c.AddAddress(mustAddr(t, "1.1"))
	c.AddAddress(mustAddr(t, "2.1"))
	// dest is "1.0": component 0 (broadcast within system), system 1.
	pkt := packet.New([]byte{1}, 2, 0, 76, "COMMAND_LONG", mustAddr(t, "9.9"), mustAddr(t, "1.0"), true)
	if err := c.Send(pkt); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := c.QueueLen(); n != 1 {
		t.Fatalf("QueueLen() = %d, want 1 (only system 1 candidates should match)", n)
	}
}

func TestSend_NilPacketIsInvalidArgument(t *testing.T) {
	c := newTestConnection(t, acceptAllFilter{}, false)
	if err := c.Send(nil); err == nil {
		t.Fatal("expected an error for a nil packet")
	}
}

func TestSend_DropsPacketThatArrivedOnThisSameConnection(t *testing.T) {
	c := newTestConnection(t, acceptAllFilter{priority: 1}, false)
	c.AddAddress(mustAddr(t, "1.1"))
	c.AddAddress(mustAddr(t, "1.2"))
	pool := NewPool()
	handle, err := pool.Add(c)
	if err != nil {
		t.Fatalf("pool.Add: %v", err)
	}
	pkt := mkBroadcastPacket(t, "9.9")
	pkt.SetConnection(handle)
	if err := c.Send(pkt); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := c.QueueLen(); n != 0 {
		t.Fatalf("QueueLen() = %d, want 0 (must not echo back out the connection it arrived on)", n)
	}
}

func TestSend_MirrorStillForwardsPacketThatArrivedOnThisSameConnection(t *testing.T) {
	c := newTestConnection(t, acceptAllFilter{priority: 1}, true)
	c.AddAddress(mustAddr(t, "1.1"))
	pool := NewPool()
	handle, err := pool.Add(c)
	if err != nil {
		t.Fatalf("pool.Add: %v", err)
	}
	pkt := mkBroadcastPacket(t, "9.9")
	pkt.SetConnection(handle)
	if err := c.Send(pkt); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := c.QueueLen(); n != 1 {
		t.Fatalf("QueueLen() = %d, want 1 (mirror connections forward regardless of origin)", n)
	}
}
