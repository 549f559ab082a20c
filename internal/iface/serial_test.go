package iface

import (
	"context"
	"sync"
	"testing"
	"time"

	"mavrouter/internal/addresspool"
	"mavrouter/internal/connection"
	"mavrouter/internal/filter"
	"mavrouter/internal/mavaddress"
	"mavrouter/internal/packet"
	"mavrouter/internal/pqueue"
)

type acceptAllFilter struct{}

func (acceptAllFilter) WillAccept(pkt *packet.Packet, recipient mavaddress.Address) filter.Verdict {
	return filter.Verdict{Accept: true, Priority: 0}
}

type fakePort struct {
	mu      sync.Mutex
	toRead  [][]byte
	written [][]byte
	name    string
}

func (f *fakePort) Read(timeout time.Duration) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.toRead) == 0 {
		return nil, nil
	}
	b := f.toRead[0]
	f.toRead = f.toRead[1:]
	return b, nil
}

func (f *fakePort) Write(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	f.written = append(f.written, cp)
	return nil
}

func (f *fakePort) Close() error   { return nil }
func (f *fakePort) String() string { return "fake://" + f.name }

func (f *fakePort) queue(b []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toRead = append(f.toRead, b)
}

func v1Frame(sysID, compID byte, msgID byte, payload []byte) []byte {
	frame := []byte{0xFE, byte(len(payload)), 0, sysID, compID, msgID}
	frame = append(frame, payload...)
	frame = append(frame, 0x00, 0x00)
	return frame
}

func TestSerialInterface_ReceiveRoutesPacket(t *testing.T) {
	pool := connection.NewPool()
	conn, err := connection.New("serial0", acceptAllFilter{}, true, addresspool.New(), pqueue.New(nil))
	if err != nil {
		t.Fatalf("connection.New: %v", err)
	}
	port := &fakePort{name: "ttyUSB0"}
	si, err := NewSerialInterface(port, pool, conn)
	if err != nil {
		t.Fatalf("NewSerialInterface: %v", err)
	}

	port.queue(v1Frame(9, 1, 0, nil))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := si.ReceivePacket(ctx); err != nil {
		t.Fatalf("ReceivePacket: %v", err)
	}

	addrs := conn.Addresses()
	if len(addrs) != 1 || addrs[0].System() != 9 {
		t.Fatalf("Addresses() = %v, want [9.1]", addrs)
	}
}

func TestSerialInterface_SendWritesToPort(t *testing.T) {
	pool := connection.NewPool()
	conn, err := connection.New("serial0", acceptAllFilter{}, false, addresspool.New(), pqueue.New(nil))
	if err != nil {
		t.Fatalf("connection.New: %v", err)
	}
	port := &fakePort{name: "ttyUSB0"}
	si, err := NewSerialInterface(port, pool, conn)
	if err != nil {
		t.Fatalf("NewSerialInterface: %v", err)
	}
	// A candidate distinct from the packet's own source must be known to
	// the connection's address pool for the broadcast fan-out path to
	// queue anything.
	otherAddr, _ := mavaddress.Parse("5.5")
	conn.AddAddress(otherAddr)

	src, _ := mavaddress.Parse("9.1")
	pkt := packet.New([]byte{0xFE, 0x00, 0, 9, 1, 0, 0, 0}, 1, 0, 0, "HEARTBEAT", src, mavaddress.Address{}, false)
	if err := conn.Send(pkt); err != nil {
		t.Fatalf("conn.Send: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := si.SendPacket(ctx); err != nil {
		t.Fatalf("SendPacket: %v", err)
	}
	if len(port.written) != 1 {
		t.Fatalf("port.written = %v, want 1 entry", port.written)
	}
}
