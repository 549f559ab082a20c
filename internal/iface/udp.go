package iface

import (
	"context"
	"errors"
	"sync"
	"time"

	"mavrouter/internal/codec"
	"mavrouter/internal/connection"
	"mavrouter/internal/ipendpoint"
	"mavrouter/internal/logger"
	"mavrouter/internal/mavaddress"
	"mavrouter/internal/metrics"
	"mavrouter/internal/transport"
)

// UdpInterface multiplexes one UDP socket across many peer connections, one
// Connection per distinct source IpEndpoint observed, built on demand
// through a shared ConnectionFactory so every peer's outbound queue feeds
// the same semaphore.
type UdpInterface struct {
	socket  transport.UDPSocket
	pool    *connection.Pool
	factory *connection.Factory

	mu    sync.Mutex
	conns map[ipendpoint.Endpoint]*connection.Connection

	codec      codec.Codec
	lastIP     ipendpoint.Endpoint
	haveLastIP bool
}

// NewUdpInterface builds a UDP interface over socket, using factory to
// mint a Connection per newly observed peer.
func NewUdpInterface(socket transport.UDPSocket, pool *connection.Pool, factory *connection.Factory) (*UdpInterface, error) {
	if socket == nil {
		return nil, errors.New("iface.NewUdpInterface: socket must not be nil")
	}
	if pool == nil {
		return nil, errors.New("iface.NewUdpInterface: pool must not be nil")
	}
	if factory == nil {
		return nil, errors.New("iface.NewUdpInterface: factory must not be nil")
	}
	return &UdpInterface{
		socket:  socket,
		pool:    pool,
		factory: factory,
		conns:   make(map[ipendpoint.Endpoint]*connection.Connection),
	}, nil
}

// updateConnections finds or creates the connection for ip, registers it
// with the pool the first time it's seen, and records addr as reachable
// through it.
func (u *UdpInterface) updateConnections(addr mavaddress.Address, ip ipendpoint.Endpoint) (*connection.Connection, error) {
	u.mu.Lock()
	conn, ok := u.conns[ip]
	if !ok {
		var err error
		conn, err = u.factory.Get(ip.String())
		if err != nil {
			u.mu.Unlock()
			return nil, err
		}
		if _, err := u.pool.Add(conn); err != nil {
			u.mu.Unlock()
			return nil, err
		}
		u.conns[ip] = conn
	}
	u.mu.Unlock()
	conn.AddAddress(addr)
	return conn, nil
}

func (u *UdpInterface) snapshotConns() []struct {
	ip   ipendpoint.Endpoint
	conn *connection.Connection
} {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]struct {
		ip   ipendpoint.Endpoint
		conn *connection.Connection
	}, 0, len(u.conns))
	for ip, c := range u.conns {
		out = append(out, struct {
			ip   ipendpoint.Endpoint
			conn *connection.Connection
		}{ip, c})
	}
	return out
}

// SendPacket blocks (bounded by ctx) until the factory's shared semaphore
// reports a packet is ready anywhere, then drains at most one packet per
// connection. Every packet beyond the first additionally re-claims a
// semaphore slot with a non-blocking wait, since each push only notified
// once but this call only consumed one slot up front.
func (u *UdpInterface) SendPacket(ctx context.Context) error {
	timeout := 100 * time.Millisecond
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d < timeout {
			timeout = d
		}
	}
	if !u.factory.WaitAny(timeout) {
		return nil
	}
	metrics.Global.SemaphoreValue.WithLabelValues(u.String()).Set(float64(u.factory.Semaphore().Value()))
	first := true
	for _, entry := range u.snapshotConns() {
		pkt, ok := entry.conn.TryNextPacket()
		if !ok {
			continue
		}
		if err := u.socket.Send(pkt.Data(), entry.ip); err != nil {
			logger.Warnf("%s: send to %s failed: %v", u, entry.ip, err)
		}
		if !first {
			u.factory.WaitAny(0)
		}
		first = false
	}
	return nil
}

// ReceivePacket reads one datagram (bounded by ctx), resetting the codec
// whenever the sender's endpoint (address or port) differs from the
// previous datagram's sender —
// the critical partial-frame-reset rule from spec §4.7, since two
// different peers' half-frames must never be spliced together.
func (u *UdpInterface) ReceivePacket(ctx context.Context) error {
	timeout := 100 * time.Millisecond
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d < timeout {
			timeout = d
		}
	}
	data, from, err := u.socket.Receive(timeout)
	if err != nil {
		logger.Warnf("%s: receive error: %v", u, err)
		metrics.Global.ParseErrors.Inc()
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if !u.haveLastIP || !from.Equal(u.lastIP) {
		u.codec.Clear()
		u.lastIP = from
		u.haveLastIP = true
	}
	for _, b := range data {
		pkt, ok := u.codec.ParseByte(b)
		if !ok {
			continue
		}
		metrics.Global.PacketsParsed.Inc()
		conn, err := u.updateConnections(pkt.Source(), from)
		if err != nil {
			logger.Warnf("%s: %v", u, err)
			continue
		}
		pkt.SetConnection(conn.Handle())
		if err := u.pool.Send(pkt); err != nil {
			logger.Warnf("%s: forwarding error: %v", u, err)
		}
	}
	return nil
}

func (u *UdpInterface) String() string { return u.socket.String() }
