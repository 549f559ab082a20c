// Package connection implements Connection, ConnectionPool, and
// ConnectionFactory: the routing core every Interface feeds parsed packets
// into and drains outbound packets from.
package connection

import (
	"context"
	"errors"
	"fmt"
	"math"

	"mavrouter/internal/addresspool"
	"mavrouter/internal/filter"
	"mavrouter/internal/logger"
	"mavrouter/internal/mavaddress"
	"mavrouter/internal/metrics"
	"mavrouter/internal/packet"
	"mavrouter/internal/pqueue"
)

// ErrInvalidArgument mirrors mavtables' std::invalid_argument: a required
// collaborator (filter, pool, queue, packet) was nil.
var ErrInvalidArgument = errors.New("connection: invalid argument")

// Connection owns one transport peer's learned address set and outbound
// queue, and applies Filter to every packet routed through it.
type Connection struct {
	name   string
	filter filter.Filter
	mirror bool
	pool   *addresspool.Pool
	queue  *pqueue.Queue
	handle packet.ConnectionHandle
}

// New builds a connection. filter, pool, and queue must be non-nil, per
// Connection::Connection's null checks.
func New(name string, f filter.Filter, mirror bool, pool *addresspool.Pool, queue *pqueue.Queue) (*Connection, error) {
	if f == nil {
		return nil, fmt.Errorf("connection.New: filter must not be nil: %w", ErrInvalidArgument)
	}
	if pool == nil {
		return nil, fmt.Errorf("connection.New: pool must not be nil: %w", ErrInvalidArgument)
	}
	if queue == nil {
		return nil, fmt.Errorf("connection.New: queue must not be nil: %w", ErrInvalidArgument)
	}
	return &Connection{name: name, filter: f, mirror: mirror, pool: pool, queue: queue}, nil
}

// Name returns the connection's diagnostic name (e.g. a peer IP, or a
// serial device path).
func (c *Connection) Name() string { return c.name }

// SetHandle records the handle ConnectionPool assigned this connection, so
// packets routed through it can carry a back-reference (see
// SPEC_FULL.md §3.A).
func (c *Connection) SetHandle(h packet.ConnectionHandle) { c.handle = h }

// Handle returns this connection's pool handle.
func (c *Connection) Handle() packet.ConnectionHandle { return c.handle }

// AddAddress records that addr has been observed on this connection.
func (c *Connection) AddAddress(addr mavaddress.Address) {
	c.pool.Add(addr)
	metrics.Global.AddressPoolSize.WithLabelValues(c.name).Set(float64(c.pool.Len()))
}

// Addresses returns every address currently reachable through this
// connection.
func (c *Connection) Addresses() []mavaddress.Address {
	return c.pool.Addresses()
}

// NextPacket pops the highest-priority queued packet, blocking until one is
// available or ctx is done.
func (c *Connection) NextPacket(ctx context.Context) (*packet.Packet, bool) {
	return c.queue.Pop(ctx)
}

// TryNextPacket pops without blocking.
func (c *Connection) TryNextPacket() (*packet.Packet, bool) {
	return c.queue.TryPop()
}

// QueueLen reports the connection's outbound backlog, for metrics.
func (c *Connection) QueueLen() int { return c.queue.Len() }

// Send routes pkt through this connection, per spec §4.4: step 1 drops
// the packet unless this is a mirror connection or the packet did not
// just arrive on this same connection (a non-mirror connection never
// echoes a packet back out the connection it came in on); step 2 then
// sends a present destination that is neither 0.0 nor a component
// broadcast (component 0) through the single-address path, and everything
// else (absent dest, either kind of broadcast dest, or a mirror
// connection) through the fan-out path. A panic raised by the filter is
// logged here and then re-raised.
func (c *Connection) Send(pkt *packet.Packet) error {
	if pkt == nil {
		return fmt.Errorf("connection.Send: packet must not be nil: %w", ErrInvalidArgument)
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("%s: filter panic: %v", c.name, r)
			panic(r)
		}
	}()
	if !c.mirror {
		if origin, ok := pkt.Connection(); ok && origin == c.handle {
			return nil
		}
	}
	dest, hasDest := pkt.Dest()
	if hasDest && !dest.IsBroadcast() && dest.Component() != 0 && !c.mirror {
		c.sendToAddress(pkt, dest)
		return nil
	}
	c.sendToAll(pkt)
	return nil
}

func (c *Connection) sendToAddress(pkt *packet.Packet, dest mavaddress.Address) {
	if !c.pool.Contains(dest) {
		metrics.Global.PacketsDropped.Inc()
		return
	}
	v := c.filter.WillAccept(pkt, dest)
	if !v.Accept {
		metrics.Global.PacketsDropped.Inc()
		return
	}
	pkt.SetPriority(v.Priority)
	c.queue.Push(pkt, v.Priority)
	metrics.Global.PacketsRouted.Inc()
	metrics.Global.QueueDepth.WithLabelValues(c.name).Set(float64(c.queue.Len()))
}

// sendToAll implements the broadcast/mirror fan-out path: every address the
// pool has learned about is offered to the filter (excluding the packet's
// own source), and the packet is queued once at the *maximum* priority any
// accepting candidate was given. A component-broadcast destination
// (component == 0, system != 0) further restricts candidates to the same
// system, per spec §4.4 step 2.
func (c *Connection) sendToAll(pkt *packet.Packet) {
	dest, hasDest := pkt.Dest()
	restrictSystem := hasDest && dest.Component() == 0 && dest.System() != 0

	accepted := false
	bestPriority := math.MinInt
	for _, candidate := range c.pool.Addresses() {
		if candidate.Equal(pkt.Source()) {
			continue
		}
		if restrictSystem && candidate.System() != dest.System() {
			continue
		}
		v := c.filter.WillAccept(pkt, candidate)
		if !v.Accept {
			continue
		}
		accepted = true
		if v.Priority > bestPriority {
			bestPriority = v.Priority
		}
	}
	if !accepted {
		metrics.Global.PacketsDropped.Inc()
		return
	}
	pkt.SetPriority(bestPriority)
	c.queue.Push(pkt, bestPriority)
	metrics.Global.PacketsRouted.Inc()
	metrics.Global.QueueDepth.WithLabelValues(c.name).Set(float64(c.queue.Len()))
}
