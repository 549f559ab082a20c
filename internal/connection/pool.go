package connection

import (
	"fmt"
	"sync"

	"mavrouter/internal/logger"
	"mavrouter/internal/packet"
)

// Pool fans a packet out to every registered connection, and resolves
// packet.ConnectionHandle values back to a live *Connection (or reports
// that the connection has since been removed). It is read-write locked per
// spec §4.5, even though the upstream ConnectionPool.cpp snippet this is
// grounded on does not visibly take its declared shared_mutex.
type Pool struct {
	mu     sync.RWMutex
	conns  map[packet.ConnectionHandle]*Connection
	nextID uint64
}

// NewPool returns an empty connection pool.
func NewPool() *Pool {
	return &Pool{conns: make(map[packet.ConnectionHandle]*Connection)}
}

// Add registers c with the pool and returns the handle it was assigned.
func (p *Pool) Add(c *Connection) (packet.ConnectionHandle, error) {
	if c == nil {
		return 0, fmt.Errorf("connection.Pool.Add: connection must not be nil: %w", ErrInvalidArgument)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	h := packet.ConnectionHandle(p.nextID)
	c.SetHandle(h)
	p.conns[h] = c
	return h, nil
}

// Remove unregisters the connection with the given handle.
func (p *Pool) Remove(h packet.ConnectionHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.conns, h)
}

// Get resolves a handle to its live connection.
func (p *Pool) Get(h packet.ConnectionHandle) (*Connection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.conns[h]
	return c, ok
}

// Send offers pkt to every connection currently registered with the pool.
// At verbosity >= 2 it logs the packet and the name of the connection it
// arrived on.
func (p *Pool) Send(pkt *packet.Packet) error {
	if pkt != nil && logger.AtLeast(2) {
		origin := "unknown"
		if h, ok := pkt.Connection(); ok {
			if c, ok := p.Get(h); ok {
				origin = c.Name()
			}
		}
		logger.Infof("received %s source %s", pkt, origin)
	}
	p.mu.RLock()
	conns := make([]*Connection, 0, len(p.conns))
	for _, c := range p.conns {
		conns = append(conns, c)
	}
	p.mu.RUnlock()

	var firstErr error
	for _, c := range conns {
		if err := c.Send(pkt); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Len reports the number of registered connections, for metrics.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}
