// Package addresspool implements the time-decayed set of addresses a
// Connection has observed traffic from, mirroring mavtables'
// AddressPool<TC>. Entries older than the configured timeout are treated
// as absent and pruned lazily on the next touch.
package addresspool

import (
	"sync"
	"time"

	"mavrouter/internal/logger"
	"mavrouter/internal/mavaddress"
)

// DefaultTimeout is the 120 second default from the original AddressPool.
const DefaultTimeout = 120 * time.Second

// Clock abstracts time.Now so tests can simulate the TTL boundary without
// sleeping real seconds (SPEC_FULL.md §4.1.A).
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Pool is a mutex-protected map of address to last-seen time.
type Pool struct {
	mu      sync.Mutex
	seen    map[mavaddress.Address]time.Time
	timeout time.Duration
	clock   Clock
}

// New returns a pool with the default 120 second timeout and a real clock.
func New() *Pool {
	return NewWithClock(DefaultTimeout, realClock{})
}

// NewWithClock returns a pool with an explicit timeout and clock, for tests.
func NewWithClock(timeout time.Duration, clock Clock) *Pool {
	return &Pool{seen: make(map[mavaddress.Address]time.Time), timeout: timeout, clock: clock}
}

// Add records that addr was observed now. If addr is new to the pool, it is
// logged at verbosity >= 1, matching the spec's override of the original's
// "== 1" check to "level >= 1" (see SPEC_FULL.md / Open Questions).
func (p *Pool) Add(addr mavaddress.Address) {
	now := p.clock.Now()
	p.mu.Lock()
	_, existed := p.seen[addr]
	p.seen[addr] = now
	p.mu.Unlock()
	if !existed && logger.AtLeast(1) {
		logger.Infof("new component %s", addr)
	}
}

// Contains reports whether addr has been seen within the timeout. An
// expired entry is pruned as a side effect.
func (p *Pool) Contains(addr mavaddress.Address) bool {
	now := p.clock.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.seen[addr]
	if !ok {
		return false
	}
	if now.Sub(last) > p.timeout {
		delete(p.seen, addr)
		return false
	}
	return true
}

// Addresses returns every currently-live address, pruning expired entries
// as it scans.
func (p *Pool) Addresses() []mavaddress.Address {
	now := p.clock.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]mavaddress.Address, 0, len(p.seen))
	for addr, last := range p.seen {
		if now.Sub(last) > p.timeout {
			delete(p.seen, addr)
			continue
		}
		out = append(out, addr)
	}
	return out
}

// Len reports the number of (possibly stale) entries, for metrics.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}
