package connection

import (
	"fmt"
	"time"

	"mavrouter/internal/addresspool"
	"mavrouter/internal/filter"
	"mavrouter/internal/pqueue"
	"mavrouter/internal/semaphore"
)

// Factory builds Connections wired to a shared Semaphore: every Connection
// it produces notifies the same semaphore whenever a packet is pushed to
// its queue, so a transport's send loop can block on "is anything, on any
// connection this factory built, ready to send" with a single WaitFor
// call instead of polling each connection's queue in turn.
type Factory struct {
	filter    filter.Filter
	mirror    bool
	semaphore *semaphore.Semaphore
}

// NewFactory builds a factory. filter must not be nil.
func NewFactory(f filter.Filter, mirror bool) (*Factory, error) {
	if f == nil {
		return nil, fmt.Errorf("connection.NewFactory: filter must not be nil: %w", ErrInvalidArgument)
	}
	return &Factory{filter: f, mirror: mirror, semaphore: semaphore.New()}, nil
}

// Get builds a fresh Connection named name, with its own AddressPool and
// PriorityQueue, sharing this factory's filter/mirror setting and
// semaphore.
func (f *Factory) Get(name string) (*Connection, error) {
	pool := addresspool.New()
	queue := pqueue.New(func() { f.semaphore.Notify() })
	return New(name, f.filter, f.mirror, pool, queue)
}

// WaitAny blocks until some connection this factory built has pushed a
// packet, or timeout elapses. It reports whether a packet became ready.
func (f *Factory) WaitAny(timeout time.Duration) bool {
	return f.semaphore.WaitFor(timeout)
}

// Semaphore exposes the shared semaphore directly; UdpInterface reads its
// Value for the SemaphoreValue metric (its balancing step goes through
// WaitAny(0)).
func (f *Factory) Semaphore() *semaphore.Semaphore { return f.semaphore }
