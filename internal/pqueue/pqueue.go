// Package pqueue implements the blocking priority queue every Connection
// uses to buffer outbound packets. Ordering follows mavtables'
// QueuedPacket::operator<: higher priority first, ties broken by insertion
// order using wrap-safe unsigned ticket arithmetic so a 64-bit ticket
// counter never misorders packets after it wraps around.
package pqueue

import (
	"container/heap"
	"context"
	"math"
	"sync"

	"mavrouter/internal/packet"
)

// queuedPacket pairs a packet with the priority/ticket tuple it was pushed
// with. Priority can differ from packet.Priority() at push time (Connection
// sets the packet's priority right before pushing, per spec §4.4), so this
// type captures it explicitly rather than re-reading the mutable field.
type queuedPacket struct {
	pkt      *packet.Packet
	priority int
	ticket   uint64
}

// less reports whether lhs must be popped before rhs: higher priority
// first, and on equal priority the older ticket. Ticket age is decided with
// "ticket - ticket" done in uint64 arithmetic and compared against half the
// range: this is what lets the ticket counter wrap around 2^64 without ever
// corrupting the order of two packets pushed less than 2^63 tickets apart.
func less(lhs, rhs queuedPacket) bool {
	if lhs.priority != rhs.priority {
		return lhs.priority > rhs.priority
	}
	return lhs.ticket-rhs.ticket > math.MaxUint64/2
}

// innerHeap adapts queuedPacket to container/heap; heap.Pop yields the
// *smallest* element by Less, and Less is less itself, so the heap root is
// the highest-priority, oldest-ticket packet.
type innerHeap []queuedPacket

func (h innerHeap) Len() int           { return len(h) }
func (h innerHeap) Less(i, j int) bool { return less(h[i], h[j]) }
func (h innerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *innerHeap) Push(x interface{}) { *h = append(*h, x.(queuedPacket)) }
func (h *innerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is a blocking, priority-ordered packet queue. The zero value is not
// usable; construct with New.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	heap    innerHeap
	ticket  uint64
	running bool
	onPush  func()
}

// New returns a running queue. onPush, if non-nil, is invoked synchronously
// after every successful Push — ConnectionFactory wires this to its shared
// Semaphore's Notify so a transport's send loop wakes without polling.
func New(onPush func()) *Queue {
	q := &Queue{running: true, onPush: onPush}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues pkt at the given priority.
func (q *Queue) Push(pkt *packet.Packet, priority int) {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	heap.Push(&q.heap, queuedPacket{pkt: pkt, priority: priority, ticket: q.ticket})
	q.ticket++
	q.mu.Unlock()
	q.cond.Broadcast()
	if q.onPush != nil {
		q.onPush()
	}
}

// Pop blocks until a packet is available, the queue is shut down, or ctx is
// done, whichever happens first. It returns (nil, false) on shutdown/ctx
// cancellation.
func (q *Queue) Pop(ctx context.Context) (*packet.Packet, bool) {
	done := make(chan struct{})
	defer close(done)
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				q.cond.Broadcast()
			case <-done:
			}
		}()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.heap) == 0 && q.running {
		if ctx != nil && ctx.Err() != nil {
			return nil, false
		}
		q.cond.Wait()
	}
	if len(q.heap) == 0 {
		return nil, false
	}
	item := heap.Pop(&q.heap).(queuedPacket)
	return item.pkt, true
}

// TryPop pops immediately, returning (nil, false) if the queue is empty
// rather than blocking. UdpInterface's fan-out send loop uses this to drain
// at most one already-ready packet per connection per tick.
func (q *Queue) TryPop() (*packet.Packet, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return nil, false
	}
	item := heap.Pop(&q.heap).(queuedPacket)
	return item.pkt, true
}

// Len reports the number of packets currently buffered.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// Shutdown marks the queue as no longer running and wakes every blocked
// Pop, matching PacketQueue::shutdown.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	q.running = false
	q.mu.Unlock()
	q.cond.Broadcast()
}
