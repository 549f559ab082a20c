package iface

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"mavrouter/internal/logger"
)

// StartMode selects whether Threader begins running immediately or waits
// for an explicit Start call, matching InterfaceThreader's Threads enum
// (START, DELAY_START).
type StartMode int

const (
	Start StartMode = iota
	DelayStart
)

const defaultTick = 100 * time.Millisecond

// Threader drives one Interface's send and receive halves each on their own
// goroutine, polling at a fixed tick the way the original drives two OS
// threads: the Go scheduler multiplexes goroutines onto OS threads, so this
// satisfies the same "no global event loop" requirement at lower cost.
type Threader struct {
	iface   Interface
	tick    time.Duration
	running atomic.Bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewThreader builds a threader for iface with the given tick duration
// (0 means defaultTick), starting immediately unless mode is DelayStart.
func NewThreader(iface Interface, tick time.Duration, mode StartMode) *Threader {
	if tick <= 0 {
		tick = defaultTick
	}
	t := &Threader{iface: iface, tick: tick}
	if mode == Start {
		t.Start()
	}
	return t
}

// Start begins the TX/RX goroutines if they are not already running.
func (t *Threader) Start() {
	if !t.running.CompareAndSwap(false, true) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.wg.Add(2)
	go t.txRunner(ctx)
	go t.rxRunner(ctx)
}

// Shutdown stops both goroutines and waits for them to exit.
func (t *Threader) Shutdown() {
	if !t.running.CompareAndSwap(true, false) {
		return
	}
	t.cancel()
	t.wg.Wait()
}

func (t *Threader) txRunner(ctx context.Context) {
	defer t.wg.Done()
	for t.running.Load() {
		callCtx, cancel := context.WithTimeout(ctx, t.tick)
		err := t.iface.SendPacket(callCtx)
		cancel()
		if err != nil {
			logger.Warnf("%s: send error: %v", t.iface, err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (t *Threader) rxRunner(ctx context.Context) {
	defer t.wg.Done()
	for t.running.Load() {
		callCtx, cancel := context.WithTimeout(ctx, t.tick)
		err := t.iface.ReceivePacket(callCtx)
		cancel()
		if err != nil {
			logger.Warnf("%s: receive error: %v", t.iface, err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}
