// Package router wires a parsed configuration into a running set of
// interfaces and drives their lifecycle, adapted from the teacher's
// forwarder.Forwarder (stopCh-based shutdown, one goroutine per concern).
package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mavrouter/internal/config"
	"mavrouter/internal/connection"
	"mavrouter/internal/filter"
	"mavrouter/internal/iface"
	"mavrouter/internal/logger"
	"mavrouter/internal/transport"
)

// Router owns every interface, connection pool, and connection factory for
// one running mavrouter process.
type Router struct {
	cfg       *config.Config
	pool      *connection.Pool
	factories []*connection.Factory
	ifaces    []*iface.Threader
	named     []iface.Interface

	mu      sync.RWMutex
	healthy bool
}

// New builds (but does not start) every interface named in cfg.
func New(cfg *config.Config) (*Router, error) {
	r := &Router{cfg: cfg, pool: connection.NewPool()}
	f := filter.NewChainFilter(cfg)

	for _, udpCfg := range cfg.UDP {
		factory, err := connection.NewFactory(f, udpCfg.Mirror)
		if err != nil {
			return nil, fmt.Errorf("router: building udp factory: %w", err)
		}
		socket, err := transport.ListenUDP(udpCfg.Address, udpCfg.Port)
		if err != nil {
			return nil, fmt.Errorf("router: opening udp %s:%d: %w", udpCfg.Address, udpCfg.Port, err)
		}
		ui, err := iface.NewUdpInterface(socket, r.pool, factory)
		if err != nil {
			return nil, fmt.Errorf("router: building udp interface: %w", err)
		}
		r.factories = append(r.factories, factory)
		r.named = append(r.named, ui)
	}

	for _, serialCfg := range cfg.Serial {
		port, err := transport.OpenSerial(serialCfg.Device, serialCfg.Baud, serialCfg.Flow)
		if err != nil {
			return nil, fmt.Errorf("router: opening serial %s: %w", serialCfg.Device, err)
		}
		factory, err := connection.NewFactory(f, serialCfg.Mirror)
		if err != nil {
			return nil, fmt.Errorf("router: building serial factory: %w", err)
		}
		conn, err := factory.Get(serialCfg.Device)
		if err != nil {
			return nil, fmt.Errorf("router: building serial connection: %w", err)
		}
		si, err := iface.NewSerialInterface(port, r.pool, conn)
		if err != nil {
			return nil, fmt.Errorf("router: building serial interface: %w", err)
		}
		r.factories = append(r.factories, factory)
		r.named = append(r.named, si)
	}

	return r, nil
}

// Start launches every interface's threader.
func (r *Router) Start() {
	for _, n := range r.named {
		r.ifaces = append(r.ifaces, iface.NewThreader(n, 100*time.Millisecond, iface.Start))
	}
	r.mu.Lock()
	r.healthy = true
	r.mu.Unlock()
	logger.Infof("router started with %d interface(s)", len(r.named))
}

// Stop shuts down every interface's threader.
func (r *Router) Stop(ctx context.Context) {
	r.mu.Lock()
	r.healthy = false
	r.mu.Unlock()
	for _, t := range r.ifaces {
		t.Shutdown()
	}
	logger.Infof("router stopped")
}

// Healthy reports whether the router has completed startup and not yet
// been stopped.
func (r *Router) Healthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.healthy
}

// Status returns a JSON-serializable snapshot for the /status endpoint.
func (r *Router) Status() interface{} {
	type ifaceStatus struct {
		Name string `json:"name"`
	}
	out := struct {
		Interfaces  []ifaceStatus `json:"interfaces"`
		Connections int           `json:"connections"`
	}{
		Connections: r.pool.Len(),
	}
	for _, n := range r.named {
		out.Interfaces = append(out.Interfaces, ifaceStatus{Name: n.String()})
	}
	return out
}
