package iface

import (
	"context"
	"errors"
	"time"

	"mavrouter/internal/codec"
	"mavrouter/internal/connection"
	"mavrouter/internal/logger"
	"mavrouter/internal/metrics"
	"mavrouter/internal/transport"
)

// SerialInterface owns exactly one Connection, wired to one serial device.
// Every packet the port yields is routed through that single connection;
// every packet the connection pops is written straight to the port.
type SerialInterface struct {
	port  transport.SerialPort
	pool  *connection.Pool
	conn  *connection.Connection
	codec codec.Codec
}

// NewSerialInterface registers conn with pool and pairs it with port.
func NewSerialInterface(port transport.SerialPort, pool *connection.Pool, conn *connection.Connection) (*SerialInterface, error) {
	if port == nil {
		return nil, errors.New("iface.NewSerialInterface: port must not be nil")
	}
	if pool == nil {
		return nil, errors.New("iface.NewSerialInterface: pool must not be nil")
	}
	if conn == nil {
		return nil, errors.New("iface.NewSerialInterface: conn must not be nil")
	}
	if _, err := pool.Add(conn); err != nil {
		return nil, err
	}
	return &SerialInterface{port: port, pool: pool, conn: conn}, nil
}

// SendPacket pops at most one packet from the connection's queue and
// writes it to the serial port.
func (s *SerialInterface) SendPacket(ctx context.Context) error {
	pkt, ok := s.conn.NextPacket(ctx)
	if !ok || pkt == nil {
		return nil
	}
	return s.port.Write(pkt.Data())
}

// ReceivePacket reads whatever bytes the port has ready (bounded by ctx),
// feeds them byte-by-byte into the codec, and forwards any completed
// packet through the connection pool.
func (s *SerialInterface) ReceivePacket(ctx context.Context) error {
	timeout := 100 * time.Millisecond
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d < timeout {
			timeout = d
		}
	}
	data, err := s.port.Read(timeout)
	if err != nil {
		logger.Warnf("%s: read error: %v", s, err)
		metrics.Global.ParseErrors.Inc()
		return err
	}
	for _, b := range data {
		pkt, ok := s.codec.ParseByte(b)
		if !ok {
			continue
		}
		metrics.Global.PacketsParsed.Inc()
		pkt.SetConnection(s.conn.Handle())
		s.conn.AddAddress(pkt.Source())
		if err := s.pool.Send(pkt); err != nil {
			logger.Warnf("%s: forwarding error: %v", s, err)
		}
	}
	return nil
}

func (s *SerialInterface) String() string { return s.port.String() }
