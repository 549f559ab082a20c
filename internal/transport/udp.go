package transport

import (
	"net"
	"time"

	"mavrouter/internal/ipendpoint"
)

// UDPSocket is the minimal contract UdpInterface needs from a UDP socket:
// receive with a timeout (returning the sender's endpoint), and send to a
// specific endpoint. A plain *net.UDPConn satisfies it via the adapter
// below; stdlib net is the right tool here exactly as spec §7 frames it —
// an OS socket wrapper, not domain logic.
type UDPSocket interface {
	Receive(timeout time.Duration) ([]byte, ipendpoint.Endpoint, error)
	Send(data []byte, to ipendpoint.Endpoint) error
	Close() error
	String() string
}

// udpSocket adapts *net.UDPConn to UDPSocket.
type udpSocket struct {
	conn *net.UDPConn
	addr string
}

// ListenUDP opens a UDP socket bound to addr (empty host means 0.0.0.0).
func ListenUDP(addr string, port int) (UDPSocket, error) {
	laddr := &net.UDPAddr{Port: port}
	if addr != "" {
		laddr.IP = net.ParseIP(addr)
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, &IoError{Err: err}
	}
	return &udpSocket{conn: conn, addr: conn.LocalAddr().String()}, nil
}

func (s *udpSocket) Receive(timeout time.Duration) ([]byte, ipendpoint.Endpoint, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, ipendpoint.Endpoint{}, &IoError{Err: err}
	}
	buf := make([]byte, 2048)
	n, raddr, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, ipendpoint.Endpoint{}, nil
		}
		return nil, ipendpoint.Endpoint{}, &IoError{Err: err}
	}
	ep, err := endpointFromUDPAddr(raddr)
	if err != nil {
		return nil, ipendpoint.Endpoint{}, &IoError{Err: err}
	}
	return buf[:n], ep, nil
}

func (s *udpSocket) Send(data []byte, to ipendpoint.Endpoint) error {
	raddr := &net.UDPAddr{IP: endpointIP(to), Port: to.Port()}
	n, err := s.conn.WriteToUDP(data, raddr)
	if err != nil {
		return &IoError{Err: err}
	}
	if n != len(data) {
		return &PartialSendError{Wrote: n, Total: len(data)}
	}
	return nil
}

func (s *udpSocket) Close() error { return s.conn.Close() }
func (s *udpSocket) String() string { return "udp://" + s.addr }

func endpointFromUDPAddr(a *net.UDPAddr) (ipendpoint.Endpoint, error) {
	ip4 := a.IP.To4()
	if ip4 == nil {
		return ipendpoint.Endpoint{}, nil
	}
	addr := uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3])
	return ipendpoint.New(addr, a.Port)
}

func endpointIP(e ipendpoint.Endpoint) net.IP {
	a := e.Addr()
	return net.IPv4(byte(a>>24), byte(a>>16), byte(a>>8), byte(a))
}
