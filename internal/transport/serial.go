package transport

import (
	"time"

	"go.bug.st/serial"
)

// SerialPort is the minimal contract SerialInterface needs: poll-driven
// reads bounded by a timeout, and plain writes. The real implementation
// wraps go.bug.st/serial, already pulled in transitively by the teacher's
// gomavlib dependency and promoted to direct here since SerialInterface
// depends on it by name.
type SerialPort interface {
	Read(timeout time.Duration) ([]byte, error)
	Write(data []byte) error
	Close() error
	String() string
}

type serialPort struct {
	port serial.Port
	name string
}

// OpenSerial opens device at the given baud rate, 8 data bits, 1 stop bit,
// no parity (per spec §6's fixed 8N1 framing). When flowControl is set, the
// RTS line is asserted once after opening; CTS is not watched and no
// hardware flow control is configured on the port.
func OpenSerial(device string, baud int, flowControl bool) (SerialPort, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, &IoError{Err: err}
	}
	if flowControl {
		if err := p.SetRTS(true); err != nil {
			p.Close()
			return nil, &IoError{Err: err}
		}
	}
	return &serialPort{port: p, name: device}, nil
}

func (s *serialPort) Read(timeout time.Duration) ([]byte, error) {
	if err := s.port.SetReadTimeout(timeout); err != nil {
		return nil, &IoError{Err: err}
	}
	buf := make([]byte, 256)
	n, err := s.port.Read(buf)
	if err != nil {
		return nil, &IoError{Err: err}
	}
	return buf[:n], nil
}

func (s *serialPort) Write(data []byte) error {
	n, err := s.port.Write(data)
	if err != nil {
		return &IoError{Err: err}
	}
	if n != len(data) {
		return &PartialSendError{Wrote: n, Total: len(data)}
	}
	return nil
}

func (s *serialPort) Close() error   { return s.port.Close() }
func (s *serialPort) String() string { return "serial://" + s.name }
