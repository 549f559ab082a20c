package codec

import "testing"

func parseAll(t *testing.T, c *Codec, frame []byte) int {
	t.Helper()
	count := 0
	for _, b := range frame {
		if _, ok := c.ParseByte(b); ok {
			count++
		}
	}
	return count
}

// v1Frame builds a minimal (unsigned-checksum) MAVLink v1 frame:
// magic, len, seq, sysid, compid, msgid, payload..., ck_a, ck_b.
func v1Frame(sysID, compID byte, msgID byte, payload []byte) []byte {
	frame := []byte{0xFE, byte(len(payload)), 0, sysID, compID, msgID}
	frame = append(frame, payload...)
	frame = append(frame, 0x00, 0x00) // checksum bytes, unvalidated
	return frame
}

func TestParseByte_V1Heartbeat(t *testing.T) {
	c := &Codec{}
	frame := v1Frame(9, 1, 0, nil)
	var got int
	for i, b := range frame {
		pkt, ok := c.ParseByte(b)
		if ok {
			got++
			if i != len(frame)-1 {
				t.Fatalf("frame completed early at byte %d", i)
			}
			if pkt.Source().System() != 9 || pkt.Source().Component() != 1 {
				t.Fatalf("source = %v, want 9.1", pkt.Source())
			}
			if _, hasDest := pkt.Dest(); hasDest {
				t.Fatal("HEARTBEAT should have no destination")
			}
		}
	}
	if got != 1 {
		t.Fatalf("got %d completed frames, want 1", got)
	}
}

func TestParseByte_V1CommandLongExtractsDest(t *testing.T) {
	c := &Codec{}
	payload := make([]byte, 33)
	payload[30] = 5  // target_system
	payload[31] = 10 // target_component
	frame := v1Frame(9, 1, 76, payload)
	var found bool
	for _, b := range frame {
		p, ok := c.ParseByte(b)
		if ok {
			found = true
			dest, hasDest := p.Dest()
			if !hasDest {
				t.Fatal("expected COMMAND_LONG to carry a destination")
			}
			if dest.System() != 5 || dest.Component() != 10 {
				t.Fatalf("dest = %v, want 5.10", dest)
			}
			if p.Name() != "COMMAND_LONG" {
				t.Fatalf("Name() = %q, want COMMAND_LONG", p.Name())
			}
		}
	}
	if !found {
		t.Fatal("expected a completed frame")
	}
}

func TestParseByte_V2Frame(t *testing.T) {
	c := &Codec{}
	payload := []byte{0xAA, 0xBB}
	frame := []byte{0xFD, byte(len(payload)), 0x00, 0x00, 0x00, 7, 2, 0, 0, 0}
	frame = append(frame, payload...)
	frame = append(frame, 0x00, 0x00)
	var found bool
	for _, b := range frame {
		p, ok := c.ParseByte(b)
		if ok {
			found = true
			if p.Source().System() != 7 || p.Source().Component() != 2 {
				t.Fatalf("source = %v, want 7.2", p.Source())
			}
			major, minor := p.Version()
			if major != 2 || minor != 0 {
				t.Fatalf("version = %d.%d, want 2.0", major, minor)
			}
		}
	}
	if !found {
		t.Fatal("expected a completed v2 frame")
	}
}

func TestClearResetsPartialFrame(t *testing.T) {
	c := &Codec{}
	frame := v1Frame(1, 1, 0, nil)
	// Feed everything but the final checksum byte, then clear as if the
	// UDP source IP changed mid-datagram.
	for _, b := range frame[:len(frame)-1] {
		if _, ok := c.ParseByte(b); ok {
			t.Fatal("should not have completed yet")
		}
	}
	c.Clear()
	if c.st != stateIdle {
		t.Fatalf("expected idle state after Clear, got %v", c.st)
	}
	// A fresh, complete frame must still parse correctly afterward.
	if got := parseAll(t, c, v1Frame(2, 2, 0, nil)); got != 1 {
		t.Fatalf("parseAll after Clear = %d, want 1", got)
	}
}

func TestMessageNameUnknown(t *testing.T) {
	if MessageName(0xFFFFFFFF) != "UNKNOWN" {
		t.Fatal("expected UNKNOWN for an unrecognized message id")
	}
}
