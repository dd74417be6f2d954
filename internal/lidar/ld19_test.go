package lidar

import (
	"encoding/binary"
	"testing"
)

// buildLD19Measurement assembles a valid measurement packet with the given
// angular window and a fixed distance/intensity per point.
func buildLD19Measurement(speed float64, startAngle, endAngle float64, distance uint16, intensity uint8) []byte {
	buf := make([]byte, LD19_MEASURE_SIZE)
	buf[0] = LD19_HEADER
	buf[1] = LD19_MEASURE_INFO
	binary.LittleEndian.PutUint16(buf[2:4], uint16(speed))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(startAngle/LD19_ANGLE_RESOLUTION))
	offset := 6
	for i := 0; i < LD19_POINTS_PER_PACKET; i++ {
		binary.LittleEndian.PutUint16(buf[offset:offset+2], distance)
		buf[offset+2] = intensity
		offset += 3
	}
	binary.LittleEndian.PutUint16(buf[offset:offset+2], uint16(endAngle/LD19_ANGLE_RESOLUTION))
	binary.LittleEndian.PutUint16(buf[offset+2:offset+4], 12345)
	buf[LD19_MEASURE_SIZE-1] = ld19CRC(buf[:LD19_MEASURE_SIZE-1])
	return buf
}

func feed(p Protocol, data []byte) PacketType {
	last := PacketNone
	for _, b := range data {
		if result := p.Analyze(b); result != PacketNone {
			last = result
		}
	}
	return last
}

func TestLD19DecodesMeasurement(t *testing.T) {
	p := NewLD19Protocol()
	packet := buildLD19Measurement(3600, 10, 43, 1500, 200)

	if got := feed(p, packet); got != PacketMeasurement {
		t.Fatalf("feed = %v, want PacketMeasurement", got)
	}

	m := p.Measurement()
	if m.Speed != 3600 {
		t.Errorf("Speed = %f, want 3600", m.Speed)
	}
	if m.StartAngle != 10 || m.EndAngle != 43 {
		t.Errorf("angles = %f..%f, want 10..43", m.StartAngle, m.EndAngle)
	}
	if m.DeviceStamp != 12345 {
		t.Errorf("DeviceStamp = %d, want 12345", m.DeviceStamp)
	}
	if len(m.Points) != LD19_POINTS_PER_PACKET {
		t.Fatalf("point count = %d, want %d", len(m.Points), LD19_POINTS_PER_PACKET)
	}
	for i, s := range m.Points {
		if s.Distance != 1500 || s.Intensity != 200 {
			t.Errorf("point %d = %+v, want distance 1500 intensity 200", i, s)
		}
	}
	if stats := p.Stats(); stats.Packets != 1 || stats.CRCErrors != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

// A single bit flip anywhere in the packet must never yield a measurement.
func TestLD19CRCRejectsBitFlips(t *testing.T) {
	packet := buildLD19Measurement(3600, 0, 30, 1000, 100)

	for byteIdx := 2; byteIdx < len(packet); byteIdx++ {
		for bit := 0; bit < 8; bit++ {
			corrupted := append([]byte(nil), packet...)
			corrupted[byteIdx] ^= 1 << bit

			p := NewLD19Protocol()
			for _, b := range corrupted {
				if p.Analyze(b) == PacketMeasurement {
					t.Fatalf("bit flip at byte %d bit %d still decoded", byteIdx, bit)
				}
			}
		}
	}
}

func TestLD19ResynchronizesAfterCorruption(t *testing.T) {
	p := NewLD19Protocol()

	// A header followed by a garbage info byte must not derail the next
	// valid packet.
	p.Analyze(LD19_HEADER)
	p.Analyze(0x99)
	if p.Stats().Resyncs != 1 {
		t.Errorf("Resyncs = %d, want 1", p.Stats().Resyncs)
	}

	packet := buildLD19Measurement(3600, 0, 30, 1000, 100)
	if got := feed(p, packet); got != PacketMeasurement {
		t.Fatalf("decoder did not recover: %v", got)
	}
}

func TestLD19HeaderAsInfoByteReinspected(t *testing.T) {
	p := NewLD19Protocol()

	// 0x54 0x54 0x2C ... : the second header byte must be treated as the
	// start of the real packet.
	packet := buildLD19Measurement(3600, 0, 30, 1000, 100)
	stream := append([]byte{LD19_HEADER}, packet...)
	if got := feed(p, stream); got != PacketMeasurement {
		t.Fatalf("feed = %v, want PacketMeasurement", got)
	}
}

func TestLD19HealthPacket(t *testing.T) {
	buf := []byte{LD19_HEADER, LD19_HEALTH_INFO, 0x07, 0}
	buf[3] = ld19CRC(buf[:3])

	p := NewLD19Protocol()
	if got := feed(p, buf); got != PacketHealth {
		t.Fatalf("feed = %v, want PacketHealth", got)
	}
	if p.HealthCode() != 0x07 {
		t.Errorf("HealthCode = %#x, want 0x07", p.HealthCode())
	}
}
