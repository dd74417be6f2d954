package lidar

import (
	"encoding/binary"
	"math"
	"testing"
)

// g2Sample encodes a distance/intensity pair into the 3-byte sample format.
func g2Sample(distance uint16, intensity uint16) [3]byte {
	var s [3]byte
	s[0] = byte(intensity & 0xFF)
	s[1] = byte((intensity>>8)&0x03) | byte(distance&0x3F)<<2
	s[2] = byte(distance >> 6)
	return s
}

// buildG2Packet assembles a valid packet; angles are degrees.
func buildG2Packet(ct byte, startAngle, endAngle float64, samples [][3]byte) []byte {
	buf := make([]byte, G2_HEADER_SIZE+len(samples)*G2_BYTES_PER_SAMPLE)
	buf[0] = G2_SYNC_BYTE1
	buf[1] = G2_SYNC_BYTE2
	buf[2] = ct
	buf[3] = byte(len(samples))
	fsa := uint16(startAngle*g2AngleScale)<<g2AngleShift | g2AngleCheckBit
	lsa := uint16(endAngle*g2AngleScale)<<g2AngleShift | g2AngleCheckBit
	binary.LittleEndian.PutUint16(buf[4:6], fsa)
	binary.LittleEndian.PutUint16(buf[6:8], lsa)
	for i, s := range samples {
		copy(buf[G2_HEADER_SIZE+i*G2_BYTES_PER_SAMPLE:], s[:])
	}

	cs := uint16(G2_HEADER)
	cs ^= uint16(buf[2]) | uint16(buf[3])<<8
	cs ^= fsa
	cs ^= lsa
	for _, s := range samples {
		cs ^= uint16(s[0])
		cs ^= binary.LittleEndian.Uint16(s[1:3])
	}
	binary.LittleEndian.PutUint16(buf[8:10], cs)
	return buf
}

func TestG2DecodesMeasurement(t *testing.T) {
	samples := [][3]byte{
		g2Sample(1000, 400),
		g2Sample(2000, 800),
		g2Sample(0, 0),
	}
	// CT bit 0 set marks the zero packet; upper bits carry 7.0 Hz.
	packet := buildG2Packet(70<<1|0x01, 10, 20, samples)

	p := NewG2Protocol()
	if got := feed(p, packet); got != PacketMeasurement {
		t.Fatalf("feed = %v, want PacketMeasurement", got)
	}

	m := p.Measurement()
	if !m.StartOfScan {
		t.Error("StartOfScan not set for zero packet")
	}
	// 7 Hz is 2520 degrees per second.
	if math.Abs(m.Speed-2520) > 1e-9 {
		t.Errorf("Speed = %f, want 2520", m.Speed)
	}
	if math.Abs(m.StartAngle-10) > 0.05 || math.Abs(m.EndAngle-20) > 0.05 {
		t.Errorf("angles = %f..%f, want 10..20", m.StartAngle, m.EndAngle)
	}
	if len(m.Points) != 3 {
		t.Fatalf("point count = %d, want 3", len(m.Points))
	}
	if m.Points[0].Distance != 1000 {
		t.Errorf("point 0 distance = %d, want 1000", m.Points[0].Distance)
	}
	if m.Points[1].Distance != 2000 {
		t.Errorf("point 1 distance = %d, want 2000", m.Points[1].Distance)
	}
	if m.Points[0].Intensity != 100 {
		t.Errorf("point 0 intensity = %d, want 100", m.Points[0].Intensity)
	}
	if m.Points[2].AngleCorrection != 0 {
		t.Errorf("zero distance must not be angle-corrected, got %f", m.Points[2].AngleCorrection)
	}
}

func TestG2AngleCorrectionSign(t *testing.T) {
	// Closer than the crossover distance: positive correction; farther:
	// negative.
	if got := g2AngleCorrection(100); got <= 0 {
		t.Errorf("correction at 100mm = %f, want > 0", got)
	}
	if got := g2AngleCorrection(1000); got >= 0 {
		t.Errorf("correction at 1000mm = %f, want < 0", got)
	}
	if got := g2AngleCorrection(155.3); math.Abs(got) > 1e-6 {
		t.Errorf("correction at crossover = %f, want 0", got)
	}
}

func TestG2ChecksumRejectsCorruption(t *testing.T) {
	packet := buildG2Packet(0x02, 10, 20, [][3]byte{g2Sample(1000, 400), g2Sample(1100, 400)})

	for byteIdx := 2; byteIdx < len(packet); byteIdx++ {
		corrupted := append([]byte(nil), packet...)
		corrupted[byteIdx] ^= 0x10

		p := NewG2Protocol()
		for _, b := range corrupted {
			if p.Analyze(b) == PacketMeasurement {
				t.Fatalf("corrupted byte %d still decoded", byteIdx)
			}
		}
	}
}

func TestG2ResynchronizesOnBadSync(t *testing.T) {
	p := NewG2Protocol()

	// 0xAA followed by garbage, then a clean packet.
	p.Analyze(G2_SYNC_BYTE1)
	p.Analyze(0x00)
	if p.Stats().Resyncs != 1 {
		t.Errorf("Resyncs = %d, want 1", p.Stats().Resyncs)
	}

	packet := buildG2Packet(0x02, 10, 20, [][3]byte{g2Sample(500, 200)})
	if got := feed(p, packet); got != PacketMeasurement {
		t.Fatalf("decoder did not recover: %v", got)
	}
}

// buildG2StampPackage encodes a device stamp package for the given device
// time in milliseconds.
func buildG2StampPackage(stampMs uint32) []byte {
	buf := make([]byte, G2_STAMP_SIZE)
	buf[0] = G2_SYNC_BYTE1
	buf[1] = G2_STAMP_BYTE2
	binary.LittleEndian.PutUint32(buf[3:7], stampMs)
	var cs byte
	for i, b := range buf {
		if i == 2 {
			continue
		}
		cs ^= b
	}
	buf[2] = cs
	return buf
}

func TestG2StampPackageOverridesHostClock(t *testing.T) {
	p := NewG2Protocol()

	if got := feed(p, buildG2StampPackage(0x01020304)); got != PacketNone {
		t.Fatalf("stamp package result = %v, want PacketNone", got)
	}
	if stats := p.Stats(); stats.Resyncs != 0 || stats.CRCErrors != 0 {
		t.Fatalf("stamp package burned as garbage: %+v", stats)
	}

	packet := buildG2Packet(0x02, 10, 20, [][3]byte{g2Sample(500, 200)})
	if got := feed(p, packet); got != PacketMeasurement {
		t.Fatalf("measurement after stamp package: %v", got)
	}

	want := uint64(0x01020304) * 1_000_000 // ms to ns
	if got := p.Measurement().DeviceStampNs; got != want {
		t.Errorf("DeviceStampNs = %d, want %d", got, want)
	}

	// The device time sticks until the next stamp package.
	if got := feed(p, packet); got != PacketMeasurement {
		t.Fatalf("second measurement: %v", got)
	}
	if got := p.Measurement().DeviceStampNs; got != want {
		t.Errorf("DeviceStampNs on later packet = %d, want %d", got, want)
	}
}

func TestG2StampPackageChecksumRejected(t *testing.T) {
	stamp := buildG2StampPackage(5000)
	stamp[4] ^= 0x10 // corrupt one stamp byte

	p := NewG2Protocol()
	last := PacketNone
	for _, b := range stamp {
		if got := p.Analyze(b); got != PacketNone {
			last = got
		}
	}
	if last != PacketError {
		t.Fatalf("corrupted stamp package result = %v, want PacketError", last)
	}
	if got := p.Stats().CRCErrors; got != 1 {
		t.Errorf("CRCErrors = %d, want 1", got)
	}

	// The rejected stamp must not leak into following measurements.
	packet := buildG2Packet(0x02, 10, 20, [][3]byte{g2Sample(500, 200)})
	if got := feed(p, packet); got != PacketMeasurement {
		t.Fatalf("measurement after bad stamp: %v", got)
	}
	if got := p.Measurement().DeviceStampNs; got != 0 {
		t.Errorf("DeviceStampNs = %d after rejected stamp, want 0", got)
	}
}

func TestG2SpeedPersistsAcrossPackets(t *testing.T) {
	p := NewG2Protocol()

	zero := buildG2Packet(50<<1|0x01, 0, 10, [][3]byte{g2Sample(500, 200)})
	if got := feed(p, zero); got != PacketMeasurement {
		t.Fatalf("zero packet: %v", got)
	}

	// Non-zero packets carry no frequency; the last known speed sticks.
	normal := buildG2Packet(0x02, 10, 20, [][3]byte{g2Sample(600, 200)})
	if got := feed(p, normal); got != PacketMeasurement {
		t.Fatalf("normal packet: %v", got)
	}
	if math.Abs(p.Measurement().Speed-1800) > 1e-9 {
		t.Errorf("Speed = %f, want 1800", p.Measurement().Speed)
	}
	if p.Measurement().StartOfScan {
		t.Error("StartOfScan set on non-zero packet")
	}
}
