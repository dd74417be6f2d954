package lidar

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/banshee-data/navcore/internal/models"
)

// YDLidar G2 scan packet constants. Unlike the LD19, packets carry a
// variable sample count (LSN) and the checksum word sits in the fixed
// header, ahead of the samples.
const (
	G2_SYNC_BYTE1  = 0xAA // first header byte
	G2_SYNC_BYTE2  = 0x55 // second header byte of a measurement packet
	G2_STAMP_BYTE2 = 0x66 // second header byte of a device stamp package
	G2_HEADER      = 0x55AA

	G2_HEADER_SIZE      = 10 // PH(2) CT(1) LSN(1) FSA(2) LSA(2) CS(2)
	G2_STAMP_SIZE       = 8  // PH(2) CS(1) stamp u32 ms reserved(1)
	G2_BYTES_PER_SAMPLE = 3
	G2_MAX_SAMPLES      = 160

	// CT bit 0 marks the zero packet starting a new rotation; the remaining
	// bits carry the scan frequency in 0.1 Hz steps.
	g2StartOfScanBit = 0x01

	// Angle words carry a validity flag in the low bit; the remaining 15
	// bits are a Q6 fixed-point angle in degrees.
	g2AngleCheckBit = 0x01
	g2AngleShift    = 1
	g2AngleScale    = 64.0
)

// g2State enumerates the decoder states.
type g2State int

const (
	g2SeekSync1 g2State = iota // scanning for 0xAA
	g2SeekSync2                // expecting 0x55 or 0x66
	g2ReadHeader               // accumulating the remaining header bytes
	g2ReadSamples
	g2ReadStamp // accumulating the remaining stamp package bytes
)

// G2Protocol decodes the YDLidar G2 byte stream. The checksum is an XOR
// over the packet's 16-bit words (the sample triplets contribute their
// interference/intensity byte and distance word separately), validated
// before any field is trusted.
type G2Protocol struct {
	state   g2State
	header  [G2_HEADER_SIZE]byte
	pos     int
	samples []byte
	lsn     int

	speed         float64 // degrees per second, from zero packets
	deviceStampNs uint64  // last valid stamp package, device wall clock
	measurement   MeasurementPacket
	stats         ProtocolStats
}

// NewG2Protocol returns a decoder in the sync-seeking state.
func NewG2Protocol() *G2Protocol {
	return &G2Protocol{
		samples:     make([]byte, 0, G2_MAX_SAMPLES*G2_BYTES_PER_SAMPLE),
		measurement: MeasurementPacket{Points: make([]RawSample, 0, G2_MAX_SAMPLES)},
	}
}

// Analyze consumes one byte from the serial stream.
func (p *G2Protocol) Analyze(b byte) PacketType {
	switch p.state {
	case g2SeekSync1:
		if b == G2_SYNC_BYTE1 {
			p.header[0] = b
			p.pos = 1
			p.state = g2SeekSync2
		}
		return PacketNone

	case g2SeekSync2:
		switch b {
		case G2_SYNC_BYTE2:
			p.header[1] = b
			p.pos = 2
			p.state = g2ReadHeader
		case G2_STAMP_BYTE2:
			p.header[1] = b
			p.pos = 2
			p.state = g2ReadStamp
		default:
			p.state = g2SeekSync1
			p.stats.Resyncs++
			// 0xAA may start the real header.
			if b == G2_SYNC_BYTE1 {
				p.header[0] = b
				p.pos = 1
				p.state = g2SeekSync2
			}
		}
		return PacketNone

	case g2ReadHeader:
		p.header[p.pos] = b
		p.pos++
		if p.pos < G2_HEADER_SIZE {
			return PacketNone
		}
		p.lsn = int(p.header[3])
		if p.lsn == 0 || p.lsn > G2_MAX_SAMPLES {
			p.state = g2SeekSync1
			p.stats.Resyncs++
			return PacketNone
		}
		p.samples = p.samples[:0]
		p.state = g2ReadSamples
		return PacketNone

	case g2ReadSamples:
		p.samples = append(p.samples, b)
		if len(p.samples) < p.lsn*G2_BYTES_PER_SAMPLE {
			return PacketNone
		}
		p.state = g2SeekSync1
		return p.finishPacket()

	case g2ReadStamp:
		p.header[p.pos] = b
		p.pos++
		if p.pos < G2_STAMP_SIZE {
			return PacketNone
		}
		p.state = g2SeekSync1
		return p.finishStamp()
	}
	return PacketNone
}

// finishStamp validates and applies a device stamp package. The check code
// is the XOR of every other byte in the package; the stamp itself is the
// device wall clock in milliseconds and overrides the host clock on all
// following measurement packets.
func (p *G2Protocol) finishStamp() PacketType {
	var cs byte
	for i := 0; i < G2_STAMP_SIZE; i++ {
		if i == 2 {
			continue
		}
		cs ^= p.header[i]
	}
	if cs != p.header[2] {
		p.stats.CRCErrors++
		debugf("g2: stamp checksum mismatch (total %d)", p.stats.CRCErrors)
		return PacketError
	}
	p.stats.Packets++
	p.deviceStampNs = uint64(binary.LittleEndian.Uint32(p.header[3:7])) * uint64(time.Millisecond)
	return PacketNone
}

// checksum computes the packet's XOR check code: header words (checksum
// field excluded) plus, per sample, the leading byte and the 16-bit
// distance word.
func (p *G2Protocol) checksum() uint16 {
	cs := uint16(G2_HEADER)
	cs ^= uint16(p.header[2]) | uint16(p.header[3])<<8 // CT | LSN
	cs ^= binary.LittleEndian.Uint16(p.header[4:6])    // FSA
	cs ^= binary.LittleEndian.Uint16(p.header[6:8])    // LSA
	for i := 0; i < p.lsn; i++ {
		s := p.samples[i*G2_BYTES_PER_SAMPLE:]
		cs ^= uint16(s[0])
		cs ^= binary.LittleEndian.Uint16(s[1:3])
	}
	return cs
}

// finishPacket validates the checksum and angle flags, then decodes.
func (p *G2Protocol) finishPacket() PacketType {
	want := binary.LittleEndian.Uint16(p.header[8:10])
	if p.checksum() != want {
		p.stats.CRCErrors++
		debugf("g2: checksum mismatch (total %d)", p.stats.CRCErrors)
		return PacketError
	}

	fsa := binary.LittleEndian.Uint16(p.header[4:6])
	lsa := binary.LittleEndian.Uint16(p.header[6:8])
	if fsa&g2AngleCheckBit == 0 || lsa&g2AngleCheckBit == 0 {
		// Angle validity flag missing: treat as corruption.
		p.stats.CRCErrors++
		return PacketError
	}
	p.stats.Packets++

	ct := p.header[2]
	m := &p.measurement
	m.StartOfScan = ct&g2StartOfScanBit != 0
	if m.StartOfScan {
		// Zero packets carry the scan frequency in 0.1 Hz units.
		if hz := float64(ct>>1) / 10.0; hz > 0 {
			p.speed = hz * 360.0
		}
	}
	m.Speed = p.speed
	m.StartAngle = float64(fsa>>g2AngleShift) / g2AngleScale
	m.EndAngle = float64(lsa>>g2AngleShift) / g2AngleScale
	m.DeviceStamp = 0
	m.DeviceStampNs = p.deviceStampNs

	m.Points = m.Points[:0]
	for i := 0; i < p.lsn; i++ {
		s := p.samples[i*G2_BYTES_PER_SAMPLE:]
		// Sample layout: intensity low byte, then two interference bits and
		// the intensity high bits, then the 14-bit distance.
		distance := uint16(s[2])<<6 | uint16(s[1])>>2
		intensity := uint16(s[0]) | uint16(s[1]&0x03)<<8
		m.Points = append(m.Points, RawSample{
			Distance: distance,
			// The raw intensity spans 10 bits; scale into a byte.
			Intensity:       uint8(intensity >> 2),
			AngleCorrection: g2AngleCorrection(float64(distance)),
		})
	}
	return PacketMeasurement
}

// g2AngleCorrection is the vendor's distance-dependent angle adjustment in
// degrees, compensating for the offset between the G2's emitter and
// receiver optics.
func g2AngleCorrection(distance float64) float64 {
	if distance <= 0 {
		return 0
	}
	return models.Rad2Deg(math.Atan(21.8 * (155.3 - distance) / (155.3 * distance)))
}

// Measurement returns the last decoded measurement packet.
func (p *G2Protocol) Measurement() *MeasurementPacket {
	return &p.measurement
}

// Stats returns the protocol event counters.
func (p *G2Protocol) Stats() ProtocolStats {
	return p.stats
}
