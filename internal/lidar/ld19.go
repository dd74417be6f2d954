package lidar

import "encoding/binary"

// LD19 serial packet structure constants. The LD19 streams fixed-format
// packets continuously once powered; there is no command channel.
const (
	LD19_HEADER            = 0x54 // first byte of every packet
	LD19_MEASURE_INFO      = 0x2C // ver_len byte of a measurement packet (12 points)
	LD19_HEALTH_INFO       = 0xE0 // information byte of a health packet
	LD19_MANUFACT_INFO     = 0x0F // information byte of a manufacturer packet
	LD19_POINTS_PER_PACKET = 12   // measurement points per packet

	// Packet sizes in bytes, trailing CRC included.
	LD19_MEASURE_SIZE  = 11 + LD19_POINTS_PER_PACKET*3 // header..timestamp + 12x(distance u16 + intensity u8)
	LD19_HEALTH_SIZE   = 4
	LD19_MANUFACT_SIZE = 23

	// Angle fields are in units of 0.01 degrees.
	LD19_ANGLE_RESOLUTION = 0.01
)

// ld19CRCTable is the vendor CRC-8 table (polynomial 0x4D, no reflection).
var ld19CRCTable [256]uint8

func init() {
	const poly = 0x4D
	for i := 0; i < 256; i++ {
		crc := uint8(i)
		for bit := 0; bit < 8; bit++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
		ld19CRCTable[i] = crc
	}
}

// ld19CRC computes the running CRC-8 over data.
func ld19CRC(data []byte) uint8 {
	var crc uint8
	for _, b := range data {
		crc = ld19CRCTable[crc^b]
	}
	return crc
}

// ld19State enumerates the decoder states.
type ld19State int

const (
	ld19SeekHeader ld19State = iota // scanning for LD19_HEADER
	ld19ReadInfo                    // next byte selects the packet kind
	ld19ReadBody                    // accumulating the fixed-size remainder
)

// LD19Protocol decodes the LD19 byte stream. A single bit flip anywhere in
// a packet must never corrupt a spin's geometry, so the trailing CRC is
// verified before any field is trusted; on mismatch the packet is dropped
// and the decoder reseeks the next header.
type LD19Protocol struct {
	state    ld19State
	buf      [LD19_MEASURE_SIZE]byte
	pos      int
	expected int
	kind     PacketType

	measurement MeasurementPacket
	healthCode  uint8
	stats       ProtocolStats
}

// NewLD19Protocol returns a decoder in the header-seeking state.
func NewLD19Protocol() *LD19Protocol {
	return &LD19Protocol{
		measurement: MeasurementPacket{Points: make([]RawSample, 0, LD19_POINTS_PER_PACKET)},
	}
}

// Analyze consumes one byte from the serial stream.
func (p *LD19Protocol) Analyze(b byte) PacketType {
	switch p.state {
	case ld19SeekHeader:
		if b != LD19_HEADER {
			return PacketNone
		}
		p.buf[0] = b
		p.pos = 1
		p.state = ld19ReadInfo
		return PacketNone

	case ld19ReadInfo:
		p.buf[1] = b
		p.pos = 2
		switch b {
		case LD19_MEASURE_INFO:
			p.kind = PacketMeasurement
			p.expected = LD19_MEASURE_SIZE
		case LD19_HEALTH_INFO:
			p.kind = PacketHealth
			p.expected = LD19_HEALTH_SIZE
		case LD19_MANUFACT_INFO:
			p.kind = PacketManufacturer
			p.expected = LD19_MANUFACT_SIZE
		default:
			// Malformed information byte: resynchronize. The header byte may
			// itself start a real packet, so re-inspect it.
			p.state = ld19SeekHeader
			p.stats.Resyncs++
			if b == LD19_HEADER {
				p.buf[0] = b
				p.pos = 1
				p.state = ld19ReadInfo
			}
			return PacketNone
		}
		p.state = ld19ReadBody
		return PacketNone

	case ld19ReadBody:
		p.buf[p.pos] = b
		p.pos++
		if p.pos < p.expected {
			return PacketNone
		}
		p.state = ld19SeekHeader
		return p.finishPacket()
	}
	return PacketNone
}

// finishPacket validates the CRC and decodes the completed buffer.
func (p *LD19Protocol) finishPacket() PacketType {
	payload := p.buf[:p.expected-1]
	if ld19CRC(payload) != p.buf[p.expected-1] {
		p.stats.CRCErrors++
		debugf("ld19: crc mismatch on %s packet (total %d)", p.kind, p.stats.CRCErrors)
		return PacketError
	}
	p.stats.Packets++

	switch p.kind {
	case PacketMeasurement:
		p.decodeMeasurement()
		return PacketMeasurement
	case PacketHealth:
		p.healthCode = p.buf[2]
		return PacketHealth
	case PacketManufacturer:
		return PacketManufacturer
	}
	return PacketError
}

// decodeMeasurement unpacks the validated measurement buffer.
func (p *LD19Protocol) decodeMeasurement() {
	m := &p.measurement
	m.Speed = float64(binary.LittleEndian.Uint16(p.buf[2:4])) // degrees per second
	m.StartAngle = float64(binary.LittleEndian.Uint16(p.buf[4:6])) * LD19_ANGLE_RESOLUTION
	m.Points = m.Points[:0]
	offset := 6
	for i := 0; i < LD19_POINTS_PER_PACKET; i++ {
		m.Points = append(m.Points, RawSample{
			Distance:  binary.LittleEndian.Uint16(p.buf[offset : offset+2]),
			Intensity: p.buf[offset+2],
		})
		offset += 3
	}
	m.EndAngle = float64(binary.LittleEndian.Uint16(p.buf[offset:offset+2])) * LD19_ANGLE_RESOLUTION
	m.DeviceStamp = binary.LittleEndian.Uint16(p.buf[offset+2 : offset+4])
	m.DeviceStampNs = 0
	m.StartOfScan = false
}

// Measurement returns the last decoded measurement packet.
func (p *LD19Protocol) Measurement() *MeasurementPacket {
	return &p.measurement
}

// HealthCode returns the error code from the last health packet.
func (p *LD19Protocol) HealthCode() uint8 {
	return p.healthCode
}

// Stats returns the protocol event counters.
func (p *LD19Protocol) Stats() ProtocolStats {
	return p.stats
}
