// Package lidar implements the serial LiDAR pipeline: per-model byte-level
// protocol state machines (LD19, YDLidar G2), the scan assembler that
// detects full rotations and publishes calibrated scans, and the driver
// that owns the serial read loop.
package lidar

import "fmt"

// PacketType classifies a completed protocol packet.
type PacketType int

const (
	// PacketNone means the byte did not complete a packet.
	PacketNone PacketType = iota
	// PacketMeasurement is a decoded point-cloud packet.
	PacketMeasurement
	// PacketHealth is a device health report.
	PacketHealth
	// PacketManufacturer is a device identification report.
	PacketManufacturer
	// PacketError means a packet failed validation and was dropped; the
	// state machine has resynchronized.
	PacketError
)

func (t PacketType) String() string {
	switch t {
	case PacketNone:
		return "none"
	case PacketMeasurement:
		return "measurement"
	case PacketHealth:
		return "health"
	case PacketManufacturer:
		return "manufacturer"
	case PacketError:
		return "error"
	default:
		return fmt.Sprintf("PacketType(%d)", int(t))
	}
}

// PointData is a single decoded measurement: sensor-frame polar coordinates
// with an interpolated timestamp.
type PointData struct {
	Angle     float64 // degrees [0, 360)
	Distance  uint16  // millimetres
	Intensity uint8
	Stamp     uint64 // nanoseconds
}

// RawSample is one undecorated sample within a measurement packet.
type RawSample struct {
	Distance  uint16 // millimetres
	Intensity uint8
	// AngleCorrection is a distance-dependent per-sample angle adjustment
	// in degrees (YDLidar G2); zero for models without one.
	AngleCorrection float64
}

// MeasurementPacket is a decoded point-cloud packet, normalized across
// sensor models. Per-point angles and timestamps are interpolated later by
// the driver, which knows the arrival times of consecutive packets.
type MeasurementPacket struct {
	// Speed is the rotation speed in degrees per second.
	Speed float64
	// StartAngle and EndAngle bound the sweep covered by this packet, in
	// degrees.
	StartAngle float64
	EndAngle   float64
	// DeviceStamp is the raw device timestamp field when the model provides
	// one (LD19: milliseconds, wrapping at 30000).
	DeviceStamp uint16
	// DeviceStampNs is the device wall clock in nanoseconds, carried by the
	// most recent stamp package (G2). Zero when the device provided none;
	// non-zero values override the host clock when stamping points.
	DeviceStampNs uint64
	// StartOfScan is set on packets the device marks as the beginning of a
	// new rotation (G2 zero packets).
	StartOfScan bool
	Points      []RawSample
}

// ProtocolStats counts protocol-level events. Checksum and framing failures
// are absorbed here rather than surfaced as errors; a rising CRCErrors count
// under a clean serial line indicates wiring or baud-rate trouble.
type ProtocolStats struct {
	Packets   uint64 // successfully validated packets
	CRCErrors uint64 // packets dropped for checksum mismatch
	Resyncs   uint64 // header searches restarted mid-packet
}

// Protocol is a byte-level frame decoder for one LiDAR model. Feed it the
// serial stream one byte at a time; when Analyze reports
// PacketMeasurement, the decoded packet is available from Measurement until
// the next completed packet.
type Protocol interface {
	Analyze(b byte) PacketType
	Measurement() *MeasurementPacket
	Stats() ProtocolStats
}

// ScanSink receives completed, filtered scans from the assembler. Rows are
// (angle, distance, intensity) triples; the sink is responsible for locking
// and sentinel termination.
type ScanSink interface {
	PublishScan(rows [][3]float32)
}
