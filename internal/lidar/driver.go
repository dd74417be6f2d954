package lidar

import (
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/navcore/internal/serialmux"
	"github.com/banshee-data/navcore/internal/timeutil"
)

// DriverConfig carries the transport-level tuning for a sensor driver.
type DriverConfig struct {
	// ReadTimeout bounds each serial read so a silent device surfaces as
	// timeouts instead of a permanently blocked goroutine.
	ReadTimeout time.Duration
	// MaxConsecutiveTimeouts is the threshold after which the driver
	// reports scanning as stopped; the embedding process decides whether
	// to reconnect.
	MaxConsecutiveTimeouts int
	// MotorControl raises DTR on start and drops it on stop, for models
	// whose spin motor is powered through the DTR line (YDLidar G2).
	MotorControl bool
	// StartCommand and StopCommand, when non-empty, are written to the
	// port around the read loop. The LD19 streams unconditionally and
	// needs neither.
	StartCommand []byte
	StopCommand  []byte
	// PacketSpanFactor bounds a packet's angular span relative to the
	// span expected from its speed and sample count; packets exceeding it
	// are dropped as implausible.
	PacketSpanFactor float64
	// MeasureFrequency is the sensor sample rate in points per second,
	// used for the angular-span plausibility bound.
	MeasureFrequency float64
}

// DefaultLD19DriverConfig returns driver tuning for the LD19.
func DefaultLD19DriverConfig() DriverConfig {
	return DriverConfig{
		ReadTimeout:            100 * time.Millisecond,
		MaxConsecutiveTimeouts: 10,
		PacketSpanFactor:       1.5,
		MeasureFrequency:       4500,
	}
}

// DefaultG2DriverConfig returns driver tuning for the YDLidar G2,
// including the vendor scan start/stop commands and DTR motor power.
func DefaultG2DriverConfig() DriverConfig {
	return DriverConfig{
		ReadTimeout:            100 * time.Millisecond,
		MaxConsecutiveTimeouts: 10,
		MotorControl:           true,
		StartCommand:           []byte{0xA5, 0x60},
		StopCommand:            []byte{0xA5, 0x65},
		PacketSpanFactor:       1.5,
		MeasureFrequency:       5000,
	}
}

// Driver owns one serial sensor: it runs the receive goroutine, feeds
// bytes through the protocol state machine, interpolates per-point angles
// and timestamps across each packet, and forwards points to the assembler.
// All state is per instance; two drivers on two devices do not interact.
type Driver struct {
	name  string
	port  serialmux.TimeoutSerialPorter
	proto Protocol
	asm   *Assembler
	cfg   DriverConfig
	clock timeutil.Clock

	running  atomic.Bool
	scanning atomic.Bool
	wg       sync.WaitGroup

	lastPacketStamp uint64 // ns, arrival time of the previous packet
}

// NewDriver wires a protocol decoder and assembler onto an open port.
func NewDriver(name string, port serialmux.TimeoutSerialPorter, proto Protocol, asm *Assembler, cfg DriverConfig) *Driver {
	return &Driver{
		name:  name,
		port:  port,
		proto: proto,
		asm:   asm,
		cfg:   cfg,
		clock: timeutil.RealClock{},
	}
}

// Start configures the port and launches the receive goroutine.
func (d *Driver) Start() error {
	if !d.running.CompareAndSwap(false, true) {
		return fmt.Errorf("lidar driver %s: already running", d.name)
	}
	if err := d.port.SetReadTimeout(d.cfg.ReadTimeout); err != nil {
		d.running.Store(false)
		return fmt.Errorf("lidar driver %s: set read timeout: %w", d.name, err)
	}
	if d.cfg.MotorControl {
		if dtr, ok := d.port.(serialmux.DTRSerialPorter); ok {
			if err := dtr.SetDTR(true); err != nil {
				d.running.Store(false)
				return fmt.Errorf("lidar driver %s: motor on: %w", d.name, err)
			}
		}
	}
	if len(d.cfg.StartCommand) > 0 {
		if _, err := d.port.Write(d.cfg.StartCommand); err != nil {
			d.running.Store(false)
			return fmt.Errorf("lidar driver %s: start command: %w", d.name, err)
		}
	}

	d.scanning.Store(true)
	d.lastPacketStamp = uint64(d.clock.Now().UnixNano())
	d.wg.Add(1)
	go d.readLoop()
	return nil
}

// Stop signals the receive goroutine, waits for it to exit, then powers
// the sensor down and closes the port.
func (d *Driver) Stop() error {
	if !d.running.CompareAndSwap(true, false) {
		return nil
	}
	d.wg.Wait()

	var firstErr error
	if len(d.cfg.StopCommand) > 0 {
		if _, err := d.port.Write(d.cfg.StopCommand); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("lidar driver %s: stop command: %w", d.name, err)
		}
	}
	if d.cfg.MotorControl {
		if dtr, ok := d.port.(serialmux.DTRSerialPorter); ok {
			if err := dtr.SetDTR(false); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("lidar driver %s: motor off: %w", d.name, err)
			}
		}
	}
	if err := d.port.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("lidar driver %s: close port: %w", d.name, err)
	}
	return firstErr
}

// IsScanning reports whether the sensor delivered data recently. It goes
// false after MaxConsecutiveTimeouts empty reads and recovers on the next
// byte received.
func (d *Driver) IsScanning() bool {
	return d.scanning.Load()
}

// Stats returns the protocol counters.
func (d *Driver) Stats() ProtocolStats {
	return d.proto.Stats()
}

func (d *Driver) readLoop() {
	defer d.wg.Done()

	buf := make([]byte, 512)
	timeouts := 0
	for d.running.Load() {
		n, err := d.port.Read(buf)
		if err != nil {
			if d.running.Load() {
				log.Printf("lidar driver %s: read: %v", d.name, err)
				d.scanning.Store(false)
			}
			return
		}
		if n == 0 {
			// Timed-out read.
			timeouts++
			if timeouts >= d.cfg.MaxConsecutiveTimeouts && d.scanning.Load() {
				log.Printf("lidar driver %s: no data after %d reads, scanning stopped", d.name, timeouts)
				d.scanning.Store(false)
			}
			continue
		}
		timeouts = 0
		d.scanning.Store(true)

		for _, b := range buf[:n] {
			if d.proto.Analyze(b) == PacketMeasurement {
				d.handleMeasurement(d.proto.Measurement())
			}
		}
	}
}

// handleMeasurement spreads the packet's start/end angles and the
// wall-clock interval since the previous packet linearly across its
// samples, then pushes the points to the assembler. Sensors that emit
// stamp packages (G2) override the host clock: device time is immune to
// host-side serial buffering jitter. Packets whose angular span is
// implausible for their speed and sample count are dropped.
func (d *Driver) handleMeasurement(m *MeasurementPacket) {
	now := uint64(d.clock.Now().UnixNano())
	if m.DeviceStampNs != 0 {
		now = m.DeviceStampNs
	}
	prev := d.lastPacketStamp
	d.lastPacketStamp = now
	if now < prev {
		// Clock-domain switch (host time to device time): collapse the
		// packet onto the new stamp instead of interpolating across domains.
		prev = now
	}

	n := len(m.Points)
	if n == 0 {
		return
	}

	span := math.Mod(m.EndAngle-m.StartAngle+360, 360)
	if m.Speed > 0 && d.cfg.MeasureFrequency > 0 && d.cfg.PacketSpanFactor > 0 {
		expected := m.Speed * float64(n) / d.cfg.MeasureFrequency
		if span > expected*d.cfg.PacketSpanFactor {
			debugf("driver %s: dropping packet, span %.2f° exceeds expected %.2f°", d.name, span, expected)
			return
		}
	}

	d.asm.SetSpeed(m.Speed)

	angleStep := 0.0
	stampStep := 0.0
	if n > 1 {
		angleStep = span / float64(n-1)
		stampStep = float64(now-prev) / float64(n-1)
	}
	for i, s := range m.Points {
		if s.Distance == 0 {
			continue
		}
		angle := m.StartAngle + angleStep*float64(i) + s.AngleCorrection
		d.asm.Push(PointData{
			Angle:     math.Mod(angle+360, 360),
			Distance:  s.Distance,
			Intensity: s.Intensity,
			Stamp:     prev + uint64(stampStep*float64(i)),
		})
	}
}
