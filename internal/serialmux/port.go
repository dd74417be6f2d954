// Package serialmux provides the serial port abstraction used by the LiDAR
// drivers. The interfaces keep the protocol layer testable without real
// serial hardware; the real implementation sits on go.bug.st/serial.
package serialmux

import (
	"io"
	"time"
)

// SerialPorter defines the minimal interface needed for a serial port.
// The protocol layer treats this purely as an unreliable byte stream.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter extends SerialPorter with read timeouts. The driver
// read loop depends on bounded reads so a stalled sensor surfaces as a
// timeout rather than a hung goroutine.
type TimeoutSerialPorter interface {
	SerialPorter
	// SetReadTimeout sets the read timeout for subsequent Read calls. A
	// timed-out Read returns (0, nil).
	SetReadTimeout(timeout time.Duration) error
}

// DTRSerialPorter extends SerialPorter with DTR line control, used by the
// YDLidar G2 driver to power-cycle the spin motor.
type DTRSerialPorter interface {
	SerialPorter
	SetDTR(on bool) error
}

// Parity defines serial port parity options.
type Parity int

const (
	NoParity Parity = iota
	OddParity
	EvenParity
)

// StopBits defines serial port stop bit options.
type StopBits int

const (
	OneStopBit StopBits = iota
	TwoStopBits
)

// SerialPortMode defines serial port configuration parameters.
type SerialPortMode struct {
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits StopBits
}

// DefaultLD19Mode returns the serial mode for LD19 sensors.
func DefaultLD19Mode() *SerialPortMode {
	return &SerialPortMode{
		BaudRate: 230400,
		DataBits: 8,
		Parity:   NoParity,
		StopBits: OneStopBit,
	}
}

// DefaultG2Mode returns the serial mode for YDLidar G2 sensors.
func DefaultG2Mode() *SerialPortMode {
	return &SerialPortMode{
		BaudRate: 230400,
		DataBits: 8,
		Parity:   NoParity,
		StopBits: OneStopBit,
	}
}
