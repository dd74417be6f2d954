package serialmux

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// realPort wraps a go.bug.st serial port so it satisfies
// TimeoutSerialPorter and DTRSerialPorter.
type realPort struct {
	serial.Port
}

func (p *realPort) SetReadTimeout(timeout time.Duration) error {
	return p.Port.SetReadTimeout(timeout)
}

func (p *realPort) SetDTR(on bool) error {
	return p.Port.SetDTR(on)
}

// Open opens the serial device at path with the given mode. The returned
// port supports read timeouts and DTR control.
func Open(path string, mode *SerialPortMode) (*realPort, error) {
	m, err := serialMode(mode)
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, m)
	if err != nil {
		return nil, fmt.Errorf("serialmux: failed to open %s: %w", path, err)
	}
	return &realPort{Port: port}, nil
}

// serialMode translates a SerialPortMode into go.bug.st serial options.
func serialMode(mode *SerialPortMode) (*serial.Mode, error) {
	m := &serial.Mode{
		BaudRate: mode.BaudRate,
		DataBits: mode.DataBits,
	}

	switch mode.Parity {
	case NoParity:
		m.Parity = serial.NoParity
	case OddParity:
		m.Parity = serial.OddParity
	case EvenParity:
		m.Parity = serial.EvenParity
	default:
		return nil, fmt.Errorf("serialmux: unsupported parity %d", mode.Parity)
	}

	switch mode.StopBits {
	case OneStopBit:
		m.StopBits = serial.OneStopBit
	case TwoStopBits:
		m.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("serialmux: unsupported stop bits %d", mode.StopBits)
	}

	return m, nil
}
