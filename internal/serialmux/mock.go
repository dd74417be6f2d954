package serialmux

import (
	"io"
	"sync"
	"time"
)

// TestablePort implements TimeoutSerialPorter and DTRSerialPorter with
// scripted reads for driver and protocol tests. Reads drain the queued
// chunks in order; once the script is exhausted, Read reports a timeout
// (0, nil) unless EOFAfterScript is set.
type TestablePort struct {
	mu sync.Mutex

	chunks [][]byte

	// WriteBuffer captures data written to the port.
	WriteBuffer []byte

	// DTRStates records every SetDTR call.
	DTRStates []bool

	// ReadLatency adds a delay to each Read call.
	ReadLatency time.Duration

	// EOFAfterScript makes Read return io.EOF once the script is drained,
	// instead of simulating timeouts.
	EOFAfterScript bool

	// ReadError is returned by the next Read call if set.
	ReadError error

	closed  bool
	timeout time.Duration
}

// NewTestablePort returns an empty scripted port.
func NewTestablePort() *TestablePort {
	return &TestablePort{}
}

// QueueRead appends a chunk to the read script.
func (p *TestablePort) QueueRead(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = append(p.chunks, append([]byte(nil), data...))
}

func (p *TestablePort) Read(buf []byte) (int, error) {
	if p.ReadLatency > 0 {
		time.Sleep(p.ReadLatency)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ReadError != nil {
		err := p.ReadError
		p.ReadError = nil
		return 0, err
	}
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	if len(p.chunks) == 0 {
		if p.EOFAfterScript {
			return 0, io.EOF
		}
		// Simulate a read timeout the way go.bug.st/serial does.
		return 0, nil
	}

	chunk := p.chunks[0]
	n := copy(buf, chunk)
	if n == len(chunk) {
		p.chunks = p.chunks[1:]
	} else {
		p.chunks[0] = chunk[n:]
	}
	return n, nil
}

func (p *TestablePort) Write(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	p.WriteBuffer = append(p.WriteBuffer, buf...)
	return len(buf), nil
}

func (p *TestablePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// SetReadTimeout implements TimeoutSerialPorter.
func (p *TestablePort) SetReadTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = timeout
	return nil
}

// SetDTR implements DTRSerialPorter.
func (p *TestablePort) SetDTR(on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.DTRStates = append(p.DTRStates, on)
	return nil
}
