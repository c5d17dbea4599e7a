package realtime

import (
	"context"
	"io"
	"sync"
)

// AudioChunk is a chunk of captured PCM16 audio.
type AudioChunk struct {
	// Samples contains PCM16 audio samples (little-endian).
	Samples []int16

	// SampleRate is the sample rate of this chunk.
	SampleRate int
}

// Bytes returns the raw little-endian bytes of the chunk.
func (c *AudioChunk) Bytes() []byte {
	buf := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

// Source captures audio from a microphone or other input device.
// Implementations are platform-specific; tests use MockSource.
type Source interface {
	// Start begins audio capture. A failure here (no device, permission
	// denied) aborts session setup.
	Start(ctx context.Context) error

	// Stop halts capture. Safe to call multiple times.
	Stop() error

	// Stream returns the channel of captured chunks. The channel is closed
	// when the source stops.
	Stream() <-chan AudioChunk

	// Close releases all resources.
	io.Closer
}

// MockSource is an in-memory Source for tests and offline development.
type MockSource struct {
	mu      sync.Mutex
	ch      chan AudioChunk
	started bool
	closed  bool

	// StartErr, if set, is returned by Start to simulate a capture failure.
	StartErr error

	// StopCalls counts Stop invocations for assertions.
	StopCalls int
}

// NewMockSource creates a mock capture source.
func NewMockSource() *MockSource {
	return &MockSource{ch: make(chan AudioChunk, 64)}
}

// Start implements Source.
func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StartErr != nil {
		return m.StartErr
	}
	m.started = true
	return nil
}

// Stop implements Source.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StopCalls++
	if m.started {
		m.started = false
		close(m.ch)
		m.ch = make(chan AudioChunk, 64)
	}
	return nil
}

// Stream implements Source.
func (m *MockSource) Stream() <-chan AudioChunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ch
}

// Close implements Source.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		m.started = false
		close(m.ch)
	}
	m.closed = true
	return nil
}

// Push feeds a chunk into the stream, dropping it if the source is stopped
// or the buffer is full.
func (m *MockSource) Push(chunk AudioChunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started || m.closed {
		return
	}
	select {
	case m.ch <- chunk:
	default:
	}
}

// Started reports whether capture is active.
func (m *MockSource) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

var _ Source = (*MockSource)(nil)
