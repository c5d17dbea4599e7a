package realtime

import (
	"math"
	"sync"
)

// LevelMeter derives a normalized audio level from PCM16 windows for
// liveness UI ("the candidate/interviewer is speaking"). It holds the most
// recent window's RMS; the session samples it on a fixed cadence while
// connected.
type LevelMeter struct {
	mu    sync.Mutex
	level float64
}

// NewLevelMeter creates a silent meter.
func NewLevelMeter() *LevelMeter {
	return &LevelMeter{}
}

// Push updates the meter with a window of PCM16 samples.
func (m *LevelMeter) Push(samples []int16) {
	if len(samples) == 0 {
		return
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	rms := math.Sqrt(sum/float64(len(samples))) / 32768.0

	m.mu.Lock()
	m.level = rms
	m.mu.Unlock()
}

// Level returns the current normalized level in [0, 1].
func (m *LevelMeter) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Reset clears the meter to silence.
func (m *LevelMeter) Reset() {
	m.mu.Lock()
	m.level = 0
	m.mu.Unlock()
}
