// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern. It fans live
// interview frames (transcript turns, session status, audio levels) out to
// dashboard clients.
package hub

import (
	"time"

	"github.com/hirevox/hirevox/pkg/transcript"
)

// Frame kinds sent to dashboard clients.
const (
	FrameTranscript = "transcript"
	FrameStatus     = "status"
	FrameLevels     = "levels"
)

// TranscriptFrame carries the full conversation log after each change.
type TranscriptFrame struct {
	Kind  string            `json:"kind"`
	Turns []transcript.Turn `json:"turns"`
}

// StatusFrame carries a session status transition.
type StatusFrame struct {
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// LevelsFrame carries the mic and speaker levels for the volume indicator.
type LevelsFrame struct {
	Kind   string  `json:"kind"`
	Local  float64 `json:"local"`
	Remote float64 `json:"remote"`
}

// NewTranscriptFrame builds a transcript frame from a log snapshot.
func NewTranscriptFrame(turns []transcript.Turn) TranscriptFrame {
	return TranscriptFrame{Kind: FrameTranscript, Turns: turns}
}

// NewStatusFrame builds a status frame stamped with the current time.
func NewStatusFrame(status string) StatusFrame {
	return StatusFrame{Kind: FrameStatus, Status: status, Timestamp: time.Now()}
}

// NewLevelsFrame builds a levels frame.
func NewLevelsFrame(local, remote float64) LevelsFrame {
	return LevelsFrame{Kind: FrameLevels, Local: local, Remote: remote}
}

// Message is an encoded frame queued for delivery to clients.
type Message struct {
	Data []byte
}
