// Package transcript maintains the conversation log for a live interview
// session: an append-only sequence of turns with two mutable tails, the
// in-progress ("ephemeral") user utterance and the streaming assistant
// response.
package transcript

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status tracks the lifecycle of a user turn while it is being captured.
// Assistant turns carry only the Final flag.
type Status string

const (
	// StatusSpeaking means audio is still being captured for this turn.
	StatusSpeaking Status = "speaking"
	// StatusProcessing means speech ended but the transcript is not back yet.
	StatusProcessing Status = "processing"
	// StatusFinal means the transcript is complete.
	StatusFinal Status = "final"
)

// ProcessingPlaceholder is shown while waiting for the transcription of a
// committed audio buffer. There is a real latency gap between end of speech
// and transcript availability, and the UI must not show stale text in it.
const ProcessingPlaceholder = "..."

// Turn is a single entry in the conversation log.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Final     bool      `json:"is_final"`
	Status    Status    `json:"status,omitempty"`
}

// Log is the conversation log. It is safe for concurrent use; in practice
// it is written only from the event-channel read path and read from UI
// callbacks.
type Log struct {
	mu          sync.Mutex
	turns       []Turn
	ephemeralID string
}

// New creates an empty conversation log.
func New() *Log {
	return &Log{}
}

// StartEphemeralUserTurn opens the in-progress user turn and returns its id.
// If one is already open it returns the existing id, so repeated
// speech-started events are idempotent.
func (l *Log) StartEphemeralUserTurn() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ephemeralID != "" {
		return l.ephemeralID
	}

	turn := Turn{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Timestamp: time.Now(),
		Status:    StatusSpeaking,
	}
	l.turns = append(l.turns, turn)
	l.ephemeralID = turn.ID
	return turn.ID
}

// UpdateEphemeralUserTurn updates the text and status of the open user turn.
// No-op when no ephemeral turn is open.
func (l *Log) UpdateEphemeralUserTurn(text string, status Status) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.ephemeralIndexLocked()
	if i < 0 {
		return
	}
	l.turns[i].Text = text
	if status != "" {
		l.turns[i].Status = status
	}
}

// AppendEphemeralUserDelta appends a partial transcription fragment to the
// open user turn, clearing any processing placeholder first. No-op when no
// ephemeral turn is open.
func (l *Log) AppendEphemeralUserDelta(delta string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.ephemeralIndexLocked()
	if i < 0 {
		return
	}
	if l.turns[i].Text == ProcessingPlaceholder {
		l.turns[i].Text = ""
	}
	l.turns[i].Text += delta
	l.turns[i].Status = StatusSpeaking
}

// FinalizeEphemeralUserTurn sets the final transcript on the open user turn
// and closes it. The next speech-started event opens a fresh turn.
func (l *Log) FinalizeEphemeralUserTurn(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.ephemeralIndexLocked()
	if i < 0 {
		return
	}
	l.turns[i].Text = text
	l.turns[i].Final = true
	l.turns[i].Status = StatusFinal
	l.ephemeralID = ""
}

// AppendAssistantDelta appends a streamed text fragment to the trailing
// non-final assistant turn, opening a new one if necessary.
func (l *Log) AppendAssistantDelta(delta string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.turns); n > 0 {
		last := &l.turns[n-1]
		if last.Role == RoleAssistant && !last.Final {
			last.Text += delta
			return
		}
	}
	l.turns = append(l.turns, Turn{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Text:      delta,
		Timestamp: time.Now(),
	})
}

// FinalizeLastAssistantTurn marks the trailing assistant turn final.
// No-op on an empty log or when the last turn is not an open assistant turn.
func (l *Log) FinalizeLastAssistantTurn() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.turns); n > 0 {
		last := &l.turns[n-1]
		if last.Role == RoleAssistant {
			last.Final = true
		}
	}
}

// Turns returns a snapshot of the log.
func (l *Log) Turns() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Len returns the number of turns.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.turns)
}

// Reset clears the log and the ephemeral-turn pointer.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = nil
	l.ephemeralID = ""
}

// Render formats the log as "Role: text" lines, skipping empty turns.
// This is the transcript persisted with a finished interview.
func (l *Log) Render() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var b strings.Builder
	for _, t := range l.turns {
		if strings.TrimSpace(t.Text) == "" || t.Text == ProcessingPlaceholder {
			continue
		}
		role := "User"
		if t.Role == RoleAssistant {
			role = "Interviewer"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, t.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (l *Log) ephemeralIndexLocked() int {
	if l.ephemeralID == "" {
		return -1
	}
	for i := len(l.turns) - 1; i >= 0; i-- {
		if l.turns[i].ID == l.ephemeralID {
			return i
		}
	}
	return -1
}
