package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hirevox/hirevox/pkg/transcript"
)

func TestNew(t *testing.T) {
	h := New("transcript", nil)

	if h == nil {
		t.Fatal("New returned nil")
	}
	if h.ClientCount() != 0 {
		t.Error("ClientCount should be 0 initially")
	}
	if h.IsRunning() {
		t.Error("hub should not be running before Run")
	}
}

func TestBroadcastWithoutClients(t *testing.T) {
	h := New("transcript", nil)
	go h.Run()

	// No clients registered: broadcasts must not block or panic.
	for i := 0; i < 10; i++ {
		if err := h.BroadcastJSON(NewStatusFrame("connected")); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for !h.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !h.IsRunning() {
		t.Error("hub did not start")
	}
}

func TestFrameEncoding(t *testing.T) {
	t.Run("transcript frame", func(t *testing.T) {
		frame := NewTranscriptFrame([]transcript.Turn{
			{ID: "t1", Role: transcript.RoleUser, Text: "hello", Final: true},
		})
		data, err := json.Marshal(frame)
		if err != nil {
			t.Fatal(err)
		}

		var decoded map[string]any
		json.Unmarshal(data, &decoded)
		if decoded["kind"] != FrameTranscript {
			t.Errorf("kind = %v", decoded["kind"])
		}
		turns, ok := decoded["turns"].([]any)
		if !ok || len(turns) != 1 {
			t.Errorf("turns missing: %v", decoded)
		}
	})

	t.Run("status frame carries timestamp", func(t *testing.T) {
		frame := NewStatusFrame("negotiating")
		if frame.Kind != FrameStatus || frame.Status != "negotiating" {
			t.Errorf("unexpected frame %+v", frame)
		}
		if frame.Timestamp.IsZero() {
			t.Error("timestamp not set")
		}
	})

	t.Run("levels frame", func(t *testing.T) {
		frame := NewLevelsFrame(0.4, 0.7)
		if frame.Local != 0.4 || frame.Remote != 0.7 || frame.Kind != FrameLevels {
			t.Errorf("unexpected frame %+v", frame)
		}
	})
}
