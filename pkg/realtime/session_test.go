package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hirevox/hirevox/pkg/tools"
	"github.com/hirevox/hirevox/pkg/transcript"
)

// fakeChannel captures outbound events for assertions.
type fakeChannel struct {
	mu     sync.Mutex
	sent   []any
	audio  []AudioChunk
	closed bool

	SendErr error
}

func (f *fakeChannel) Send(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return f.SendErr
	}
	if f.closed {
		return ErrChannelClosed
	}
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeChannel) SendAudio(chunk AudioChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrChannelClosed
	}
	f.audio = append(f.audio, chunk)
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) sentEvents() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]any, len(f.sent))
	copy(out, f.sent)
	return out
}

func newTestSession(t *testing.T) (*Session, *fakeChannel) {
	t.Helper()
	s, err := NewSession(WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	ch := &fakeChannel{}
	s.mu.Lock()
	s.channel = ch
	s.state = StateConnected
	s.mu.Unlock()
	return s, ch
}

func event(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	data, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return data
}

func TestSessionChannelOpenBeforeChannelStored(t *testing.T) {
	// The websocket carrier fires its open hook synchronously inside
	// connectWebSocket, before Start assigns the channel. The session
	// configuration must still reach the wire.
	s, err := NewSession(WithAPIKey("test-key"))
	if err != nil {
		t.Fatal(err)
	}
	s.Registry().Register(tools.Tool{
		Name:        "ask_question",
		Description: "ask a screening question",
		Handler:     func(args map[string]any) (string, error) { return "ok", nil },
	})
	s.PrimeContext("candidate context")

	ch := &fakeChannel{}
	// s.channel is still nil here, as it is at the moment the carrier
	// opens during Start.
	s.handleChannelOpen(ch)

	sent := ch.sentEvents()
	if len(sent) != 2 {
		t.Fatalf("expected session config + context prime, got %d events", len(sent))
	}

	cfgRaw, err := json.Marshal(sent[0])
	if err != nil {
		t.Fatal(err)
	}
	var cfg struct {
		Type    string `json:"type"`
		Session struct {
			Voice string           `json:"voice"`
			Tools []map[string]any `json:"tools"`
		} `json:"session"`
	}
	if err := json.Unmarshal(cfgRaw, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Type != "session.update" {
		t.Errorf("first event = %q, want session.update", cfg.Type)
	}
	if len(cfg.Session.Tools) != 1 || cfg.Session.Tools[0]["name"] != "ask_question" {
		t.Errorf("tool specs not advertised: %v", cfg.Session.Tools)
	}

	primeRaw, _ := json.Marshal(sent[1])
	var prime struct {
		Type string `json:"type"`
		Item struct {
			Role string `json:"role"`
		} `json:"item"`
	}
	if err := json.Unmarshal(primeRaw, &prime); err != nil {
		t.Fatal(err)
	}
	if prime.Type != "conversation.item.create" || prime.Item.Role != "system" {
		t.Errorf("unexpected prime event %+v", prime)
	}

	if got := s.Metrics().MessagesSent; got != 2 {
		t.Errorf("sent counter = %d, want 2", got)
	}
}

func TestSessionTranscriptFlow(t *testing.T) {
	s, _ := newTestSession(t)

	s.handleInbound(event(t, map[string]any{"type": EventSpeechStarted}))
	s.handleInbound(event(t, map[string]any{"type": EventSpeechStopped}))
	s.handleInbound(event(t, map[string]any{"type": EventBufferCommitted}))
	s.handleInbound(event(t, map[string]any{"type": EventUserTranscriptDelta, "delta": "I think"}))
	s.handleInbound(event(t, map[string]any{"type": EventUserTranscriptDone, "transcript": "I think React is great"}))

	turns := s.Log().Turns()
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if turns[0].Role != transcript.RoleUser || turns[0].Text != "I think React is great" || !turns[0].Final {
		t.Errorf("unexpected user turn %+v", turns[0])
	}

	s.handleInbound(event(t, map[string]any{"type": EventAssistantDelta, "delta": "Great,"}))
	s.handleInbound(event(t, map[string]any{"type": EventAssistantDelta, "delta": " thanks"}))
	s.handleInbound(event(t, map[string]any{"type": EventAssistantDone}))

	turns = s.Log().Turns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	last := turns[1]
	if last.Role != transcript.RoleAssistant || last.Text != "Great, thanks" || !last.Final {
		t.Errorf("unexpected assistant turn %+v", last)
	}
}

func TestSessionEphemeralSingleton(t *testing.T) {
	s, _ := newTestSession(t)

	for i := 0; i < 3; i++ {
		s.handleInbound(event(t, map[string]any{"type": EventSpeechStarted}))
	}

	open := 0
	for _, turn := range s.Log().Turns() {
		if turn.Role == transcript.RoleUser && !turn.Final {
			open++
		}
	}
	if open != 1 {
		t.Errorf("expected exactly 1 non-final user turn, got %d", open)
	}
}

func TestSessionProcessingPlaceholder(t *testing.T) {
	s, _ := newTestSession(t)

	s.handleInbound(event(t, map[string]any{"type": EventSpeechStarted}))
	s.handleInbound(event(t, map[string]any{"type": EventBufferCommitted}))

	turns := s.Log().Turns()
	if turns[0].Text != transcript.ProcessingPlaceholder {
		t.Errorf("expected placeholder, got %q", turns[0].Text)
	}
	if turns[0].Status != transcript.StatusProcessing {
		t.Errorf("expected processing status, got %q", turns[0].Status)
	}

	// Late partials replace the placeholder, not append to it.
	s.handleInbound(event(t, map[string]any{"type": EventUserTranscriptDelta, "delta": "Hello"}))
	turns = s.Log().Turns()
	if turns[0].Text != "Hello" {
		t.Errorf("placeholder not cleared: %q", turns[0].Text)
	}
}

func TestSessionFunctionCall(t *testing.T) {
	t.Run("invokes handler and sends output plus continuation", func(t *testing.T) {
		s, ch := newTestSession(t)

		var gotArgs map[string]any
		s.Registry().Register(tools.Tool{
			Name: "ask_question",
			Handler: func(args map[string]any) (string, error) {
				gotArgs = args
				return `{"success":true}`, nil
			},
		})

		s.handleInbound(event(t, map[string]any{
			"type":      EventFunctionCallDone,
			"name":      "ask_question",
			"call_id":   "call-42",
			"arguments": `{"question":"Tell me about Go"}`,
		}))

		if gotArgs["question"] != "Tell me about Go" {
			t.Errorf("arguments not passed: %v", gotArgs)
		}

		sent := ch.sentEvents()
		if len(sent) != 2 {
			t.Fatalf("expected output + continuation, got %d events", len(sent))
		}
		out, err := json.Marshal(sent[0])
		if err != nil {
			t.Fatal(err)
		}
		var decoded struct {
			Type string `json:"type"`
			Item struct {
				Type   string `json:"type"`
				CallID string `json:"call_id"`
				Output string `json:"output"`
			} `json:"item"`
		}
		if err := json.Unmarshal(out, &decoded); err != nil {
			t.Fatal(err)
		}
		if decoded.Item.Type != "function_call_output" || decoded.Item.CallID != "call-42" {
			t.Errorf("unexpected output event %+v", decoded)
		}
		if decoded.Item.Output != `{"success":true}` {
			t.Errorf("unexpected output payload %q", decoded.Item.Output)
		}

		cont, _ := json.Marshal(sent[1])
		if string(cont) != `{"type":"response.create"}` {
			t.Errorf("unexpected continuation %s", cont)
		}
	})

	t.Run("unknown tool still produces an output event", func(t *testing.T) {
		s, ch := newTestSession(t)

		s.handleInbound(event(t, map[string]any{
			"type":    EventFunctionCallDone,
			"name":    "no_such_tool",
			"call_id": "call-1",
		}))

		sent := ch.sentEvents()
		if len(sent) != 2 {
			t.Fatalf("expected output + continuation, got %d events", len(sent))
		}
	})

	t.Run("send failure after stop is swallowed", func(t *testing.T) {
		s, ch := newTestSession(t)
		ch.SendErr = ErrChannelClosed

		s.Registry().Register(tools.Tool{
			Name:    "end_interview",
			Handler: func(args map[string]any) (string, error) { return "done", nil },
		})

		// Must not panic and must not leave the session wedged.
		s.handleInbound(event(t, map[string]any{
			"type":    EventFunctionCallDone,
			"name":    "end_interview",
			"call_id": "call-9",
		}))
	})
}

func TestSessionMalformedAndUnknownEvents(t *testing.T) {
	s, _ := newTestSession(t)

	s.handleInbound([]byte("{not json"))
	s.handleInbound(event(t, map[string]any{"type": "response.some_future_event"}))

	if s.Log().Len() != 0 {
		t.Error("malformed/unknown events must not mutate the log")
	}
	// Both messages still land in the audit buffer.
	if got := len(s.RawMessages()); got != 2 {
		t.Errorf("expected 2 raw messages, got %d", got)
	}
}

func TestSessionStop(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		s, err := NewSession(WithAPIKey("test-key"))
		if err != nil {
			t.Fatal(err)
		}

		if err := s.Stop(); err != nil {
			t.Errorf("stop before start: %v", err)
		}
		if err := s.Stop(); err != nil {
			t.Errorf("second stop: %v", err)
		}
		if s.State() != StateIdle {
			t.Errorf("expected idle, got %v", s.State())
		}
	})

	t.Run("clears log, audit buffer and levels", func(t *testing.T) {
		s, ch := newTestSession(t)

		s.handleInbound(event(t, map[string]any{"type": EventSpeechStarted}))
		s.localLevel.Push([]int16{10000, -10000})

		if err := s.Stop(); err != nil {
			t.Fatal(err)
		}

		if !ch.closed {
			t.Error("channel not closed")
		}
		if s.Log().Len() != 0 {
			t.Error("log not reset")
		}
		if len(s.RawMessages()) != 0 {
			t.Error("audit buffer not cleared")
		}
		if local, remote := s.Levels(); local != 0 || remote != 0 {
			t.Errorf("levels not reset: %v %v", local, remote)
		}
		if s.State() != StateIdle {
			t.Errorf("expected idle, got %v", s.State())
		}
	})
}

func TestSessionStartMediaFailure(t *testing.T) {
	src := NewMockSource()
	src.StartErr = errors.New("permission denied")

	s, err := NewSession(WithAPIKey("test-key"), WithSource(src))
	if err != nil {
		t.Fatal(err)
	}

	var statuses []string
	s.OnStatus(func(status string) { statuses = append(statuses, status) })

	err = s.Start(context.Background())
	if !errors.Is(err, ErrMediaUnavailable) {
		t.Errorf("expected ErrMediaUnavailable, got %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("expected idle after failed start, got %v", s.State())
	}

	found := false
	for _, st := range statuses {
		if st == fmt.Sprintf("microphone unavailable: %v", src.StartErr) {
			found = true
		}
	}
	if !found {
		t.Errorf("error status not published: %v", statuses)
	}
}

func TestSessionToggleDuringTransition(t *testing.T) {
	s, err := NewSession(WithAPIKey("test-key"))
	if err != nil {
		t.Fatal(err)
	}
	s.mu.Lock()
	s.state = StateNegotiating
	s.mu.Unlock()

	if err := s.Toggle(context.Background()); err != nil {
		t.Errorf("toggle during transition must be a no-op, got %v", err)
	}
	if s.State() != StateNegotiating {
		t.Errorf("state changed by no-op toggle: %v", s.State())
	}
}

func TestSessionTranscriptCallback(t *testing.T) {
	s, _ := newTestSession(t)

	var snapshots int
	s.OnTranscriptChange(func(turns []transcript.Turn) { snapshots++ })

	s.handleInbound(event(t, map[string]any{"type": EventSpeechStarted}))
	s.handleInbound(event(t, map[string]any{"type": EventUserTranscriptDone, "transcript": "hi"}))
	s.handleInbound(event(t, map[string]any{"type": EventAssistantDelta, "delta": "hello"}))

	if snapshots != 3 {
		t.Errorf("expected 3 transcript callbacks, got %d", snapshots)
	}
}

func TestSessionMetrics(t *testing.T) {
	s, _ := newTestSession(t)

	s.Registry().Register(tools.Tool{
		Name:    "take_notes",
		Handler: func(args map[string]any) (string, error) { return "ok", nil },
	})

	s.handleInbound(event(t, map[string]any{"type": EventSpeechStarted}))
	s.handleInbound(event(t, map[string]any{
		"type": EventFunctionCallDone, "name": "take_notes", "call_id": "c1",
	}))
	s.handleInbound(event(t, map[string]any{"type": EventError, "error": map[string]any{"code": "x", "message": "y"}}))

	m := s.Metrics()
	if m.MessagesReceived != 3 {
		t.Errorf("expected 3 received, got %d", m.MessagesReceived)
	}
	if m.ToolCalls != 1 {
		t.Errorf("expected 1 tool call, got %d", m.ToolCalls)
	}
	if m.Errors != 1 {
		t.Errorf("expected 1 error, got %d", m.Errors)
	}
	if m.MessagesSent != 2 {
		t.Errorf("expected 2 sent (output + continuation), got %d", m.MessagesSent)
	}
}
