package transcript

import (
	"strings"
	"testing"
)

func TestEphemeralUserTurn(t *testing.T) {
	t.Run("singleton across repeated speech starts", func(t *testing.T) {
		l := New()

		id1 := l.StartEphemeralUserTurn()
		id2 := l.StartEphemeralUserTurn()
		id3 := l.StartEphemeralUserTurn()

		if id1 != id2 || id2 != id3 {
			t.Errorf("ephemeral id not stable: %s, %s, %s", id1, id2, id3)
		}

		open := 0
		for _, turn := range l.Turns() {
			if turn.Role == RoleUser && !turn.Final {
				open++
			}
		}
		if open != 1 {
			t.Errorf("expected exactly 1 non-final user turn, got %d", open)
		}
	})

	t.Run("finalize clears pointer", func(t *testing.T) {
		l := New()

		id1 := l.StartEphemeralUserTurn()
		l.FinalizeEphemeralUserTurn("first utterance")

		id2 := l.StartEphemeralUserTurn()
		if id1 == id2 {
			t.Error("new utterance reused the finalized turn id")
		}

		turns := l.Turns()
		if len(turns) != 2 {
			t.Fatalf("expected 2 turns, got %d", len(turns))
		}
		if !turns[0].Final || turns[0].Status != StatusFinal {
			t.Error("first turn not finalized")
		}
		if turns[0].Text != "first utterance" {
			t.Errorf("unexpected text %q", turns[0].Text)
		}
	})

	t.Run("update is defensive without open turn", func(t *testing.T) {
		l := New()
		l.UpdateEphemeralUserTurn("stray", StatusSpeaking) // must not panic
		l.FinalizeEphemeralUserTurn("stray")

		if l.Len() != 0 {
			t.Errorf("expected empty log, got %d turns", l.Len())
		}
	})

	t.Run("update overwrites text and status", func(t *testing.T) {
		l := New()
		l.StartEphemeralUserTurn()
		l.UpdateEphemeralUserTurn("I think", StatusSpeaking)
		l.UpdateEphemeralUserTurn(ProcessingPlaceholder, StatusProcessing)

		turns := l.Turns()
		if turns[0].Text != ProcessingPlaceholder {
			t.Errorf("unexpected text %q", turns[0].Text)
		}
		if turns[0].Status != StatusProcessing {
			t.Errorf("unexpected status %q", turns[0].Status)
		}
		if turns[0].Final {
			t.Error("turn must not be final before transcript completion")
		}
	})
}

func TestAssistantTurns(t *testing.T) {
	t.Run("delta coalescing", func(t *testing.T) {
		l := New()

		for _, d := range []string{"Hel", "lo", " world"} {
			l.AppendAssistantDelta(d)
		}
		l.FinalizeLastAssistantTurn()

		turns := l.Turns()
		if len(turns) != 1 {
			t.Fatalf("expected 1 assistant turn, got %d", len(turns))
		}
		if turns[0].Text != "Hello world" {
			t.Errorf("expected %q, got %q", "Hello world", turns[0].Text)
		}
		if !turns[0].Final {
			t.Error("turn should be final after done")
		}
	})

	t.Run("done starts a new turn for the next delta", func(t *testing.T) {
		l := New()
		l.AppendAssistantDelta("first")
		l.FinalizeLastAssistantTurn()
		l.AppendAssistantDelta("second")

		turns := l.Turns()
		if len(turns) != 2 {
			t.Fatalf("expected 2 turns, got %d", len(turns))
		}
		if turns[1].Text != "second" || turns[1].Final {
			t.Errorf("unexpected second turn %+v", turns[1])
		}
	})

	t.Run("finalize on empty log is a no-op", func(t *testing.T) {
		l := New()
		l.FinalizeLastAssistantTurn()
		if l.Len() != 0 {
			t.Error("finalize created a turn")
		}
	})
}

func TestInterleavedConversation(t *testing.T) {
	l := New()

	l.StartEphemeralUserTurn()
	l.UpdateEphemeralUserTurn("I think", StatusSpeaking)
	l.FinalizeEphemeralUserTurn("I think React is great")

	l.AppendAssistantDelta("Great,")
	l.AppendAssistantDelta(" thanks")
	l.FinalizeLastAssistantTurn()

	turns := l.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != RoleUser || turns[0].Text != "I think React is great" || !turns[0].Final {
		t.Errorf("unexpected user turn %+v", turns[0])
	}
	if turns[1].Role != RoleAssistant || turns[1].Text != "Great, thanks" || !turns[1].Final {
		t.Errorf("unexpected assistant turn %+v", turns[1])
	}
}

func TestRender(t *testing.T) {
	l := New()

	l.StartEphemeralUserTurn()
	l.FinalizeEphemeralUserTurn("Hello there")
	l.AppendAssistantDelta("Welcome to the interview")
	l.FinalizeLastAssistantTurn()

	// Empty and placeholder turns are filtered.
	l.StartEphemeralUserTurn()
	l.UpdateEphemeralUserTurn(ProcessingPlaceholder, StatusProcessing)

	got := l.Render()
	want := "User: Hello there\nInterviewer: Welcome to the interview"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
	if strings.Contains(got, ProcessingPlaceholder) {
		t.Error("placeholder text leaked into rendered transcript")
	}
}

func TestReset(t *testing.T) {
	l := New()
	id1 := l.StartEphemeralUserTurn()
	l.AppendAssistantDelta("partial")

	l.Reset()

	if l.Len() != 0 {
		t.Errorf("expected empty log after reset, got %d turns", l.Len())
	}
	id2 := l.StartEphemeralUserTurn()
	if id1 == id2 {
		t.Error("reset did not clear the ephemeral pointer")
	}
}
