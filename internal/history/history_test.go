package history

import "testing"

func TestLogAppendSnapshotReset(t *testing.T) {
	l := NewLog()

	l.Append(RoleAssistant, "How are you?")
	l.Append(RoleUser, "I am good")

	msgs := l.Snapshot()
	if len(msgs) != 2 {
		t.Fatalf("unexpected length: %d", len(msgs))
	}
	if msgs[0].Role != RoleAssistant || msgs[0].Text != "How are you?" {
		t.Fatalf("unexpected msgs[0]: %+v", msgs[0])
	}
	if msgs[1].Role != RoleUser || msgs[1].Text != "I am good" {
		t.Fatalf("unexpected msgs[1]: %+v", msgs[1])
	}

	// Ensure copy semantics (modifying returned slice does not affect internal state)
	msgs[0] = Message{Role: RoleUser, Text: "mutated"}
	if got := l.Snapshot()[0].Text; got != "How are you?" {
		t.Fatalf("internal state mutated via returned slice: %q", got)
	}

	l.Reset()
	if l.Len() != 0 {
		t.Fatalf("reset did not clear the log")
	}
}

func TestLogPushPop(t *testing.T) {
	l := NewLog()
	l.Append(RoleAssistant, "What's for dinner?")

	l.Push(RoleUser, "Please provide different options.")
	if l.Len() != 2 {
		t.Fatalf("push did not append: len=%d", l.Len())
	}
	l.Pop()
	if l.Len() != 1 {
		t.Fatalf("pop did not remove the scratch turn: len=%d", l.Len())
	}
	if got := l.Snapshot()[0].Text; got != "What's for dinner?" {
		t.Fatalf("pop removed the wrong turn: %q", got)
	}

	// Pop on empty log must not panic.
	l.Pop()
	l.Pop()
	if l.Len() != 0 {
		t.Fatalf("unexpected length after pops: %d", l.Len())
	}
}
