package telegram

import (
	"testing"

	"eegchat/internal/history"
)

func TestOptionsKeyboardLayout(t *testing.T) {
	kb := optionsKeyboard([]string{"Yes", "No", "Maybe"})

	// Three options two per row, then the service commands three per row.
	if len(kb.InlineKeyboard) != 4 {
		t.Fatalf("unexpected row count: %d", len(kb.InlineKeyboard))
	}
	if got := *kb.InlineKeyboard[0][0].CallbackData; got != "kw:0" {
		t.Fatalf("unexpected callback data: %q", got)
	}
	if got := *kb.InlineKeyboard[1][0].CallbackData; got != "kw:2" {
		t.Fatalf("unexpected callback data: %q", got)
	}
	if kb.InlineKeyboard[0][1].Text != "No" {
		t.Fatalf("unexpected button text: %q", kb.InlineKeyboard[0][1].Text)
	}
	if got := *kb.InlineKeyboard[2][0].CallbackData; got != "svc:More" {
		t.Fatalf("unexpected service callback: %q", got)
	}
	var buttons int
	for _, row := range kb.InlineKeyboard[2:] {
		buttons += len(row)
	}
	if buttons != len(serviceCommands) {
		t.Fatalf("expected %d service buttons, got %d", len(serviceCommands), buttons)
	}
}

func TestHistoryText(t *testing.T) {
	if got := historyText(nil); got != "The conversation is empty." {
		t.Fatalf("unexpected empty rendering: %q", got)
	}
	got := historyText([]history.Message{
		{Role: history.RoleAssistant, Text: "How are you?"},
		{Role: history.RoleUser, Text: "I am good"},
	})
	want := "Assistant: How are you?\nUser: I am good"
	if got != want {
		t.Fatalf("unexpected rendering: %q", got)
	}
}
