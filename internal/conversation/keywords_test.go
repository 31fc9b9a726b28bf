package conversation

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"eegchat/internal/history"
	"eegchat/internal/knowledge"
)

func TestParseKeywordResponse(t *testing.T) {
	opts, category, ok := parseKeywordResponse("Answers: Good, Bad, Great, Terrible, Okay, Tired\nCategory: ADJECTIVE")
	if !ok {
		t.Fatalf("valid response rejected")
	}
	want := []string{"Good", "Bad", "Great", "Terrible", "Okay", "Tired"}
	if !reflect.DeepEqual(opts, want) {
		t.Fatalf("unexpected options: %v", opts)
	}
	if category != "ADJECTIVE" {
		t.Fatalf("unexpected category: %q", category)
	}
}

func TestParseKeywordResponseTrimsAndCaps(t *testing.T) {
	opts, category, ok := parseKeywordResponse("  Answers:  Yes ,No , Maybe, A, B, C, D, E \n Category:  YESNO  \n")
	if !ok {
		t.Fatalf("valid response rejected")
	}
	if len(opts) != 6 {
		t.Fatalf("options not capped at 6: %v", opts)
	}
	if opts[0] != "Yes" || opts[1] != "No" {
		t.Fatalf("options not trimmed: %v", opts)
	}
	if category != "YESNO" {
		t.Fatalf("category not trimmed: %q", category)
	}
}

func TestParseKeywordResponseMalformed(t *testing.T) {
	for _, s := range []string{
		"",
		"Good, Bad, Great",
		"Answers: Good, Bad, Great",
		"Category: ADJECTIVE",
		"Answers: Good, Bad\nCategory: ADJECTIVE\nExtra commentary",
		"Answers: ,\nCategory: ADJECTIVE",
	} {
		if _, _, ok := parseKeywordResponse(s); ok {
			t.Fatalf("malformed response accepted: %q", s)
		}
	}
}

func TestBuildKeywordMessagesRendersHistoryInOrder(t *testing.T) {
	hist := []history.Message{
		{Role: history.RoleAssistant, Text: "How are you?"},
		{Role: history.RoleUser, Text: "I am good"},
	}
	msgs := buildKeywordMessages(hist, "What's for dinner?")
	if len(msgs) != 3 {
		t.Fatalf("unexpected message count: %d", len(msgs))
	}
	block := msgs[1].Content
	want := "Conversation history begin\nAssistant: How are you?\nUser: I am good\nConversation history end"
	if block != want {
		t.Fatalf("unexpected history block:\n%q\nwant:\n%q", block, want)
	}
	if msgs[2].Role != "user" || msgs[2].Content != "What's for dinner?" {
		t.Fatalf("transcript is not the final user turn: %+v", msgs[2])
	}
}

func TestBuildKeywordMessagesOmitsEmptyHistory(t *testing.T) {
	msgs := buildKeywordMessages(nil, "How are you?")
	if len(msgs) != 2 {
		t.Fatalf("empty history should render no block: %d messages", len(msgs))
	}
}

func TestGenerateOptionsRetriesOnceOnMalformed(t *testing.T) {
	kw := &scriptedClient{steps: []scriptStep{
		{content: "I refuse to follow formats."},
		{content: "Answers: Yes, No\nCategory: YESNO"},
	}}
	e := newTestEngine(kw, &scriptedClient{steps: []scriptStep{{content: "x"}}}, nil)

	res, err := e.GenerateOptions(context.Background(), "Are you hungry?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kw.callCount() != 2 {
		t.Fatalf("expected exactly one additional attempt, got %d calls", kw.callCount())
	}
	if !reflect.DeepEqual(res.Options, []string{"Yes", "No"}) {
		t.Fatalf("unexpected options: %v", res.Options)
	}
	if e.State() != StateOptionsReady {
		t.Fatalf("unexpected state: %s", e.State())
	}
}

func TestGenerateOptionsExhaustsRetries(t *testing.T) {
	kw := &scriptedClient{steps: []scriptStep{{content: "no category line here"}}}
	e := newTestEngine(kw, &scriptedClient{steps: []scriptStep{{content: "x"}}}, nil)

	res, err := e.GenerateOptions(context.Background(), "Are you hungry?")
	if err == nil {
		t.Fatalf("expected terminal error")
	}
	if kw.callCount() != maxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAttempts, kw.callCount())
	}
	if len(res.Options) != 0 {
		t.Fatalf("expected empty options, got %v", res.Options)
	}
	if e.Waiting() {
		t.Fatalf("waiting flag stuck after exhausted retries")
	}
	if got := len(e.History()); got != 0 {
		t.Fatalf("failed generation polluted history: %d turns", got)
	}
}

func TestGenerateOptionsRetriesOnTransportFailure(t *testing.T) {
	kw := &scriptedClient{steps: []scriptStep{
		{err: errors.New("connection reset")},
		{content: "Answers: Monday, Friday\nCategory: DAY"},
	}}
	e := newTestEngine(kw, &scriptedClient{steps: []scriptStep{{content: "x"}}}, nil)

	res, err := e.GenerateOptions(context.Background(), "When should we meet?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Category != "DAY" {
		t.Fatalf("unexpected category: %q", res.Category)
	}
}

func TestKnowledgeBaseOverridesGeneratedOptions(t *testing.T) {
	base := knowledge.Base{
		"NAME": {"Rose", "Mary", "Miriam", "Joanna", "Ada", "Grace", "Edith"},
	}
	kw := &scriptedClient{steps: []scriptStep{
		{content: "Answers: Alice, Bob\nCategory: NAME"},
	}}
	e := newTestEngine(kw, &scriptedClient{steps: []scriptStep{{content: "x"}}}, base)

	res, err := e.GenerateOptions(context.Background(), "What is your mother's name?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Rose", "Mary", "Miriam", "Joanna", "Ada", "Grace"}
	if !reflect.DeepEqual(res.Options, want) {
		t.Fatalf("knowledge base did not override options: %v", res.Options)
	}
	if res.Category != "NAME" {
		t.Fatalf("unexpected category: %q", res.Category)
	}
}

func TestEmptyKnowledgeBaseCategoryKeepsModelOptions(t *testing.T) {
	base := knowledge.Base{"NAME": {}}
	kw := &scriptedClient{steps: []scriptStep{
		{content: "Answers: Alice, Bob\nCategory: NAME"},
	}}
	e := newTestEngine(kw, &scriptedClient{steps: []scriptStep{{content: "x"}}}, base)

	res, err := e.GenerateOptions(context.Background(), "What is your mother's name?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.Options, []string{"Alice", "Bob"}) {
		t.Fatalf("empty canned list should not override: %v", res.Options)
	}
}

func TestRegenerateLeavesHistoryLengthUnchanged(t *testing.T) {
	kw := &scriptedClient{steps: []scriptStep{
		{content: "Answers: Yes, No\nCategory: YESNO"},
		{content: "Answers: Definitely, Never\nCategory: YESNO"},
	}}
	e := newTestEngine(kw, &scriptedClient{steps: []scriptStep{{content: "x"}}}, nil)

	if _, err := e.GenerateOptions(context.Background(), "Are you hungry?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := len(e.History())

	res, err := e.Regenerate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(e.History()); got != before {
		t.Fatalf("regenerate changed history length: %d -> %d", before, got)
	}
	if !reflect.DeepEqual(res.Options, []string{"Definitely", "Never"}) {
		t.Fatalf("unexpected regenerated options: %v", res.Options)
	}

	// The synthetic framing turn must have been visible to the model.
	req := kw.request(1)
	var framed bool
	for _, m := range req {
		if strings.Contains(m.Content, "Previously suggested options were: Yes, No") {
			framed = true
		}
	}
	if !framed {
		t.Fatalf("regenerate request did not carry the previous options: %+v", req)
	}
}

func TestRegenerateFailurePopsScratchTurn(t *testing.T) {
	kw := &scriptedClient{steps: []scriptStep{
		{content: "Answers: Yes, No\nCategory: YESNO"},
		{err: errors.New("boom")},
	}}
	e := newTestEngine(kw, &scriptedClient{steps: []scriptStep{{content: "x"}}}, nil)

	if _, err := e.GenerateOptions(context.Background(), "Are you hungry?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := len(e.History())

	if _, err := e.Regenerate(context.Background()); err == nil {
		t.Fatalf("expected terminal error")
	}
	if got := len(e.History()); got != before {
		t.Fatalf("failed regenerate leaked the scratch turn: %d -> %d", before, got)
	}
	if e.Waiting() {
		t.Fatalf("waiting flag stuck after failed regenerate")
	}
}

func TestGenerateOptionsBusyGate(t *testing.T) {
	gate := make(chan struct{})
	kw := &scriptedClient{
		steps: []scriptStep{{content: "Answers: Yes, No\nCategory: YESNO"}},
		gate:  gate,
	}
	e := newTestEngine(kw, &scriptedClient{steps: []scriptStep{{content: "x"}}}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = e.GenerateOptions(context.Background(), "Are you hungry?")
	}()

	deadline := time.Now().Add(time.Second)
	for !e.Waiting() {
		if time.Now().After(deadline) {
			t.Fatalf("first request never started")
		}
		time.Sleep(time.Millisecond)
	}
	if _, err := e.GenerateOptions(context.Background(), "Second question"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy while a request is in flight, got %v", err)
	}

	close(gate)
	<-done
	if e.Waiting() {
		t.Fatalf("waiting flag stuck after completion")
	}
}
