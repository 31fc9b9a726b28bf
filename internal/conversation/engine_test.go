package conversation

import (
	"context"
	"testing"
	"time"
)

func TestDispatchCorrectionBypassesModel(t *testing.T) {
	resp := &scriptedClient{steps: []scriptStep{{content: "should never be used"}}}
	e := optionsReadyEngine(t, resp)

	reply, err := e.Dispatch(context.Background(), CommandCorrection)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text != ApologySentence {
		t.Fatalf("unexpected sentence: %q", reply.Text)
	}
	if resp.callCount() != 0 {
		t.Fatalf("correction must bypass the generation model")
	}
	if e.State() != StateSpeechReady {
		t.Fatalf("unexpected state: %s", e.State())
	}
}

func TestDispatchNoneBypassesModel(t *testing.T) {
	resp := &scriptedClient{steps: []scriptStep{{content: "should never be used"}}}
	e := optionsReadyEngine(t, resp)

	reply, err := e.Dispatch(context.Background(), CommandNone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text != CannotAnswerSentence {
		t.Fatalf("unexpected sentence: %q", reply.Text)
	}
	if resp.callCount() != 0 {
		t.Fatalf("none must bypass the generation model")
	}
}

func TestDispatchFinishedClearsHistoryAfterDelay(t *testing.T) {
	resp := &scriptedClient{steps: []scriptStep{{content: "x"}}}
	e := optionsReadyEngine(t, resp)
	e.finishDelay = 10 * time.Millisecond

	reply, err := e.Dispatch(context.Background(), CommandFinished)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text != FarewellSentence {
		t.Fatalf("unexpected farewell: %q", reply.Text)
	}

	deadline := time.Now().Add(time.Second)
	for len(e.History()) != 0 || e.State() != StateAwaitingTranscript {
		if time.Now().After(deadline) {
			t.Fatalf("history not cleared within the delay window: %d turns, state %s",
				len(e.History()), e.State())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDispatchRejectedOutsideOptionStates(t *testing.T) {
	e := newTestEngine(
		&scriptedClient{steps: []scriptStep{{content: "x"}}},
		&scriptedClient{steps: []scriptStep{{content: "x"}}},
		nil,
	)
	if _, err := e.Dispatch(context.Background(), CommandFinished); err == nil {
		t.Fatalf("expected state error in Idle")
	}
}

func TestTurnSupersession(t *testing.T) {
	kw := &scriptedClient{steps: []scriptStep{
		{content: "Answers: Yes, No\nCategory: YESNO"},
	}}
	e := newTestEngine(kw, &scriptedClient{steps: []scriptStep{{content: "x"}}}, nil)

	first, err := e.GenerateOptions(context.Background(), "Are you hungry?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Turn != e.CurrentTurn() {
		t.Fatalf("fresh result already stale")
	}

	second, err := e.GenerateOptions(context.Background(), "Are you thirsty?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Turn == e.CurrentTurn() {
		t.Fatalf("turn id did not advance")
	}
	if second.Turn != e.CurrentTurn() {
		t.Fatalf("newest result must be current")
	}
}

func TestPlaybackDoneReturnsToAwaitingTranscript(t *testing.T) {
	resp := &scriptedClient{steps: []scriptStep{{content: "I would like pizza."}}}
	e := optionsReadyEngine(t, resp)

	if _, err := e.SelectKeyword(context.Background(), "Pizza"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e.PlaybackDone()
	if e.State() != StateAwaitingTranscript {
		t.Fatalf("unexpected state after playback: %s", e.State())
	}

	// PlaybackDone outside SpeechReady is a no-op.
	e.setState(StateOptionsReady)
	e.PlaybackDone()
	if e.State() != StateOptionsReady {
		t.Fatalf("playback done must not fire outside SpeechReady")
	}
}

func TestResetConversation(t *testing.T) {
	resp := &scriptedClient{steps: []scriptStep{{content: "I would like pizza."}}}
	e := optionsReadyEngine(t, resp)
	if _, err := e.SelectKeyword(context.Background(), "Pizza"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e.ResetConversation()
	if len(e.History()) != 0 {
		t.Fatalf("reset left history behind")
	}
	if e.State() != StateAwaitingTranscript {
		t.Fatalf("unexpected state after reset: %s", e.State())
	}
}
