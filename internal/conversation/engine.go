package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"eegchat/internal/history"
	"eegchat/internal/knowledge"
	"eegchat/internal/llm"
)

// Fixed sentences spoken without consulting the generation model.
const (
	FallbackSentence     = "There was an error, please try again."
	ApologySentence      = "I am sorry, that is not what I meant."
	CannotAnswerSentence = "I cannot answer this question."
	FarewellSentence     = "Thank you, goodbye."
)

const maxAttempts = 4

const defaultFinishDelay = 5 * time.Second

// ErrBusy is returned when a request for the same stage is already in
// flight. Callers are expected to drop the new action, not queue it.
var ErrBusy = errors.New("a request for this stage is already in flight")

type State int

const (
	StateIdle State = iota
	StateAwaitingTranscript
	StateOptionsReady
	StateResponseSelected
	StateSpeechReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingTranscript:
		return "AwaitingTranscript"
	case StateOptionsReady:
		return "OptionsReady"
	case StateResponseSelected:
		return "ResponseSelected"
	case StateSpeechReady:
		return "SpeechReady"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Command string

const (
	CommandMore        Command = "More"
	CommandCorrection  Command = "Correction"
	CommandNone        Command = "None"
	CommandFinished    Command = "Finished"
	CommandChangeTopic Command = "Change topic"
)

// TurnID identifies which user action a stage result belongs to. There is no
// transport cancellation: a result whose turn no longer matches CurrentTurn
// is stale and must be discarded by the caller.
type TurnID uint64

// ResponseOptions is the transient outcome of one keyword generation pass,
// superseded wholesale by the next.
type ResponseOptions struct {
	Turn     TurnID
	Options  []string
	Category string
}

// Reply is a finished sentence ready for speech synthesis.
type Reply struct {
	Turn TurnID
	Text string
}

// KnowledgeStore is the engine's view of the persisted knowledge base.
type KnowledgeStore interface {
	Load(forceDefault bool) knowledge.Base
}

// Engine owns one conversation: its history log, its pipeline state, and the
// clients for the two generation stages. It is the only writer of the log.
type Engine struct {
	keywords  llm.Client
	responder llm.Client
	store     KnowledgeStore
	log       *history.Log

	mu       sync.Mutex
	state    State
	question string
	options  []string

	turn           atomic.Uint64
	waitingOptions atomic.Bool
	waitingSpeech  atomic.Bool

	finishDelay time.Duration
}

func NewEngine(keywordClient, responseClient llm.Client, store KnowledgeStore) *Engine {
	return &Engine{
		keywords:    keywordClient,
		responder:   responseClient,
		store:       store,
		log:         history.NewLog(),
		state:       StateIdle,
		finishDelay: defaultFinishDelay,
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) nextTurn() TurnID {
	return TurnID(e.turn.Add(1))
}

func (e *Engine) CurrentTurn() TurnID {
	return TurnID(e.turn.Load())
}

// Waiting reports whether any generation request is in flight. Every failure
// path must leave this false again, so the user is never stuck behind a
// spinning indicator.
func (e *Engine) Waiting() bool {
	return e.waitingOptions.Load() || e.waitingSpeech.Load()
}

// History returns a read-only copy of the conversation so far.
func (e *Engine) History() []history.Message {
	return e.log.Snapshot()
}

// BeginRecording marks the start of a new recording. It supersedes whatever
// stage the conversation was in.
func (e *Engine) BeginRecording() {
	e.nextTurn()
	e.setState(StateAwaitingTranscript)
}

// PlaybackDone returns the conversation to AwaitingTranscript once the
// synthesized speech has been played.
func (e *Engine) PlaybackDone() {
	e.mu.Lock()
	if e.state == StateSpeechReady {
		e.state = StateAwaitingTranscript
	}
	e.mu.Unlock()
}

// ResetConversation clears all turns and returns to AwaitingTranscript.
func (e *Engine) ResetConversation() {
	e.log.Reset()
	e.setState(StateAwaitingTranscript)
}

// Dispatch handles the sentence-producing service commands. More is served
// by Regenerate instead, since it produces options rather than a sentence.
func (e *Engine) Dispatch(ctx context.Context, cmd Command) (Reply, error) {
	e.mu.Lock()
	if e.state != StateOptionsReady && e.state != StateResponseSelected {
		e.mu.Unlock()
		return Reply{}, fmt.Errorf("command %q not available in state %s", cmd, e.state)
	}
	question := e.question
	e.mu.Unlock()

	turn := e.nextTurn()

	switch cmd {
	case CommandCorrection:
		e.log.Append(history.RoleUser, ApologySentence)
		e.setState(StateSpeechReady)
		return Reply{Turn: turn, Text: ApologySentence}, nil

	case CommandNone:
		e.log.Append(history.RoleUser, CannotAnswerSentence)
		e.setState(StateSpeechReady)
		return Reply{Turn: turn, Text: CannotAnswerSentence}, nil

	case CommandFinished:
		e.setState(StateSpeechReady)
		// Give the farewell time to play before wiping the conversation.
		time.AfterFunc(e.finishDelay, func() {
			e.log.Reset()
			e.setState(StateAwaitingTranscript)
		})
		return Reply{Turn: turn, Text: FarewellSentence}, nil

	case CommandChangeTopic:
		if !e.waitingSpeech.CompareAndSwap(false, true) {
			return Reply{}, ErrBusy
		}
		defer e.waitingSpeech.Store(false)
		text, err := e.changeTopic(ctx, question)
		if err != nil {
			log.Printf("falling back to fixed sentence: %v", err)
			e.setState(StateSpeechReady)
			return Reply{Turn: turn, Text: FallbackSentence}, err
		}
		e.log.Append(history.RoleUser, text)
		e.setState(StateSpeechReady)
		return Reply{Turn: turn, Text: text}, nil

	default:
		return Reply{}, fmt.Errorf("unknown service command: %q", cmd)
	}
}
