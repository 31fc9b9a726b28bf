package conversation

import (
	"context"
	"fmt"
	"log"
	"strings"

	"eegchat/internal/history"
	"eegchat/internal/llm"
)

const responseSystemPrompt = "You are a helpful assistant helping a speech-impaired person to generate a full sentence based on a selected keyword. When generating responses, always adopt the perspective of the person who chose the response word, not the AI's perspective."

const responseInstruction = "Given the question and the selected word, generate a full, coherent response as if you are the person responding. Incorporate the selected word and appropriately address the question."

const changeTopicPrompt = "You are a helpful assistant helping a speech-impaired person to generate a full sentence based on a selected keyword. When generating responses, always adopt the perspective of the person who chose the response word, not the AI's perspective. The user has asked to change the topic. You should generate a complete sentence that indicates the intention to change the topic. Do not suggest any new topics, just show the wish to change it. Here is the original question you need to mention:"

// Sentinel some completion models append to mark the end of output.
const endSentinel = " END"

var responseSampling = llm.Options{Temperature: 0.3, MaxTokens: 150}

// renderDialogue maps Assistant turns to Question: lines and User turns to
// Answer: lines; anything else is dropped.
func renderDialogue(msgs []history.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case history.RoleAssistant:
			b.WriteString("Question: ")
		case history.RoleUser:
			b.WriteString("Answer: ")
		default:
			continue
		}
		b.WriteString(m.Text)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// buildResponseMessages assembles the full-response request. The current
// question is passed explicitly, so a trailing history turn holding it is
// excluded from the rendered dialogue.
func buildResponseMessages(msgs []history.Message, question, keyword string) []llm.Message {
	if n := len(msgs); n > 0 && msgs[n-1].Role == history.RoleAssistant && msgs[n-1].Text == question {
		msgs = msgs[:n-1]
	}
	out := []llm.Message{{Role: "system", Content: responseSystemPrompt}}
	if dialogue := renderDialogue(msgs); dialogue != "" {
		out = append(out, llm.Message{Role: "user", Content: dialogue})
	}
	return append(out,
		llm.Message{Role: "user", Content: "Question: " + question},
		llm.Message{Role: "user", Content: "Selected word: " + keyword},
		llm.Message{Role: "system", Content: responseInstruction},
	)
}

func (e *Engine) generateResponse(ctx context.Context, question, keyword string) (string, error) {
	msgs := buildResponseMessages(e.log.Snapshot(), question, keyword)
	resp, err := e.responder.Generate(ctx, msgs, responseSampling)
	if err != nil {
		return "", fmt.Errorf("full response generation failed: %w", err)
	}
	text := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(resp.Content), endSentinel))
	if text == "" {
		return "", fmt.Errorf("full response generation returned empty completion")
	}
	return text, nil
}

// SelectKeyword expands the picked keyword into a complete first-person
// sentence. This stage never retries: on failure the fixed fallback sentence
// is returned alongside the error, so the caller can still speak something
// sensible, and history is left untouched.
func (e *Engine) SelectKeyword(ctx context.Context, keyword string) (Reply, error) {
	e.mu.Lock()
	if e.state != StateOptionsReady {
		e.mu.Unlock()
		return Reply{}, fmt.Errorf("no keyword to select in state %s", e.state)
	}
	question := e.question
	e.state = StateResponseSelected
	e.mu.Unlock()

	if !e.waitingSpeech.CompareAndSwap(false, true) {
		return Reply{}, ErrBusy
	}
	defer e.waitingSpeech.Store(false)

	turn := e.nextTurn()

	text, err := e.generateResponse(ctx, question, keyword)
	if err != nil {
		log.Printf("falling back to fixed sentence: %v", err)
		e.setState(StateSpeechReady)
		return Reply{Turn: turn, Text: FallbackSentence}, err
	}

	e.log.Append(history.RoleUser, text)
	e.setState(StateSpeechReady)
	return Reply{Turn: turn, Text: text}, nil
}

// changeTopic generates the fixed-intent acknowledgment sentence. It must
// reference the original question but never propose a new topic.
func (e *Engine) changeTopic(ctx context.Context, question string) (string, error) {
	msgs := []llm.Message{
		{Role: "system", Content: changeTopicPrompt},
		{Role: "user", Content: question},
	}
	resp, err := e.responder.Generate(ctx, msgs, responseSampling)
	if err != nil {
		return "", fmt.Errorf("change topic generation failed: %w", err)
	}
	text := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(resp.Content), endSentinel))
	if text == "" {
		return "", fmt.Errorf("change topic generation returned empty completion")
	}
	return text, nil
}
