package conversation

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"eegchat/internal/history"
	"eegchat/internal/llm"
)

// keywordPrompt instructs the model to answer in the strict two-line shape
// parseKeywordResponse expects.
const keywordPrompt = `Generate up to 6 keywords that might help a speech-impaired person respond to a given question. The keywords should be as short as possible, a single word or a short phrase, and each one should describe one possible answer. Provide answers which are as different as possible and try to include every viewpoint in the answers. For example if one of the answers is yes, also include no, and when one of the answers is good, also include bad. When the question is asking for a day or time, be specific in your suggested answers. In addition to suggesting answers, also provide the category of what the question is asking for. For example, if the question is asking for the name of a person, the category should be NAME. If the question is asking for an address or street name, the category should be ADDRESS. Make the category as simple as possible, for instance: CAR for the question "What car do you drive?" instead of VEHICLE BRAND.

ALWAYS provide the answers as a list of single words or short phrases, not numerated and separated by comma. Here is an example of a response: "Answers: Good, Bad, Great, Terrible, Okay, Tired
Category: ADJECTIVE". This format of the response has to be like this all the times without exceptions. Take the conversation history into account, if provided. If no question is provided, just generate universal keywords like "I see" or "Interesting".`

const (
	historyBegin = "Conversation history begin"
	historyEnd   = "Conversation history end"
)

const maxOptions = 6

var keywordSampling = llm.Options{Temperature: 1.0, MaxTokens: 100}

// keywordResponseRe accepts exactly an Answers: line followed by a
// Category: line; any other shape is a parse failure.
var keywordResponseRe = regexp.MustCompile(`^Answers:[ \t]*(.+)\n[ \t]*Category:[ \t]*(.+)$`)

// parseKeywordResponse extracts the comma-split, trimmed option list and the
// trimmed category label from a model response.
func parseKeywordResponse(s string) ([]string, string, bool) {
	m := keywordResponseRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, "", false
	}
	var opts []string
	for _, part := range strings.Split(m[1], ",") {
		if p := strings.TrimSpace(part); p != "" {
			opts = append(opts, p)
		}
	}
	if len(opts) == 0 {
		return nil, "", false
	}
	if len(opts) > maxOptions {
		opts = opts[:maxOptions]
	}
	return opts, strings.TrimSpace(m[2]), true
}

// renderHistory produces the ordered role-tagged turn block bracketed by
// begin/end markers. Empty history renders as an empty string.
func renderHistory(msgs []history.Message) string {
	if len(msgs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(historyBegin)
	b.WriteByte('\n')
	for _, m := range msgs {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Text)
		b.WriteByte('\n')
	}
	b.WriteString(historyEnd)
	return b.String()
}

// buildKeywordMessages assembles the keyword request: instruction prompt,
// rendered history, and the new transcript as the final user turn.
func buildKeywordMessages(msgs []history.Message, transcript string) []llm.Message {
	out := []llm.Message{{Role: "system", Content: keywordPrompt}}
	if block := renderHistory(msgs); block != "" {
		out = append(out, llm.Message{Role: "user", Content: block})
	}
	return append(out, llm.Message{Role: "user", Content: transcript})
}

// generateKeywords runs the bounded retry loop around the keyword model and
// applies the knowledge-base override on success. Parse failures and
// transport failures count against the same attempt budget.
func (e *Engine) generateKeywords(ctx context.Context, hist []history.Message, transcript string) ([]string, string, error) {
	msgs := buildKeywordMessages(hist, transcript)
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := e.keywords.Generate(ctx, msgs, keywordSampling)
		if err != nil {
			lastErr = err
			log.Printf("keyword generation attempt %d/%d failed: %v", attempt, maxAttempts, err)
			continue
		}
		opts, category, ok := parseKeywordResponse(resp.Content)
		if !ok {
			lastErr = fmt.Errorf("malformed keyword response: %q", resp.Content)
			log.Printf("keyword generation attempt %d/%d returned malformed response", attempt, maxAttempts)
			continue
		}
		if canned, found := e.store.Load(false).Lookup(category); found && len(canned) > 0 {
			n := len(canned)
			if n > maxOptions {
				n = maxOptions
			}
			opts = make([]string, n)
			copy(opts, canned[:n])
		}
		return opts, category, nil
	}
	return nil, "", fmt.Errorf("no keyword response after %d attempts: %w", maxAttempts, lastErr)
}

// GenerateOptions turns a transcript into response options plus a category.
// On success the transcript is appended to history as the Assistant turn; a
// terminal failure leaves history untouched and the options empty.
func (e *Engine) GenerateOptions(ctx context.Context, transcript string) (ResponseOptions, error) {
	if !e.waitingOptions.CompareAndSwap(false, true) {
		return ResponseOptions{}, ErrBusy
	}
	defer e.waitingOptions.Store(false)

	turn := e.nextTurn()
	e.setState(StateAwaitingTranscript)

	opts, category, err := e.generateKeywords(ctx, e.log.Snapshot(), transcript)
	if err != nil {
		return ResponseOptions{Turn: turn}, err
	}

	e.mu.Lock()
	e.question = transcript
	e.options = opts
	e.state = StateOptionsReady
	e.mu.Unlock()
	e.log.Append(history.RoleAssistant, transcript)

	return ResponseOptions{Turn: turn, Options: opts, Category: category}, nil
}

// Regenerate serves the "More" command: a synthetic turn framing the
// previous options is pushed onto history for the duration of the call and
// always popped afterwards, so user-visible history length is unchanged.
func (e *Engine) Regenerate(ctx context.Context) (ResponseOptions, error) {
	e.mu.Lock()
	if e.state != StateOptionsReady {
		e.mu.Unlock()
		return ResponseOptions{}, fmt.Errorf("no options to regenerate in state %s", e.state)
	}
	question := e.question
	previous := strings.Join(e.options, ", ")
	e.mu.Unlock()

	if !e.waitingOptions.CompareAndSwap(false, true) {
		return ResponseOptions{}, ErrBusy
	}
	defer e.waitingOptions.Store(false)

	turn := e.nextTurn()

	e.log.Push(history.RoleUser, "Previously suggested options were: "+previous+". Please provide different options.")
	defer e.log.Pop()

	opts, category, err := e.generateKeywords(ctx, e.log.Snapshot(), question)
	if err != nil {
		return ResponseOptions{Turn: turn}, err
	}

	e.mu.Lock()
	e.options = opts
	e.state = StateOptionsReady
	e.mu.Unlock()

	return ResponseOptions{Turn: turn, Options: opts, Category: category}, nil
}
