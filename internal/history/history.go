package history

import "sync"

const (
	RoleAssistant = "Assistant"
	RoleUser      = "User"
)

// Message is one conversation turn. Assistant turns hold transcribed
// questions, User turns hold the sentences spoken back for the user.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Log is an append-only, order-preserving record of one conversation.
// Entries are immutable once appended; the only wholesale mutation is Reset.
type Log struct {
	mu   sync.RWMutex
	msgs []Message
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Append(role, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, Message{Role: role, Text: text})
}

// Push adds a scratch turn that the caller promises to Pop once the request
// it frames has resolved, success or failure. It exists so regeneration
// framing never pollutes the user-visible history.
func (l *Log) Push(role, text string) {
	l.Append(role, text)
}

// Pop removes the most recent turn. It is a no-op on an empty log.
func (l *Log) Pop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.msgs) > 0 {
		l.msgs = l.msgs[:len(l.msgs)-1]
	}
}

// Snapshot returns a copy of the log; mutating the returned slice does not
// affect internal state.
func (l *Log) Snapshot() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.msgs)
}

func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = nil
}
