package storage

import "time"

// Event records one completed conversation turn for offline review.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	ChatID    int64     `json:"chat_id"`
	Question  string    `json:"question"`
	Keyword   string    `json:"keyword,omitempty"`
	Response  string    `json:"response"`
}

type Recorder interface {
	AppendTurn(event Event) error
	LoadTurns() ([]Event, error)
}
