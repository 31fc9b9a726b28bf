package llm

import "context"

type Message struct {
	Role    string
	Content string
}

// Options carries per-call sampling parameters. Keyword generation runs hot
// so the answers cover different viewpoints; full-response generation runs
// cool so the committed sentence stays coherent.
type Options struct {
	Temperature float32
	MaxTokens   int
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Client interface {
	Generate(ctx context.Context, messages []Message, opts Options) (Response, error)
}
