package conversation

import (
	"context"
	"sync"

	"eegchat/internal/knowledge"
	"eegchat/internal/llm"
)

type scriptStep struct {
	content string
	err     error
}

// scriptedClient replays a fixed sequence of responses, repeating the last
// step once the script is exhausted, and records every request it saw.
type scriptedClient struct {
	mu    sync.Mutex
	steps []scriptStep
	calls int
	seen  [][]llm.Message
	opts  []llm.Options
	gate  chan struct{}
}

func (c *scriptedClient) Generate(_ context.Context, msgs []llm.Message, opts llm.Options) (llm.Response, error) {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	c.calls++
	c.seen = append(c.seen, msgs)
	c.opts = append(c.opts, opts)
	if i >= len(c.steps) {
		i = len(c.steps) - 1
	}
	step := c.steps[i]
	if step.err != nil {
		return llm.Response{}, step.err
	}
	return llm.Response{Content: step.content}, nil
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *scriptedClient) request(i int) []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[i]
}

type fakeKnowledge struct {
	base knowledge.Base
}

func (f fakeKnowledge) Load(bool) knowledge.Base {
	return f.base
}

func newTestEngine(kw, resp *scriptedClient, base knowledge.Base) *Engine {
	if base == nil {
		base = knowledge.Base{}
	}
	return NewEngine(kw, resp, fakeKnowledge{base: base})
}
