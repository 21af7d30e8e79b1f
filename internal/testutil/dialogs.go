package testutil

import (
	"context"
	"sync"
)

// RecordingAlerter records every alert instead of showing it.
type RecordingAlerter struct {
	mu       sync.Mutex
	messages []string
}

func (a *RecordingAlerter) Alert(ctx context.Context, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
}

// Messages returns the alerts raised so far.
func (a *RecordingAlerter) Messages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.messages...)
}

// StaticConfirmer answers every confirmation with Answer and counts prompts.
type StaticConfirmer struct {
	Answer bool

	mu      sync.Mutex
	prompts []string
}

func (c *StaticConfirmer) Confirm(ctx context.Context, message string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, message)
	return c.Answer
}

// Prompts returns the questions asked so far.
func (c *StaticConfirmer) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}
