// Package memory provides an in-process notification publisher for tests
// and local runs.
package memory

import (
	"context"
	"sync"
)

type Publisher struct {
	mu       sync.Mutex
	messages []string
	// Err, when set, is returned by every Publish call.
	Err error
}

func New() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Publish(_ context.Context, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.messages = append(p.messages, message)
	return nil
}

// Messages returns every message published so far, oldest first.
func (p *Publisher) Messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.messages...)
}
