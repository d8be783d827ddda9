package queue

import (
	"context"
	"fmt"
	"sync"

	"ai-knowledgebase-be/internal/storage"
)

// Handler executes one command. Errors wrapping storage.ErrValidation
// fail the job immediately; anything else is retried.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Registry maps namespace/command pairs to handlers. Registration
// happens once at startup; lookups are concurrent.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func handlerKey(namespace, command string) string {
	return namespace + "/" + command
}

func (r *Registry) Register(namespace, command string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[handlerKey(namespace, command)] = h
}

// Lookup returns the handler, or a validation error when the pair is
// unknown so the job fails permanently instead of retrying forever.
func (r *Registry) Lookup(namespace, command string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[handlerKey(namespace, command)]
	if !ok {
		return nil, fmt.Errorf("%w: no handler for %s/%s", storage.ErrValidation, namespace, command)
	}
	return h, nil
}
