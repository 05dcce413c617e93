// Package llm provides an abstraction for the completion service.
package llm

import (
	"context"
	"fmt"
)

// Completer turns an ordered list of chat messages into generated text.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error)
}

// ModelLister is implemented by backends that can report their models.
// It doubles as a reachability probe.
type ModelLister interface {
	ListModels(ctx context.Context) ([]Model, error)
}

// CompletionOptions tunes a single completion call.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

// CompletionError reports a transport, auth or quota failure of the
// completion backend. It is never retried.
type CompletionError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *CompletionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion failed [%d]: %s", e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("completion failed: %s: %v", e.Message, e.Err)
	}
	return "completion failed: " + e.Message
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Ensure Client and MockClient implement the interfaces.
var (
	_ Completer   = (*Client)(nil)
	_ ModelLister = (*Client)(nil)
	_ Completer   = (*MockClient)(nil)
	_ ModelLister = (*MockClient)(nil)
)
