package helpers

import (
	"context"
	"sync"

	"github.com/xiaot623/hati/internal/adapter/llm"
)

// CompleteFunc answers one completion call.
type CompleteFunc func(messages []llm.ChatMessage, opts llm.CompletionOptions) (string, error)

// FakeCompleter routes JSON-mode calls and free-text calls to separate
// handlers and records every call.
type FakeCompleter struct {
	JSON CompleteFunc
	Text CompleteFunc

	mu    sync.Mutex
	calls []llm.CompletionOptions
}

func (f *FakeCompleter) Complete(ctx context.Context, messages []llm.ChatMessage, opts llm.CompletionOptions) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.mu.Unlock()

	handler := f.Text
	if opts.JSONMode {
		handler = f.JSON
	}
	if handler == nil {
		return "", &llm.CompletionError{Message: "no handler configured"}
	}
	return handler(messages, opts)
}

// Calls returns the options of every call made so far.
func (f *FakeCompleter) Calls() []llm.CompletionOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.CompletionOptions(nil), f.calls...)
}

// Reply returns a handler that always answers content.
func Reply(content string) CompleteFunc {
	return func([]llm.ChatMessage, llm.CompletionOptions) (string, error) {
		return content, nil
	}
}

// Fail returns a handler that always fails with a completion error.
func Fail(message string) CompleteFunc {
	return func([]llm.ChatMessage, llm.CompletionOptions) (string, error) {
		return "", &llm.CompletionError{StatusCode: 503, Message: message}
	}
}
