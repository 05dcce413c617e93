package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/hati/internal/adapter/llm"
	"github.com/xiaot623/hati/internal/domain"
)

const summaryPrompt = `Kamu merangkum percakapan antara user dan Hati, teman curhat yang empatik.
Tulis ringkasan singkat (maksimal 4 kalimat) yang menangkap:
- tema emosional dan mood user,
- topik yang dibahas,
- konteks penting untuk percakapan berikutnya.
Jangan menambahkan informasi yang tidak ada di percakapan.`

// LLMSummarizer summarizes turns with one completion call.
type LLMSummarizer struct {
	completer llm.Completer
}

// NewLLMSummarizer creates a summarizer backed by completer.
func NewLLMSummarizer(completer llm.Completer) *LLMSummarizer {
	return &LLMSummarizer{completer: completer}
}

// Summarize implements Summarizer.
func (s *LLMSummarizer) Summarize(ctx context.Context, turns []domain.Turn) (string, error) {
	var b strings.Builder
	for _, t := range turns {
		if t.Mood != "" {
			fmt.Fprintf(&b, "User (%s): %s\n", t.Mood, t.UserMessage)
		} else {
			fmt.Fprintf(&b, "User: %s\n", t.UserMessage)
		}
		fmt.Fprintf(&b, "Hati: %s\n", t.Response)
	}

	out, err := s.completer.Complete(ctx, []llm.ChatMessage{
		llm.System(summaryPrompt),
		llm.User(b.String()),
	}, llm.CompletionOptions{Temperature: 0.3, MaxTokens: 300})
	if err != nil {
		return "", fmt.Errorf("summarize %d turns: %w", len(turns), err)
	}
	return strings.TrimSpace(out), nil
}
