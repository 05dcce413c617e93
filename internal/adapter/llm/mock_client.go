package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MockClient is an offline Completer used in mock mode and tests.
// Delegation prompts are answered with keyword-based routing JSON,
// other JSON prompts with an empty-but-valid object.
type MockClient struct{}

// NewMockClient creates a new mock completion client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

var mockRoutes = []struct {
	agent    string
	keywords []string
}{
	{"music", []string{"musik", "music", "lagu", "song", "playlist"}},
	{"entertainment", []string{"jokes", "meme", "film", "movie", "nonton", "gif", "lucu"}},
	{"relaxation", []string{"jalan-jalan", "tempat", "lokasi", "wisata", "place"}},
}

var mockMoods = []struct {
	mood  string
	words []string
}{
	{"sad", []string{"sedih", "sad", "galau", "down"}},
	{"happy", []string{"senang", "happy", "bahagia", "seneng"}},
	{"anxious", []string{"cemas", "anxious", "khawatir", "takut"}},
	{"stressed", []string{"stres", "stress", "capek", "pusing"}},
	{"angry", []string{"marah", "kesal", "angry"}},
}

// Complete returns a canned completion shaped after the request.
func (m *MockClient) Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &CompletionError{Message: "context done", Err: err}
	}

	var system, lastUser string
	for _, msg := range messages {
		if msg.Role == "system" && system == "" {
			system = msg.Content
		}
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			lastUser = messages[i].Content
			break
		}
	}

	if opts.JSONMode {
		if strings.Contains(system, `"agent"`) {
			return m.delegate(lastUser), nil
		}
		return `{"insights": ["[MOCK] Perasaanmu valid dan wajar dirasakan."]}`, nil
	}

	if lastUser == "" {
		return "[MOCK] This is a mock response from the completion client.", nil
	}
	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUser, 100)), nil
}

func (m *MockClient) delegate(message string) string {
	lower := strings.ToLower(message)
	agent := "reflection"
	for _, route := range mockRoutes {
		if containsAny(lower, route.keywords) {
			agent = route.agent
			break
		}
	}
	mood := "neutral"
	for _, entry := range mockMoods {
		if containsAny(lower, entry.words) {
			mood = entry.mood
			break
		}
	}
	out, _ := json.Marshal(map[string]any{
		"agent":      agent,
		"mood":       mood,
		"parameters": map[string]any{"intensity": "medium"},
		"reasoning":  "[MOCK] keyword routing",
	})
	return string(out)
}

// ListModels returns a list of mock models.
func (m *MockClient) ListModels(ctx context.Context) ([]Model, error) {
	return []Model{
		{
			ID:      "mock-llama",
			Object:  "model",
			Created: time.Now().Unix(),
			OwnedBy: "mock",
		},
	}, nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
