// Package specialist defines the specialist capability and its variants.
package specialist

import (
	"context"
	"fmt"
	"strings"
)

// Params are the delegation parameters handed to a specialist.
type Params map[string]any

// String returns params[key] as a trimmed string, or def when missing or empty.
func (p Params) String(key, def string) string {
	switch v := p[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	case nil:
	default:
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			return s
		}
	}
	return def
}

// Map returns params[key] when it is an object.
func (p Params) Map(key string) map[string]any {
	m, _ := p[key].(map[string]any)
	return m
}

// SessionID returns the session the request belongs to.
func (p Params) SessionID() string {
	return p.String("session_id", "default")
}

// Mood returns the delegated mood, or def.
func (p Params) Mood(def string) string {
	return strings.ToLower(p.String("mood", def))
}

// Intensity returns low, medium or high.
func (p Params) Intensity() string {
	return strings.ToLower(p.String("intensity", "medium"))
}

// Payload is a specialist's structured, JSON-serializable result.
type Payload map[string]any

// Specialist turns a message and its delegation parameters into a payload.
// Process never fails: internal errors are absorbed into a fallback payload.
type Specialist interface {
	ID() string
	Process(ctx context.Context, message string, params Params) Payload
}

// FeedbackLearner learns from feedback about a specific item.
type FeedbackLearner interface {
	LearnFeedback(ctx context.Context, sessionID, itemID, feedback string, data map[string]any)
}

// SuccessLearner learns from a response the user praised.
type SuccessLearner interface {
	LearnFromSuccess(ctx context.Context, sessionID, request string, response map[string]any, feedback string)
}

// FailureLearner learns from a response the user rejected.
type FailureLearner interface {
	LearnFromFailure(ctx context.Context, sessionID, request string, response map[string]any, feedback string)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
