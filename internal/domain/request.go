package domain

import "encoding/json"

// ChatRequest represents one incoming user message.
type ChatRequest struct {
	Message     string          `json:"message"`
	UserID      string          `json:"user_id,omitempty"`
	SessionID   string          `json:"session_id,omitempty"`
	UserName    string          `json:"user_name,omitempty"`
	Preferences json.RawMessage `json:"preferences,omitempty"`
}

// NormalizedPreferences returns the preference blob as a JSON object.
// Clients sometimes send an empty list; anything that is not an object
// is treated as no preferences.
func (r ChatRequest) NormalizedPreferences() json.RawMessage {
	var obj map[string]any
	if len(r.Preferences) == 0 || json.Unmarshal(r.Preferences, &obj) != nil || len(obj) == 0 {
		return nil
	}
	return r.Preferences
}

// ChatResult is the outcome of one processed message.
type ChatResult struct {
	Response       string         `json:"response"`
	AgentUsed      string         `json:"agent_used"`
	MoodDetected   string         `json:"mood_detected"`
	SpecialistData map[string]any `json:"specialist_data"`
	SessionID      string         `json:"session_id"`
	Personalized   bool           `json:"personalized"`
	ProcessingTime float64        `json:"processing_time"`
	Metadata       map[string]any `json:"metadata"`
	Failed         bool           `json:"-"`
}

// Delegation is the decoded result of the delegation completion.
type Delegation struct {
	Agent      string         `json:"agent"`
	Mood       string         `json:"mood"`
	Parameters map[string]any `json:"parameters"`
	Reasoning  string         `json:"reasoning"`
}

// FeedbackRequest carries user feedback about a specialist result.
type FeedbackRequest struct {
	AgentType string         `json:"agent_type"`
	TrackID   string         `json:"track_id,omitempty"`
	Feedback  string         `json:"feedback"`
	Data      map[string]any `json:"data,omitempty"`
}

// AnalyticsReport is the read-side view over a session's history.
type AnalyticsReport struct {
	SessionID          string        `json:"session_id"`
	PeriodDays         int           `json:"analytics_period_days"`
	MoodAnalytics      MoodAnalytics `json:"mood_analytics"`
	TotalConversations int           `json:"total_conversations"`
	UserProfile        *Session      `json:"user_profile"`
}

// HealthStatus reports process health.
type HealthStatus struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	AgentsRegistered int    `json:"agents_registered"`
	LLMConnected     bool   `json:"llm_connected"`
}
