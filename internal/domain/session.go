package domain

import (
	"encoding/json"
	"time"
)

// Session represents a conversation session and its profile.
type Session struct {
	SessionID   string          `json:"session_id"`
	Name        string          `json:"name,omitempty"`
	Preferences json.RawMessage `json:"preferences,omitempty"`
	Summary     string          `json:"summary,omitempty"`
	// SummaryThrough is the id of the newest turn folded into Summary.
	SummaryThrough int64     `json:"summary_through,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastActive     time.Time `json:"last_active"`
}

// Turn is one user message and the reply generated for it.
type Turn struct {
	ID          int64           `json:"id"`
	SessionID   string          `json:"session_id"`
	UserMessage string          `json:"user_message"`
	Response    string          `json:"bot_response"`
	Mood        string          `json:"mood_detected,omitempty"`
	AgentUsed   string          `json:"agent_used"`
	AgentData   json.RawMessage `json:"agent_data,omitempty"`
	CreatedAt   time.Time       `json:"timestamp"`
}

// MoodSample is an append-only mood observation for a session.
type MoodSample struct {
	ID                      int64    `json:"id"`
	SessionID               string   `json:"session_id"`
	Mood                    string   `json:"mood"`
	Triggers                []string `json:"triggers"`
	SuccessfulInterventions []string `json:"successful_interventions"`
	Ts                      int64    `json:"ts"` // Unix milliseconds
}

// MoodAnalytics aggregates mood samples over a trailing window.
type MoodAnalytics struct {
	MoodFrequency  map[string]int `json:"mood_frequency"`
	CommonTriggers map[string]int `json:"common_triggers"`
	TotalEntries   int            `json:"total_entries"`
	PeriodDays     int            `json:"period_days"`
}

// TopMood returns the most frequent mood, breaking ties alphabetically.
func (a MoodAnalytics) TopMood() string {
	var top string
	best := 0
	for mood, count := range a.MoodFrequency {
		if count > best || (count == best && mood < top) {
			top, best = mood, count
		}
	}
	return top
}
