// Package domain defines the core domain models for the orchestrator.
package domain

// Specialist identifiers known to the delegation prompt.
const (
	AgentMusic         = "music"
	AgentEntertainment = "entertainment"
	AgentRelaxation    = "relaxation"
	AgentReflection    = "reflection"
)

// Delegation defaults used when the delegation step cannot be trusted.
const (
	DefaultAgent          = AgentReflection
	FallbackMood          = "confused"
	NeutralMood           = "neutral"
	FallbackReasoning     = "Fallback to reflection due to parsing error"
	CompletionReasoning   = "Fallback to reflection because delegation was unavailable"
	UnregisteredReasoning = "Fallback to reflection because the proposed agent is not available"
)

// Apology is the only text a user sees when the pipeline fails outright.
const Apology = "Maaf, aku sedang mengalami sedikit masalah. Bisa coba lagi sebentar lagi?"

// Role is a chat message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Sentiment is the classification of a free-text feedback signal.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentUnknown  Sentiment = "unknown"
)
