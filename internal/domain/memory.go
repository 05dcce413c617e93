package domain

import (
	"encoding/json"
	"time"
)

// MemoryEntry is a remembered value in one specialist's namespace.
// (SessionID, AgentType, Key) is unique.
type MemoryEntry struct {
	SessionID  string          `json:"session_id"`
	AgentType  string          `json:"agent_type"`
	Key        string          `json:"key"`
	Value      json.RawMessage `json:"value"`
	Importance int             `json:"importance"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Decode unmarshals the stored value into v.
func (m MemoryEntry) Decode(v any) error {
	return json.Unmarshal(m.Value, v)
}

// CacheEntry is a cached specialist payload keyed by fingerprint.
type CacheEntry struct {
	Key       string          `json:"cache_key"`
	Payload   json.RawMessage `json:"response_data"`
	ExpiresAt int64           `json:"expires_at"` // Unix milliseconds
	CreatedAt int64           `json:"created_at"` // Unix milliseconds
}
