// Package memory implements the per-session, per-specialist memory store.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/xiaot623/hati/internal/domain"
)

const (
	// DefaultImportance is used when a caller has no opinion.
	DefaultImportance = 5
	// PreferenceThreshold is the minimum importance of a stable preference.
	PreferenceThreshold = 7
)

// Backend is the slice of the persistent store the memory store needs.
type Backend interface {
	UpsertMemory(ctx context.Context, entry *domain.MemoryEntry) error
	GetMemory(ctx context.Context, sessionID, agentType, key string) (*domain.MemoryEntry, error)
	ListMemories(ctx context.Context, sessionID, agentType string) ([]domain.MemoryEntry, error)
	ListRecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
	GetMoodAnalytics(ctx context.Context, sessionID string, since time.Time) (*domain.MoodAnalytics, error)
}

// Store reads and writes memories in a single specialist's namespace.
type Store struct {
	backend Backend
	agent   string
	log     *zap.Logger
	now     func() time.Time
}

// New returns a memory store scoped to agentID.
func New(backend Backend, agentID string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		backend: backend,
		agent:   agentID,
		log:     log.Named("memory").With(zap.String("agent", agentID)),
		now:     time.Now,
	}
}

// Agent returns the namespace this store writes to.
func (s *Store) Agent() string { return s.agent }

// Remember upserts key for the session. The last write wins for value,
// importance and updated time; nothing is merged or accumulated.
func (s *Store) Remember(ctx context.Context, sessionID, key string, value any, importance int) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode memory %q: %w", key, err)
	}
	now := s.now()
	err = s.backend.UpsertMemory(ctx, &domain.MemoryEntry{
		SessionID:  sessionID,
		AgentType:  s.agent,
		Key:        key,
		Value:      raw,
		Importance: importance,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		s.log.Warn("remember failed", zap.String("session_id", sessionID), zap.String("key", key), zap.Error(err))
		return domain.NewPersistenceError("remember", err)
	}
	return nil
}

// Recall returns the entry stored under key.
func (s *Store) Recall(ctx context.Context, sessionID, key string) (domain.MemoryEntry, bool) {
	entry, err := s.backend.GetMemory(ctx, sessionID, s.agent, key)
	if err != nil {
		s.log.Warn("recall failed", zap.String("session_id", sessionID), zap.String("key", key), zap.Error(err))
		return domain.MemoryEntry{}, false
	}
	if entry == nil {
		return domain.MemoryEntry{}, false
	}
	return *entry, true
}

// RecallAll returns every entry of this namespace for the session.
func (s *Store) RecallAll(ctx context.Context, sessionID string) map[string]domain.MemoryEntry {
	entries, err := s.backend.ListMemories(ctx, sessionID, s.agent)
	if err != nil {
		s.log.Warn("recall all failed", zap.String("session_id", sessionID), zap.Error(err))
		return map[string]domain.MemoryEntry{}
	}
	out := make(map[string]domain.MemoryEntry, len(entries))
	for _, e := range entries {
		out[e.Key] = e
	}
	return out
}

// Preferences returns the decoded values of entries at or above
// PreferenceThreshold. This is the only memory read that should drive
// recommendation decisions.
func (s *Store) Preferences(ctx context.Context, sessionID string) map[string]any {
	prefs := map[string]any{}
	for key, entry := range s.RecallAll(ctx, sessionID) {
		if entry.Importance < PreferenceThreshold {
			continue
		}
		var v any
		if err := entry.Decode(&v); err != nil {
			continue
		}
		prefs[key] = v
	}
	return prefs
}

var (
	negativeWords = []string{"dislike", "hate", "bad", "skip", "terrible", "wrong"}
	positiveWords = []string{"like", "love", "great", "perfect", "amazing"}
	// negators flip the positive word right after them.
	negators = []string{"not", "don't", "dont", "doesn't", "didn't", "never", "no", "tidak", "gak", "nggak", "ga", "bukan", "kurang"}
)

// Classify buckets a free-text feedback signal. Negative words, and positive
// words right after a negator ("don't like"), win over plain positive ones.
func Classify(signal string) domain.Sentiment {
	var tokens []string
	for _, w := range strings.FieldsFunc(strings.ToLower(signal), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\'' && r != '’'
	}) {
		w = strings.Trim(strings.ReplaceAll(w, "’", "'"), "'")
		if w != "" {
			tokens = append(tokens, w)
		}
	}

	positive := false
	for i, w := range tokens {
		if slices.Contains(negativeWords, w) {
			return domain.SentimentNegative
		}
		if slices.Contains(positiveWords, w) {
			if i > 0 && slices.Contains(negators, tokens[i-1]) {
				return domain.SentimentNegative
			}
			positive = true
		}
	}
	if positive {
		return domain.SentimentPositive
	}
	return domain.SentimentUnknown
}

// entityKinds are the payload fields feedback can be attached to.
var entityKinds = []string{"artist", "genre", "title", "place", "category"}

// Reinforce records feedback about payload. Positive feedback writes
// loved_<kind>_<entity> entries, negative feedback writes avoid_<kind>_<entity>.
// Unrecognized feedback writes nothing.
func (s *Store) Reinforce(ctx context.Context, sessionID, signal string, payload map[string]any) domain.Sentiment {
	sentiment := Classify(signal)
	if sentiment == domain.SentimentUnknown || len(payload) == 0 {
		return sentiment
	}

	for _, kind := range entityKinds {
		entity := entityName(payload[kind])
		if entity == "" {
			continue
		}
		switch sentiment {
		case domain.SentimentPositive:
			if kind == "artist" {
				_ = s.Remember(ctx, sessionID, "loved_artist_"+entity, payload, 8)
				continue
			}
			_ = s.Remember(ctx, sessionID, "loved_"+kind+"_"+entity, true, PreferenceThreshold)
		case domain.SentimentNegative:
			_ = s.Remember(ctx, sessionID, "avoid_"+kind+"_"+entity, true, 6)
		}
	}
	return sentiment
}

// entityName normalizes a payload value into a key fragment. Multi-artist
// strings keep only the first name.
func entityName(v any) string {
	str, ok := v.(string)
	if !ok {
		return ""
	}
	if i := strings.IndexByte(str, ','); i >= 0 {
		str = str[:i]
	}
	return strings.TrimSpace(str)
}

// LearnFromSuccess remembers a response the user praised. It reports
// whether the feedback was positive so callers can extract preferences.
func (s *Store) LearnFromSuccess(ctx context.Context, sessionID, request string, response any, feedback string) bool {
	if Classify(feedback) != domain.SentimentPositive {
		return false
	}
	_ = s.Remember(ctx, sessionID, "successful_response_"+shortHash(request), response, 8)
	return true
}

// LearnFromFailure remembers a response the user rejected.
func (s *Store) LearnFromFailure(ctx context.Context, sessionID, request string, response any, feedback string) bool {
	if Classify(feedback) != domain.SentimentNegative {
		return false
	}
	_ = s.Remember(ctx, sessionID, "avoid_response_"+shortHash(request), response, 6)
	return true
}

func shortHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:8]
}

// Context is what a specialist knows about a user beyond the current message.
type Context struct {
	Preferences map[string]any `json:"preferences,omitempty"`
	RecentMoods []string       `json:"recent_moods,omitempty"`
	CommonMood  string         `json:"common_mood,omitempty"`
}

// String renders the context as a single prompt line.
func (c Context) String() string {
	var parts []string
	if len(c.Preferences) > 0 {
		raw, _ := json.Marshal(c.Preferences)
		parts = append(parts, "User preferences: "+string(raw))
	}
	if len(c.RecentMoods) > 0 {
		parts = append(parts, "Recent moods: "+strings.Join(c.RecentMoods, ", "))
	}
	if c.CommonMood != "" {
		parts = append(parts, "Most common mood: "+c.CommonMood)
	}
	return strings.Join(parts, " | ")
}

// PersonalizedContext gathers preferences, the last three detected moods
// and the most common mood of the past week.
func (s *Store) PersonalizedContext(ctx context.Context, sessionID string) Context {
	out := Context{Preferences: s.Preferences(ctx, sessionID)}

	turns, err := s.backend.ListRecentTurns(ctx, sessionID, 3)
	if err != nil {
		s.log.Warn("load recent turns failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Mood != "" {
			out.RecentMoods = append(out.RecentMoods, turns[i].Mood)
		}
	}

	analytics, err := s.backend.GetMoodAnalytics(ctx, sessionID, s.now().AddDate(0, 0, -7))
	if err != nil {
		s.log.Warn("load mood analytics failed", zap.String("session_id", sessionID), zap.Error(err))
	} else if analytics != nil {
		out.CommonMood = analytics.TopMood()
	}
	return out
}
