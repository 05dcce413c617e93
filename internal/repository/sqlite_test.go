package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/xiaot623/hati/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestSQLiteStoreSessionUpsert(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	session, err := store.UpsertSession(ctx, "s1", "Rani", json.RawMessage(`{"genre":"indie"}`))
	if err != nil {
		t.Fatalf("UpsertSession failed: %v", err)
	}
	if session == nil || session.Name != "Rani" {
		t.Fatalf("unexpected session: %+v", session)
	}

	// Empty name and preferences keep the stored values.
	session, err = store.UpsertSession(ctx, "s1", "", nil)
	if err != nil {
		t.Fatalf("UpsertSession failed: %v", err)
	}
	if session.Name != "Rani" {
		t.Fatalf("expected name to be kept, got %q", session.Name)
	}
	if string(session.Preferences) != `{"genre":"indie"}` {
		t.Fatalf("expected preferences to be kept, got %s", session.Preferences)
	}

	if err := store.SetSessionSummary(ctx, "s1", "talked about exams", 42); err != nil {
		t.Fatalf("SetSessionSummary failed: %v", err)
	}
	session, err = store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session.Summary != "talked about exams" || session.SummaryThrough != 42 {
		t.Fatalf("unexpected summary: %q through %d", session.Summary, session.SummaryThrough)
	}

	missing, err := store.GetSession(ctx, "nope")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil session, got %+v", missing)
	}
}

func TestSQLiteStoreTurnsWindow(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	if _, err := store.UpsertSession(ctx, "s1", "", nil); err != nil {
		t.Fatalf("UpsertSession failed: %v", err)
	}

	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		turn := &domain.Turn{
			SessionID:   "s1",
			UserMessage: string(rune('a' + i)),
			Response:    "ok",
			Mood:        "sad",
			AgentUsed:   domain.AgentMusic,
			AgentData:   json.RawMessage(`{"genre":"indie"}`),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.CreateTurn(ctx, turn); err != nil {
			t.Fatalf("CreateTurn failed: %v", err)
		}
		if turn.ID == 0 {
			t.Fatalf("expected turn id to be set")
		}
	}

	turns, err := store.ListRecentTurns(ctx, "s1", 3)
	if err != nil {
		t.Fatalf("ListRecentTurns failed: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	// Newest three, oldest first.
	if turns[0].UserMessage != "c" || turns[2].UserMessage != "e" {
		t.Fatalf("unexpected order: %q..%q", turns[0].UserMessage, turns[2].UserMessage)
	}

	count, err := store.CountTurns(ctx, "s1")
	if err != nil {
		t.Fatalf("CountTurns failed: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected 5 turns, got %d", count)
	}
}

func TestSQLiteStoreCacheEntries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	now := time.Now().UnixMilli()
	if err := store.PutCacheEntry(ctx, &domain.CacheEntry{Key: "k", Payload: json.RawMessage(`{"v":1}`), ExpiresAt: now + 1000, CreatedAt: now}); err != nil {
		t.Fatalf("PutCacheEntry failed: %v", err)
	}
	if err := store.PutCacheEntry(ctx, &domain.CacheEntry{Key: "k", Payload: json.RawMessage(`{"v":2}`), ExpiresAt: now + 1000, CreatedAt: now}); err != nil {
		t.Fatalf("PutCacheEntry failed: %v", err)
	}

	entry, err := store.GetCacheEntry(ctx, "k", now)
	if err != nil {
		t.Fatalf("GetCacheEntry failed: %v", err)
	}
	if entry == nil || string(entry.Payload) != `{"v":2}` {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	expired, err := store.GetCacheEntry(ctx, "k", now+1000)
	if err != nil {
		t.Fatalf("GetCacheEntry failed: %v", err)
	}
	if expired != nil {
		t.Fatalf("expected expired entry to be hidden")
	}

	n, err := store.DeleteExpiredCacheEntries(ctx, now+1000)
	if err != nil {
		t.Fatalf("DeleteExpiredCacheEntries failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deleted row, got %d", n)
	}
}

func TestSQLiteStoreMemoryUpsert(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := store.UpsertMemory(ctx, &domain.MemoryEntry{
		SessionID: "s1", AgentType: "music", Key: "g", Value: json.RawMessage(`"pop"`), Importance: 6,
		CreatedAt: first, UpdatedAt: first,
	}); err != nil {
		t.Fatalf("UpsertMemory failed: %v", err)
	}
	later := first.Add(time.Hour)
	if err := store.UpsertMemory(ctx, &domain.MemoryEntry{
		SessionID: "s1", AgentType: "music", Key: "g", Value: json.RawMessage(`"rock"`), Importance: 3,
		CreatedAt: later, UpdatedAt: later,
	}); err != nil {
		t.Fatalf("UpsertMemory failed: %v", err)
	}

	entry, err := store.GetMemory(ctx, "s1", "music", "g")
	if err != nil {
		t.Fatalf("GetMemory failed: %v", err)
	}
	if string(entry.Value) != `"rock"` || entry.Importance != 3 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if !entry.CreatedAt.Equal(first) {
		t.Fatalf("expected created_at to be preserved, got %v", entry.CreatedAt)
	}

	// Same key under another specialist does not collide.
	if err := store.UpsertMemory(ctx, &domain.MemoryEntry{
		SessionID: "s1", AgentType: "relaxation", Key: "g", Value: json.RawMessage(`"park"`), Importance: 5,
	}); err != nil {
		t.Fatalf("UpsertMemory failed: %v", err)
	}
	entries, err := store.ListMemories(ctx, "s1", "music")
	if err != nil {
		t.Fatalf("ListMemories failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 music memory, got %d", len(entries))
	}
}

func TestSQLiteStoreMoodAnalytics(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	if _, err := store.UpsertSession(ctx, "s1", "", nil); err != nil {
		t.Fatalf("UpsertSession failed: %v", err)
	}

	now := time.Now()
	samples := []domain.MoodSample{
		{SessionID: "s1", Mood: "sad", Triggers: []string{"exam"}, Ts: now.UnixMilli()},
		{SessionID: "s1", Mood: "sad", Triggers: []string{"exam", "work"}, Ts: now.UnixMilli()},
		{SessionID: "s1", Mood: "happy", Ts: now.UnixMilli()},
		{SessionID: "s1", Mood: "angry", Ts: now.AddDate(0, 0, -40).UnixMilli()},
	}
	for i := range samples {
		if err := store.CreateMoodSample(ctx, &samples[i]); err != nil {
			t.Fatalf("CreateMoodSample failed: %v", err)
		}
	}

	analytics, err := store.GetMoodAnalytics(ctx, "s1", now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("GetMoodAnalytics failed: %v", err)
	}
	if analytics.TotalEntries != 3 {
		t.Fatalf("expected 3 entries, got %d", analytics.TotalEntries)
	}
	if analytics.MoodFrequency["sad"] != 2 || analytics.MoodFrequency["angry"] != 0 {
		t.Fatalf("unexpected frequencies: %v", analytics.MoodFrequency)
	}
	if analytics.CommonTriggers["exam"] != 2 || analytics.CommonTriggers["work"] != 1 {
		t.Fatalf("unexpected triggers: %v", analytics.CommonTriggers)
	}
}
