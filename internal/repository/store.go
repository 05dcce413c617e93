// Package repository defines the storage interface and its SQLite implementation.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xiaot623/hati/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// Session operations
	UpsertSession(ctx context.Context, sessionID, name string, preferences json.RawMessage) (*domain.Session, error)
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	SetSessionSummary(ctx context.Context, sessionID, summary string, through int64) error

	// Turn operations
	CreateTurn(ctx context.Context, turn *domain.Turn) error
	ListRecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
	CountTurns(ctx context.Context, sessionID string) (int, error)

	// Cache operations
	GetCacheEntry(ctx context.Context, key string, nowMs int64) (*domain.CacheEntry, error)
	PutCacheEntry(ctx context.Context, entry *domain.CacheEntry) error
	DeleteExpiredCacheEntries(ctx context.Context, nowMs int64) (int64, error)

	// Memory operations
	UpsertMemory(ctx context.Context, entry *domain.MemoryEntry) error
	GetMemory(ctx context.Context, sessionID, agentType, key string) (*domain.MemoryEntry, error)
	ListMemories(ctx context.Context, sessionID, agentType string) ([]domain.MemoryEntry, error)

	// Mood operations
	CreateMoodSample(ctx context.Context, sample *domain.MoodSample) error
	GetMoodAnalytics(ctx context.Context, sessionID string, since time.Time) (*domain.MoodAnalytics, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
