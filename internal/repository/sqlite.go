package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/hati/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if err := ensureDir(dsn); err != nil {
		return nil, fmt.Errorf("failed to prepare database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if isMemoryDSN(dsn) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	pragmas := []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"}
	if !isMemoryDSN(dsn) {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// ensureDir creates the parent directory of a file-backed database.
func ensureDir(dsn string) error {
	if isMemoryDSN(dsn) {
		return nil
	}
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			name TEXT,
			preferences TEXT,
			summary TEXT NOT NULL DEFAULT '',
			summary_through INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_active DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			user_message TEXT NOT NULL,
			bot_response TEXT NOT NULL,
			mood_detected TEXT,
			agent_used TEXT NOT NULL,
			agent_data TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS cache_entries (
			cache_key TEXT PRIMARY KEY,
			response_data TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cache_expiry ON cache_entries(expires_at)`,
		`CREATE TABLE IF NOT EXISTS agent_memory (
			session_id TEXT NOT NULL,
			agent_type TEXT NOT NULL,
			memory_key TEXT NOT NULL,
			memory_value TEXT NOT NULL,
			importance_score INTEGER NOT NULL DEFAULT 5,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (session_id, agent_type, memory_key)
		)`,
		`CREATE TABLE IF NOT EXISTS mood_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			mood TEXT NOT NULL,
			triggers TEXT,
			successful_interventions TEXT,
			ts INTEGER NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mood_samples_session ON mood_samples(session_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	// Add new columns for existing DBs (SQLite has limited ALTER TABLE support).
	if err := s.ensureColumn("sessions", "summary", "ALTER TABLE sessions ADD COLUMN summary TEXT NOT NULL DEFAULT ''"); err != nil {
		return err
	}
	return s.ensureColumn("sessions", "summary_through", "ALTER TABLE sessions ADD COLUMN summary_through INTEGER NOT NULL DEFAULT 0")
}

func (s *SQLiteStore) ensureColumn(tableName, columnName, ddl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == columnName {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = s.db.Exec(ddl)
	return err
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertSession creates a session or refreshes its last-active time.
// Name and preferences are only overwritten when non-empty.
func (s *SQLiteStore) UpsertSession(ctx context.Context, sessionID, name string, preferences json.RawMessage) (*domain.Session, error) {
	now := s.now().UTC()
	var prefs sql.NullString
	if len(preferences) > 0 {
		prefs = sql.NullString{String: string(preferences), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, name, preferences, created_at, last_active) VALUES (?, NULLIF(?, ''), ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			last_active = excluded.last_active,
			name = COALESCE(excluded.name, sessions.name),
			preferences = COALESCE(excluded.preferences, sessions.preferences)`,
		sessionID, name, prefs, now, now)
	if err != nil {
		return nil, err
	}
	return s.GetSession(ctx, sessionID)
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	var name, prefs sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, name, preferences, summary, summary_through, created_at, last_active FROM sessions WHERE session_id = ?`,
		sessionID).Scan(&session.SessionID, &name, &prefs, &session.Summary, &session.SummaryThrough, &session.CreatedAt, &session.LastActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	session.Name = name.String
	if prefs.Valid {
		session.Preferences = json.RawMessage(prefs.String)
	}
	return &session, nil
}

// SetSessionSummary stores the rolling conversation summary together with
// the id of the newest turn it covers.
func (s *SQLiteStore) SetSessionSummary(ctx context.Context, sessionID, summary string, through int64) error {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, summary, summary_through, created_at, last_active) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET summary = excluded.summary, summary_through = excluded.summary_through`,
		sessionID, summary, through, now, now)
	return err
}

// CreateTurn appends a turn to the session log.
func (s *SQLiteStore) CreateTurn(ctx context.Context, turn *domain.Turn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now()
	}
	var mood sql.NullString
	if turn.Mood != "" {
		mood = sql.NullString{String: turn.Mood, Valid: true}
	}
	data := "{}"
	if len(turn.AgentData) > 0 {
		data = string(turn.AgentData)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (session_id, user_message, bot_response, mood_detected, agent_used, agent_data, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		turn.SessionID, turn.UserMessage, turn.Response, mood, turn.AgentUsed, data, turn.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err == nil {
		turn.ID = id
	}
	return nil
}

// ListRecentTurns returns the newest limit turns of a session, oldest first.
func (s *SQLiteStore) ListRecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	query := `SELECT id, session_id, user_message, bot_response, mood_detected, agent_used, agent_data, created_at
		FROM turns WHERE session_id = ? ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		var turn domain.Turn
		var mood, data sql.NullString
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.UserMessage, &turn.Response, &mood, &turn.AgentUsed, &data, &turn.CreatedAt); err != nil {
			return nil, err
		}
		turn.Mood = mood.String
		if data.Valid {
			turn.AgentData = json.RawMessage(data.String)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// CountTurns returns the number of durable turns for a session.
func (s *SQLiteStore) CountTurns(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM turns WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

// GetCacheEntry returns a live cache entry, or nil when missing or expired.
func (s *SQLiteStore) GetCacheEntry(ctx context.Context, key string, nowMs int64) (*domain.CacheEntry, error) {
	var entry domain.CacheEntry
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT cache_key, response_data, expires_at, created_at FROM cache_entries WHERE cache_key = ? AND expires_at > ?`,
		key, nowMs).Scan(&entry.Key, &payload, &entry.ExpiresAt, &entry.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry.Payload = json.RawMessage(payload)
	return &entry, nil
}

// PutCacheEntry inserts or replaces the entry for its key.
func (s *SQLiteStore) PutCacheEntry(ctx context.Context, entry *domain.CacheEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries (cache_key, response_data, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		entry.Key, string(entry.Payload), entry.ExpiresAt, entry.CreatedAt)
	return err
}

// DeleteExpiredCacheEntries removes entries whose expiry is not after nowMs.
func (s *SQLiteStore) DeleteExpiredCacheEntries(ctx context.Context, nowMs int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, nowMs)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpsertMemory writes a memory entry; an existing entry keeps its created_at.
func (s *SQLiteStore) UpsertMemory(ctx context.Context, entry *domain.MemoryEntry) error {
	now := s.now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_memory (session_id, agent_type, memory_key, memory_value, importance_score, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, agent_type, memory_key) DO UPDATE SET
			memory_value = excluded.memory_value,
			importance_score = excluded.importance_score,
			updated_at = excluded.updated_at`,
		entry.SessionID, entry.AgentType, entry.Key, string(entry.Value), entry.Importance,
		entry.CreatedAt.UTC(), entry.UpdatedAt.UTC())
	return err
}

// GetMemory retrieves one memory entry.
func (s *SQLiteStore) GetMemory(ctx context.Context, sessionID, agentType, key string) (*domain.MemoryEntry, error) {
	var entry domain.MemoryEntry
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, agent_type, memory_key, memory_value, importance_score, created_at, updated_at
		 FROM agent_memory WHERE session_id = ? AND agent_type = ? AND memory_key = ?`,
		sessionID, agentType, key).Scan(&entry.SessionID, &entry.AgentType, &entry.Key, &value, &entry.Importance, &entry.CreatedAt, &entry.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry.Value = json.RawMessage(value)
	return &entry, nil
}

// ListMemories lists a specialist's memories for a session, most important first.
func (s *SQLiteStore) ListMemories(ctx context.Context, sessionID, agentType string) ([]domain.MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, agent_type, memory_key, memory_value, importance_score, created_at, updated_at
		 FROM agent_memory WHERE session_id = ? AND agent_type = ?
		 ORDER BY importance_score DESC, updated_at DESC`,
		sessionID, agentType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.MemoryEntry
	for rows.Next() {
		var entry domain.MemoryEntry
		var value string
		if err := rows.Scan(&entry.SessionID, &entry.AgentType, &entry.Key, &value, &entry.Importance, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		entry.Value = json.RawMessage(value)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CreateMoodSample appends a mood sample.
func (s *SQLiteStore) CreateMoodSample(ctx context.Context, sample *domain.MoodSample) error {
	if sample.Ts == 0 {
		sample.Ts = s.now().UnixMilli()
	}
	triggers, _ := json.Marshal(nonNil(sample.Triggers))
	interventions, _ := json.Marshal(nonNil(sample.SuccessfulInterventions))
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO mood_samples (session_id, mood, triggers, successful_interventions, ts) VALUES (?, ?, ?, ?, ?)`,
		sample.SessionID, sample.Mood, string(triggers), string(interventions), sample.Ts)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		sample.ID = id
	}
	return nil
}

// GetMoodAnalytics aggregates mood samples newer than since.
func (s *SQLiteStore) GetMoodAnalytics(ctx context.Context, sessionID string, since time.Time) (*domain.MoodAnalytics, error) {
	sinceMs := since.UnixMilli()
	analytics := &domain.MoodAnalytics{
		MoodFrequency:  map[string]int{},
		CommonTriggers: map[string]int{},
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT mood, COUNT(*) FROM mood_samples WHERE session_id = ? AND ts > ? GROUP BY mood`,
		sessionID, sinceMs)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var mood string
		var count int
		if err := rows.Scan(&mood, &count); err != nil {
			rows.Close()
			return nil, err
		}
		analytics.MoodFrequency[mood] = count
		analytics.TotalEntries += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT triggers FROM mood_samples WHERE session_id = ? AND ts > ?`,
		sessionID, sinceMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var raw sql.NullString
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var triggers []string
		if raw.Valid && json.Unmarshal([]byte(raw.String), &triggers) == nil {
			for _, t := range triggers {
				counts[t]++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	analytics.CommonTriggers = topN(counts, 10)
	return analytics, nil
}

func topN(counts map[string]int, n int) map[string]int {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	out := make(map[string]int, len(keys))
	for _, k := range keys {
		out[k] = counts[k]
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
