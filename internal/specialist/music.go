package specialist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xiaot623/hati/internal/adapter/spotify"
	"github.com/xiaot623/hati/internal/cache"
	"github.com/xiaot623/hati/internal/domain"
	"github.com/xiaot623/hati/internal/memory"
)

const (
	musicCacheTTL    = 2 * time.Hour
	musicLimit       = 10
	musicSearchLimit = 20
	minPopularity    = 15
)

var errNoTracks = errors.New("no tracks found")

// TrackSearcher is the music content provider.
type TrackSearcher interface {
	Configured() bool
	SearchTracks(ctx context.Context, query string, limit int) ([]spotify.Track, error)
}

// Music recommends tracks for a mood, shaped by what the session liked before.
type Music struct {
	searcher TrackSearcher
	cache    *cache.Cache
	memory   *memory.Store
	catalog  MusicCatalog
	log      *zap.Logger
}

// NewMusic creates the music specialist.
func NewMusic(searcher TrackSearcher, c *cache.Cache, backend memory.Backend, catalog *Catalog, log *zap.Logger) *Music {
	if log == nil {
		log = zap.NewNop()
	}
	return &Music{
		searcher: searcher,
		cache:    c,
		memory:   memory.New(backend, domain.AgentMusic, log),
		catalog:  catalog.Music,
		log:      log.Named(domain.AgentMusic),
	}
}

func (m *Music) ID() string { return domain.AgentMusic }

func (m *Music) Process(ctx context.Context, message string, params Params) Payload {
	sessionID := params.SessionID()
	mood := params.Mood(domain.NeutralMood)
	intensity := params.Intensity()

	if m.searcher == nil || !m.searcher.Configured() {
		return m.fallback()
	}

	prefs := m.memory.Preferences(ctx, sessionID)
	genre := m.chooseGenre(mood, prefs, params)

	key := cache.Fingerprint(m.ID(), map[string]any{
		"mood":                mood,
		"genre":               genre,
		"intensity":           intensity,
		"session_preferences": len(prefs) > 0,
	})
	raw, fromCache, err := m.cache.Fetch(ctx, key, musicCacheTTL, func(ctx context.Context) (any, error) {
		tracks, err := m.searchTracks(ctx, mood, genre, intensity)
		if err != nil {
			return nil, err
		}
		return Payload{
			"recommendations": tracks,
			"mood_analysis":   mood,
			"genre":           genre,
			"total_found":     len(tracks),
			"personalized":    len(prefs) > 0,
			"search_parameters": map[string]any{
				"mood":      mood,
				"genre":     genre,
				"intensity": intensity,
			},
		}, nil
	})
	if err != nil {
		m.log.Warn("music search failed", zap.String("mood", mood), zap.String("genre", genre), zap.Error(err))
		return m.fallback()
	}

	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		m.log.Warn("decode music payload", zap.Error(err))
		return m.fallback()
	}
	payload["from_cache"] = fromCache
	return payload
}

// chooseGenre prefers what the session taught us over the delegation's
// guess, and the delegation's guess over the catalog default.
func (m *Music) chooseGenre(mood string, prefs map[string]any, params Params) string {
	if assoc, ok := prefs["mood_genre_map"].(map[string]any); ok {
		if g, ok := assoc[mood].(string); ok && g != "" {
			return g
		}
	}
	if g, ok := prefs["preferred_genre"].(string); ok && g != "" {
		return g
	}
	if g := params.String("genre", ""); g != "" {
		return g
	}
	if g, ok := m.catalog.Genres[mood]; ok {
		return g
	}
	return m.catalog.DefaultGenre
}

func (m *Music) searchTracks(ctx context.Context, mood, genre, intensity string) ([]Track, error) {
	moodEN := mood
	if t, ok := m.catalog.Translations[mood]; ok {
		moodEN = t
	}
	terms := []string{
		"genre:" + genre,
		genre + " " + intensity,
		moodEN + " " + genre,
		moodEN + " music",
		genre,
	}

	var (
		found   []spotify.Track
		lastErr error
	)
	for _, term := range terms {
		results, err := m.searcher.SearchTracks(ctx, term, musicSearchLimit)
		if err != nil {
			m.log.Debug("search term failed", zap.String("term", term), zap.Error(err))
			lastErr = err
			continue
		}
		for _, t := range results {
			if t.Popularity > minPopularity && !m.unwanted(t.Artist) {
				found = append(found, t)
			}
		}
		if len(found) >= musicLimit*2 {
			break
		}
	}

	seen := make(map[string]bool, len(found))
	tracks := make([]Track, 0, musicLimit)
	for _, t := range found {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		tracks = append(tracks, Track{
			Title:       t.Title,
			Artist:      t.Artist,
			Album:       t.Album,
			URL:         t.URL,
			PreviewURL:  t.PreviewURL,
			CoverURL:    t.CoverURL,
			ReleaseDate: t.ReleaseDate,
			Popularity:  t.Popularity,
			DurationMs:  t.DurationMs,
			Explicit:    t.Explicit,
		})
		if len(tracks) == musicLimit {
			break
		}
	}
	if len(tracks) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("search %s: %w", genre, lastErr)
		}
		return nil, errNoTracks
	}
	return tracks, nil
}

func (m *Music) unwanted(artist string) bool {
	return containsAny(strings.ToLower(artist), m.catalog.UnwantedArtists)
}

func (m *Music) fallback() Payload {
	tracks := make([]Track, len(m.catalog.FallbackTracks))
	for i, t := range m.catalog.FallbackTracks {
		t.Note = "Koneksi Spotify tidak tersedia, ini adalah rekomendasi umum"
		tracks[i] = t
	}
	return Payload{
		"recommendations": tracks,
		"ambient":         m.catalog.Ambient,
		"mood_analysis":   "general",
		"genre":           "various",
		"total_found":     len(tracks),
		"error":           "Spotify API not available",
	}
}

// LearnFeedback records a like or dislike of a single track.
func (m *Music) LearnFeedback(ctx context.Context, sessionID, trackID, feedback string, data map[string]any) {
	sentiment := m.memory.Reinforce(ctx, sessionID, feedback, data)
	m.log.Debug("track feedback", zap.String("session_id", sessionID), zap.String("track_id", trackID),
		zap.String("sentiment", string(sentiment)))
}

// LearnFromSuccess remembers the praised response and the genre, artists
// and mood association it carried.
func (m *Music) LearnFromSuccess(ctx context.Context, sessionID, request string, response map[string]any, feedback string) {
	if !m.memory.LearnFromSuccess(ctx, sessionID, request, response, feedback) {
		return
	}
	m.extractPreferences(ctx, sessionID, response)
}

func (m *Music) LearnFromFailure(ctx context.Context, sessionID, request string, response map[string]any, feedback string) {
	m.memory.LearnFromFailure(ctx, sessionID, request, response, feedback)
}

func (m *Music) extractPreferences(ctx context.Context, sessionID string, response map[string]any) {
	genre, _ := response["genre"].(string)
	if genre != "" {
		_ = m.memory.Remember(ctx, sessionID, "preferred_genre", genre, 6)
	}

	var artists []string
	if recs, ok := response["recommendations"].([]any); ok {
		for _, r := range recs {
			rec, _ := r.(map[string]any)
			artist, _ := rec["artist"].(string)
			if i := strings.IndexByte(artist, ','); i >= 0 {
				artist = artist[:i]
			}
			if artist = strings.TrimSpace(artist); artist != "" {
				artists = append(artists, artist)
			}
		}
	}
	if len(artists) > 0 {
		_ = m.memory.Remember(ctx, sessionID, "liked_artists", artists, memory.DefaultImportance)
	}

	mood, _ := response["mood_analysis"].(string)
	if mood == "" || genre == "" {
		return
	}
	assoc := map[string]any{}
	if entry, ok := m.memory.Recall(ctx, sessionID, "mood_genre_map"); ok {
		_ = entry.Decode(&assoc)
	}
	if assoc == nil {
		assoc = map[string]any{}
	}
	assoc[mood] = genre
	_ = m.memory.Remember(ctx, sessionID, "mood_genre_map", assoc, memory.PreferenceThreshold)
}

var (
	_ FeedbackLearner = (*Music)(nil)
	_ SuccessLearner  = (*Music)(nil)
	_ FailureLearner  = (*Music)(nil)
)
