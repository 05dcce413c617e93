package specialist

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xiaot623/hati/internal/adapter/spotify"
	"github.com/xiaot623/hati/internal/cache"
	"github.com/xiaot623/hati/internal/repository"
	"github.com/xiaot623/hati/tests/helpers"
)

type fakeSearcher struct {
	configured bool
	results    map[string][]spotify.Track
	err        error

	mu      sync.Mutex
	queries []string
}

func (f *fakeSearcher) Configured() bool { return f.configured }

func (f *fakeSearcher) SearchTracks(ctx context.Context, query string, limit int) ([]spotify.Track, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func (f *fakeSearcher) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func track(id, artist string, popularity int) spotify.Track {
	return spotify.Track{ID: id, Title: "Song " + id, Artist: artist, Popularity: popularity}
}

func newMusic(t *testing.T, searcher TrackSearcher) (*Music, *repository.SQLiteStore) {
	t.Helper()
	store := helpers.NewTestSQLiteStore(t)
	log := zaptest.NewLogger(t)
	return NewMusic(searcher, cache.New(store, log), store, MustLoadCatalog(), log), store
}

func TestMusicRecommendsByMoodGenre(t *testing.T) {
	searcher := &fakeSearcher{configured: true, results: map[string][]spotify.Track{
		"genre:indie": {
			track("a", "Hindia", 60),
			track("b", "Netral", 70),
			track("c", "Obscure", 10),
			track("a", "Hindia", 60),
		},
		"indie medium": {track("d", "Pamungkas", 55)},
	}}
	m, _ := newMusic(t, searcher)
	ctx := context.Background()

	payload := m.Process(ctx, "cariin musik sedih dong", Params{"mood": "sad", "session_id": "s1"})

	assert.Equal(t, "indie", payload["genre"])
	assert.Equal(t, "sad", payload["mood_analysis"])
	assert.Equal(t, false, payload["from_cache"])
	recs, ok := payload["recommendations"].([]any)
	require.True(t, ok)
	var titles []string
	for _, r := range recs {
		titles = append(titles, r.(map[string]any)["title"].(string))
	}
	assert.Equal(t, []string{"Song a", "Song d"}, titles, "popularity floor, unwanted artists and duplicates are dropped")
	assert.Equal(t, []string{"genre:indie", "indie medium", "sad indie", "sad music", "indie"}, searcher.Queries())

	again := m.Process(ctx, "lagi dong", Params{"mood": "sad", "session_id": "s1"})
	assert.Equal(t, true, again["from_cache"])
	assert.Len(t, searcher.Queries(), 5, "second identical request is served from the cache")
}

func TestMusicFallsBackWhenUnconfigured(t *testing.T) {
	searcher := &fakeSearcher{}
	m, _ := newMusic(t, searcher)

	payload := m.Process(context.Background(), "musik dong", Params{"mood": "happy"})

	assert.Equal(t, "Spotify API not available", payload["error"])
	assert.Equal(t, 2, payload["total_found"])
	assert.Empty(t, searcher.Queries())
}

func TestMusicFallsBackWhenSearchFails(t *testing.T) {
	searcher := &fakeSearcher{configured: true, err: errors.New("boom")}
	m, store := newMusic(t, searcher)
	ctx := context.Background()

	payload := m.Process(ctx, "musik dong", Params{"mood": "happy"})
	assert.Equal(t, "various", payload["genre"])

	n, err := store.DeleteExpiredCacheEntries(ctx, 1<<62)
	require.NoError(t, err)
	assert.Zero(t, n, "failures are not cached")
}

func TestMusicLearnsGenreFromPraise(t *testing.T) {
	searcher := &fakeSearcher{configured: true, results: map[string][]spotify.Track{
		"genre:jazz": {track("j", "Norah Jones", 80)},
	}}
	m, _ := newMusic(t, searcher)
	ctx := context.Background()

	m.LearnFromSuccess(ctx, "s1", "musik buat sedih", map[string]any{
		"genre":         "jazz",
		"mood_analysis": "sad",
		"recommendations": []any{
			map[string]any{"artist": "Norah Jones, Someone"},
		},
	}, "love it")

	prefs := m.memory.Preferences(ctx, "s1")
	assert.Equal(t, map[string]any{"sad": "jazz"}, prefs["mood_genre_map"])
	entry, ok := m.memory.Recall(ctx, "s1", "liked_artists")
	require.True(t, ok)
	assert.JSONEq(t, `["Norah Jones"]`, string(entry.Value))

	payload := m.Process(ctx, "musik sedih", Params{"mood": "sad", "session_id": "s1", "genre": "rock"})
	assert.Equal(t, "jazz", payload["genre"], "learned mood association wins over the delegated genre")
	assert.Equal(t, true, payload["personalized"])
}

func TestMusicIgnoresUnpraisedResponse(t *testing.T) {
	m, _ := newMusic(t, &fakeSearcher{configured: true})
	ctx := context.Background()

	m.LearnFromSuccess(ctx, "s1", "req", map[string]any{"genre": "jazz"}, "meh")
	assert.Empty(t, m.memory.RecallAll(ctx, "s1"))

	m.LearnFromFailure(ctx, "s1", "req", map[string]any{"genre": "jazz"}, "this is bad")
	assert.Len(t, m.memory.RecallAll(ctx, "s1"), 1)
}

func TestMusicTrackFeedback(t *testing.T) {
	m, _ := newMusic(t, &fakeSearcher{configured: true})
	ctx := context.Background()

	m.LearnFeedback(ctx, "s1", "t1", "love", map[string]any{"artist": "Hindia", "genre": "indie"})

	all := m.memory.RecallAll(ctx, "s1")
	assert.Contains(t, all, "loved_artist_Hindia")
	assert.Contains(t, all, "loved_genre_indie")
	assert.Equal(t, 8, all["loved_artist_Hindia"].Importance)
}
