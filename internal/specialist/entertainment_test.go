package specialist

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xiaot623/hati/internal/adapter/giphy"
	"github.com/xiaot623/hati/internal/adapter/tmdb"
	"github.com/xiaot623/hati/internal/cache"
	"github.com/xiaot623/hati/tests/helpers"
)

type fakeGIFs struct {
	mu    sync.Mutex
	terms []string
}

func (f *fakeGIFs) Configured() bool { return true }

func (f *fakeGIFs) Search(ctx context.Context, term string, limit, offset int) ([]giphy.GIF, error) {
	f.mu.Lock()
	f.terms = append(f.terms, term)
	f.mu.Unlock()
	out := make([]giphy.GIF, limit)
	for i := range out {
		out[i] = giphy.GIF{Title: term, URL: "u", Source: "giphy"}
	}
	return out, nil
}

type fakeMovies struct {
	mu      sync.Mutex
	queries []tmdb.DiscoverQuery
}

func (f *fakeMovies) Configured() bool { return true }

func (f *fakeMovies) Discover(ctx context.Context, q tmdb.DiscoverQuery, limit int) ([]tmdb.Movie, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	return []tmdb.Movie{{Title: "Paddington", Rating: 7.3, Source: "tmdb"}}, nil
}

func (f *fakeMovies) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func first(int) int { return 0 }

func newEntertainment(t *testing.T, gifs GIFSearcher, movies MovieDiscoverer) *Entertainment {
	t.Helper()
	store := helpers.NewTestSQLiteStore(t)
	log := zaptest.NewLogger(t)
	return NewEntertainment(gifs, movies, cache.New(store, log), store, MustLoadCatalog(), log, WithRand(first))
}

func TestEntertainmentMixed(t *testing.T) {
	gifs, movies := &fakeGIFs{}, &fakeMovies{}
	e := newEntertainment(t, gifs, movies)

	payload := e.Process(context.Background(), "kasih jokes dong", Params{"mood": "happy", "intensity": "high"})

	content := payload["content"].(map[string]any)
	require.Len(t, content["gifs"], gifLimit)
	assert.Equal(t, "very happy", content["gifs"].([]GIF)[0].SearchTerm)
	require.Len(t, content["movies"], 1)
	movie := content["movies"].([]Movie)[0]
	assert.Equal(t, "Paddington", movie.Title)
	assert.Equal(t, "35", movie.GenreID)
	assert.Len(t, content["jokes"], 2)
	assert.Equal(t, gifLimit+1+2, payload["total_items"])

	require.Len(t, movies.queries, 1)
	assert.Equal(t, "release_date.desc", movies.queries[0].SortBy)
	assert.Equal(t, 1, movies.queries[0].Page)
}

func TestEntertainmentCachesMovies(t *testing.T) {
	movies := &fakeMovies{}
	e := newEntertainment(t, nil, movies)
	ctx := context.Background()

	e.Process(ctx, "film dong", Params{"mood": "sad", "type": "movies"})
	payload := e.Process(ctx, "film lagi", Params{"mood": "sad", "type": "movies"})

	assert.Equal(t, 1, movies.Calls())
	assert.Len(t, payload["content"].(map[string]any)["movies"], 1)
}

func TestEntertainmentJokesOnly(t *testing.T) {
	gifs, movies := &fakeGIFs{}, &fakeMovies{}
	e := newEntertainment(t, gifs, movies)

	payload := e.Process(context.Background(), "jokes", Params{"mood": "bingung", "type": "jokes"})

	content := payload["content"].(map[string]any)
	assert.NotContains(t, content, "gifs")
	assert.NotContains(t, content, "movies")
	jokes := content["jokes"].([]Joke)
	assert.Equal(t, MustLoadCatalog().Entertainment.Jokes["default"][0], jokes[0].Text)
	assert.Empty(t, gifs.terms)
	assert.Zero(t, movies.Calls())
}

func TestEntertainmentWithoutProviders(t *testing.T) {
	e := newEntertainment(t, nil, nil)

	payload := e.Process(context.Background(), "hibur aku", Params{"mood": "sad"})

	content := payload["content"].(map[string]any)
	assert.Empty(t, content["gifs"])
	assert.Empty(t, content["movies"])
	assert.Len(t, content["jokes"], 2)
	assert.Equal(t, 2, payload["total_items"])
}

func TestEntertainmentUnknownTypeFallsBack(t *testing.T) {
	e := newEntertainment(t, nil, nil)

	payload := e.Process(context.Background(), "x", Params{"type": "podcasts"})

	assert.Equal(t, "fallback", payload["content_type"])
}

func TestGIFTermsByIntensity(t *testing.T) {
	e := newEntertainment(t, nil, nil)

	low := e.gifTerms("sad", "low")
	assert.Equal(t, []string{"gentle comfort", "gentle hug", "gentle cute animals", "comfort"}, low[:4])
	assert.Equal(t, MustLoadCatalog().Entertainment.GIFTerms["sad"], e.gifTerms("sad", "medium"))
}
