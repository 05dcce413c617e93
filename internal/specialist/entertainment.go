package specialist

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/hati/internal/adapter/giphy"
	"github.com/xiaot623/hati/internal/adapter/tmdb"
	"github.com/xiaot623/hati/internal/cache"
	"github.com/xiaot623/hati/internal/domain"
	"github.com/xiaot623/hati/internal/memory"
)

const (
	movieCacheTTL = 6 * time.Hour
	gifLimit      = 5
	movieLimit    = 3
	maxGIFOffset  = 45
	maxMoviePage  = 3
)

// GIFSearcher is the GIF content provider.
type GIFSearcher interface {
	Configured() bool
	Search(ctx context.Context, term string, limit, offset int) ([]giphy.GIF, error)
}

// MovieDiscoverer is the movie content provider.
type MovieDiscoverer interface {
	Configured() bool
	Discover(ctx context.Context, q tmdb.DiscoverQuery, limit int) ([]tmdb.Movie, error)
}

// GIF is a rendered GIF item.
type GIF struct {
	giphy.GIF
	SearchTerm string `json:"search_term"`
	Mood       string `json:"mood"`
}

// Movie is a rendered movie item.
type Movie struct {
	tmdb.Movie
	GenreID string `json:"genre_id"`
	Mood    string `json:"mood"`
}

// Joke is a short mood-appropriate line.
type Joke struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// Entertainment mixes GIFs, movies and jokes for a mood.
type Entertainment struct {
	gifs    GIFSearcher
	movies  MovieDiscoverer
	cache   *cache.Cache
	memory  *memory.Store
	catalog EntertainmentCatalog
	intn    func(n int) int
	log     *zap.Logger
}

// EntertainmentOption configures the entertainment specialist.
type EntertainmentOption func(*Entertainment)

// WithRand replaces the source of randomness used to vary results.
func WithRand(intn func(n int) int) EntertainmentOption {
	return func(e *Entertainment) { e.intn = intn }
}

// NewEntertainment creates the entertainment specialist.
func NewEntertainment(gifs GIFSearcher, movies MovieDiscoverer, c *cache.Cache, backend memory.Backend, catalog *Catalog, log *zap.Logger, opts ...EntertainmentOption) *Entertainment {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Entertainment{
		gifs:    gifs,
		movies:  movies,
		cache:   c,
		memory:  memory.New(backend, domain.AgentEntertainment, log),
		catalog: catalog.Entertainment,
		intn:    rand.Intn,
		log:     log.Named(domain.AgentEntertainment),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Entertainment) ID() string { return domain.AgentEntertainment }

func (e *Entertainment) Process(ctx context.Context, message string, params Params) Payload {
	mood := params.Mood(domain.NeutralMood)
	contentType := params.String("type", "mixed")
	intensity := params.Intensity()

	var (
		gifs   []GIF
		movies []Movie
		jokes  []Joke
	)
	g, gctx := errgroup.WithContext(ctx)
	if contentType == "mixed" || contentType == "gifs" {
		g.Go(func() error {
			gifs = e.moodGIFs(gctx, mood, intensity)
			return nil
		})
	}
	if contentType == "mixed" || contentType == "movies" {
		g.Go(func() error {
			movies = e.moodMovies(gctx, mood)
			return nil
		})
	}
	if contentType == "mixed" || contentType == "jokes" {
		jokes = e.moodJokes(mood)
	}
	_ = g.Wait()

	content := map[string]any{}
	total := 0
	if contentType == "mixed" || contentType == "gifs" {
		content["gifs"] = orEmpty(gifs)
		total += len(gifs)
	}
	if contentType == "mixed" || contentType == "movies" {
		content["movies"] = orEmpty(movies)
		total += len(movies)
	}
	if contentType == "mixed" || contentType == "jokes" {
		content["jokes"] = orEmpty(jokes)
		total += len(jokes)
	}
	if len(content) == 0 {
		return e.fallback()
	}

	return Payload{
		"content":       content,
		"mood_analysis": mood,
		"content_type":  contentType,
		"total_items":   total,
		"search_parameters": map[string]any{
			"mood":      mood,
			"type":      contentType,
			"intensity": intensity,
		},
	}
}

func (e *Entertainment) moodGIFs(ctx context.Context, mood, intensity string) []GIF {
	if e.gifs == nil || !e.gifs.Configured() {
		return nil
	}
	terms := e.gifTerms(mood, intensity)
	term := "happy"
	if len(terms) > 0 {
		term = terms[e.intn(len(terms))]
	}
	offset := e.intn(maxGIFOffset + 1)

	results, err := e.gifs.Search(ctx, term, gifLimit*2, offset)
	if err != nil {
		e.log.Warn("gif search failed", zap.String("term", term), zap.Error(err))
		return nil
	}
	// Fisher-Yates so the same term does not always show the same GIFs.
	for i := len(results) - 1; i > 0; i-- {
		j := e.intn(i + 1)
		results[i], results[j] = results[j], results[i]
	}
	if len(results) > gifLimit {
		results = results[:gifLimit]
	}
	out := make([]GIF, len(results))
	for i, r := range results {
		out[i] = GIF{GIF: r, SearchTerm: term, Mood: mood}
	}
	return out
}

func (e *Entertainment) gifTerms(mood, intensity string) []string {
	terms := byMood(e.catalog.GIFTerms, mood)
	var prefix string
	switch intensity {
	case "high":
		prefix = "very "
	case "low":
		prefix = "gentle "
	default:
		return terms
	}
	n := min(3, len(terms))
	out := make([]string, 0, n+len(terms))
	for _, t := range terms[:n] {
		out = append(out, prefix+t)
	}
	return append(out, terms...)
}

func (e *Entertainment) moodMovies(ctx context.Context, mood string) []Movie {
	if e.movies == nil || !e.movies.Configured() {
		return nil
	}
	genres := byMood(e.catalog.MovieGenres, mood)
	if len(genres) == 0 {
		return nil
	}
	q := tmdb.DiscoverQuery{
		GenreID: genres[e.intn(len(genres))],
		SortBy:  e.movieSort(mood),
		Page:    1 + e.intn(maxMoviePage),
	}

	key := cache.Fingerprint(e.ID(), map[string]any{
		"source": "movies",
		"genre":  q.GenreID,
		"sort":   q.SortBy,
		"page":   q.Page,
	})
	raw, _, err := e.cache.Fetch(ctx, key, movieCacheTTL, func(ctx context.Context) (any, error) {
		return e.movies.Discover(ctx, q, movieLimit)
	})
	if err != nil {
		e.log.Warn("movie discovery failed", zap.String("genre", q.GenreID), zap.Error(err))
		return nil
	}
	var found []tmdb.Movie
	if err := json.Unmarshal(raw, &found); err != nil {
		e.log.Warn("decode cached movies", zap.Error(err))
		return nil
	}
	out := make([]Movie, len(found))
	for i, m := range found {
		out[i] = Movie{Movie: m, GenreID: q.GenreID, Mood: mood}
	}
	return out
}

func (e *Entertainment) movieSort(mood string) string {
	if s, ok := e.catalog.MovieSorts[mood]; ok {
		return s
	}
	if len(e.catalog.RandomSorts) == 0 {
		return "popularity.desc"
	}
	return e.catalog.RandomSorts[e.intn(len(e.catalog.RandomSorts))]
}

func (e *Entertainment) moodJokes(mood string) []Joke {
	lines := byMood(e.catalog.Jokes, mood)
	jokes := make([]Joke, len(lines))
	for i, l := range lines {
		jokes[i] = Joke{Text: l, Type: "joke"}
	}
	return jokes
}

func (e *Entertainment) fallback() Payload {
	return Payload{
		"content": map[string]any{
			"jokes": []Joke{{Text: e.catalog.FallbackJoke, Type: "fallback"}},
		},
		"mood_analysis": "general",
		"content_type":  "fallback",
		"total_items":   1,
		"error":         "Entertainment APIs not available",
	}
}

func (e *Entertainment) LearnFromSuccess(ctx context.Context, sessionID, request string, response map[string]any, feedback string) {
	e.memory.LearnFromSuccess(ctx, sessionID, request, response, feedback)
}

func (e *Entertainment) LearnFromFailure(ctx context.Context, sessionID, request string, response map[string]any, feedback string) {
	e.memory.LearnFromFailure(ctx, sessionID, request, response, feedback)
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

var (
	_ SuccessLearner = (*Entertainment)(nil)
	_ FailureLearner = (*Entertainment)(nil)
)
