package tmdb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover(t *testing.T) {
	long := strings.Repeat("a", 200)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/discover/movie", r.URL.Path)
		assert.Equal(t, "18", r.URL.Query().Get("with_genres"))
		assert.Equal(t, "vote_average.desc", r.URL.Query().Get("sort_by"))
		assert.Equal(t, "key", r.URL.Query().Get("api_key"))
		fmt.Fprintf(w, `{"results":[
			{"title":"A","overview":%q,"vote_average":7.5,"release_date":"2020-01-01","poster_path":"/a.jpg"},
			{"title":"B","overview":"short","vote_average":6.1,"release_date":"2021-01-01","poster_path":null},
			{"title":"C","overview":"c","vote_average":6.5}
		]}`, long)
	}))
	defer server.Close()

	client := NewClient("key", time.Second).WithBaseURL(server.URL)
	movies, err := client.Discover(context.Background(), DiscoverQuery{GenreID: "18", SortBy: "vote_average.desc"}, 2)
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/a.jpg", movies[0].PosterURL)
	assert.Len(t, []rune(movies[0].Overview), overviewLimit+3)
	assert.Empty(t, movies[1].PosterURL)
}

func TestDiscoverError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status_message":"Invalid API key"}`)
	}))
	defer server.Close()

	client := NewClient("bad", time.Second).WithBaseURL(server.URL)
	_, err := client.Discover(context.Background(), DiscoverQuery{GenreID: "35"}, 3)
	assert.ErrorContains(t, err, "Invalid API key")
}
