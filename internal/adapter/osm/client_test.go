package osm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "park Bandung", r.URL.Query().Get("q"))
		assert.Equal(t, "id", r.URL.Query().Get("countrycodes"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `[
			{"display_name":"Taman Lansia, Bandung, Jawa Barat","lat":"-6.90","lon":"107.62","osm_id":123,"osm_type":"way","class":"leisure","type":"park"},
			{"display_name":"X, Bandung","lat":"0","lon":"0"}
		]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-agent", time.Second)
	places, err := client.Search(context.Background(), "park Bandung", 10)
	require.NoError(t, err)
	require.Len(t, places, 1, "names shorter than three characters are skipped")
	assert.Equal(t, "Taman Lansia", places[0].Name)
	assert.InDelta(t, -6.90, places[0].Lat, 0.001)
	assert.Equal(t, int64(123), places[0].OSMID)
}

func TestSearchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "slow down")
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "", time.Second).Search(context.Background(), "park", 1)
	assert.ErrorContains(t, err, "slow down")
}
