package specialist

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xiaot623/hati/internal/adapter/osm"
	"github.com/xiaot623/hati/internal/cache"
	"github.com/xiaot623/hati/tests/helpers"
)

type fakePlaces struct {
	err error

	mu      sync.Mutex
	queries []string
}

func (f *fakePlaces) Search(ctx context.Context, query string, limit int) ([]osm.Place, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	amenity := strings.Fields(query)[0]
	return []osm.Place{
		{Name: "Shared Spot", DisplayName: "Shared Spot, Kota"},
		{Name: "Only " + amenity, DisplayName: "Only " + amenity + ", Kota", OSMID: 7},
	}, nil
}

func newRelaxation(t *testing.T, places PlaceSearcher) *Relaxation {
	t.Helper()
	store := helpers.NewTestSQLiteStore(t)
	log := zaptest.NewLogger(t)
	return NewRelaxation(places, cache.New(store, log), MustLoadCatalog(), log)
}

func TestRelaxationPlacesFromMessageLocation(t *testing.T) {
	places := &fakePlaces{}
	r := newRelaxation(t, places)

	payload := r.Process(context.Background(), "rekomendasi tempat tenang di Bandung, dong!", Params{"mood": "sad", "type": "outdoor"})

	assert.Equal(t, "Bandung", payload["location_context"])
	assert.Equal(t, []string{"park Bandung", "museum Bandung", "library Bandung"}, places.queries)

	activities := payload["activities"].(map[string]any)
	found := activities["places"].([]Place)
	require.Len(t, found, 4, "duplicates across amenities are dropped")
	assert.Equal(t, "Shared Spot", found[0].Name)
	assert.Equal(t, "Taman", found[0].Type)
	assert.Equal(t, "Museum di Bandung", found[2].Description)
	assert.Equal(t, 4, payload["total_found"])
	assert.NotContains(t, activities, "indoor_activities", "outdoor request with places skips indoor ideas")
	assert.NotContains(t, activities, "breathing_exercises")
}

func TestRelaxationPlacesAreCached(t *testing.T) {
	places := &fakePlaces{}
	r := newRelaxation(t, places)
	ctx := context.Background()

	r.Process(ctx, "jalan-jalan ke jogja", Params{"mood": "happy"})
	r.Process(ctx, "wisata di jogja", Params{"mood": "happy"})

	assert.Len(t, places.queries, 3)
}

func TestRelaxationCuratedFallback(t *testing.T) {
	r := newRelaxation(t, &fakePlaces{err: errors.New("rate limited")})

	payload := r.Process(context.Background(), "cari tempat buat stress di yogyakarta", Params{})

	activities := payload["activities"].(map[string]any)
	found := activities["places"].([]Place)
	require.NotEmpty(t, found)
	assert.Equal(t, "Candi Prambanan", found[0].Name)
	assert.Equal(t, "Curated Database", found[0].Source)
	assert.Contains(t, activities, "breathing_exercises", "stress keywords add breathing even with places")
	assert.NotContains(t, activities, "relaxation_tips")
	assert.Equal(t, "stressed", payload["mood_analysis"])
}

func TestRelaxationWithoutPlaceRequest(t *testing.T) {
	r := newRelaxation(t, nil)

	payload := r.Process(context.Background(), "aku capek banget", Params{"mood": "tired", "intensity": "low"})

	assert.Equal(t, "Jakarta", payload["location_context"])
	activities := payload["activities"].(map[string]any)
	assert.NotContains(t, activities, "places")

	indoor := activities["indoor_activities"].([]Activity)
	require.Len(t, indoor, 3)
	for _, a := range indoor {
		assert.Equal(t, "easy", a.Difficulty)
	}
	breathing := activities["breathing_exercises"].([]BreathingExercise)
	require.Len(t, breathing, 1)
	assert.Equal(t, "Simple Deep Breathing", breathing[0].Name)
	assert.Equal(t, MustLoadCatalog().Relaxation.Tips["default"], activities["relaxation_tips"])
}

func TestRelaxationIntensity(t *testing.T) {
	r := newRelaxation(t, nil)

	assert.Len(t, r.indoorActivities("anxious", "high"), 4)
	assert.Len(t, r.indoorActivities("anxious", "medium"), 3)
	assert.Len(t, r.indoorActivities("anxious", "low"), 1)
	assert.Equal(t, r.indoorActivities("stressed", "medium"), r.indoorActivities("unknown", "medium"))

	assert.Len(t, r.breathingExercises("high"), 3)
	medium := r.breathingExercises("medium")
	require.Len(t, medium, 2)
	assert.Equal(t, "4-7-8 Technique", medium[0].Name)
}

func TestExtractLocation(t *testing.T) {
	r := newRelaxation(t, nil)

	tests := []struct {
		message string
		want    string
	}{
		{"pengen ke bandar lampung", "Bandar Lampung"},
		{"Bali!", "Bali"},
		{"ada yang asik di solo?", "Solo"},
		{"di rumah aja", ""},
		{"consolation", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.extractLocation(tt.message), tt.message)
	}
}
