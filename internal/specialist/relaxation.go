package specialist

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/xiaot623/hati/internal/adapter/osm"
	"github.com/xiaot623/hati/internal/cache"
	"github.com/xiaot623/hati/internal/domain"
)

var errNoPlaces = errors.New("no places found")

const (
	placesCacheTTL    = 24 * time.Hour
	amenitiesPerQuery = 3
	resultsPerAmenity = 5
	maxPlaces         = 6
)

// PlaceSearcher is the place content provider.
type PlaceSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]osm.Place, error)
}

// Relaxation suggests calming places, indoor activities and breathing
// exercises.
type Relaxation struct {
	places  PlaceSearcher
	cache   *cache.Cache
	catalog RelaxationCatalog
	log     *zap.Logger
}

// NewRelaxation creates the relaxation specialist. places may be nil, in
// which case curated places are used.
func NewRelaxation(places PlaceSearcher, c *cache.Cache, catalog *Catalog, log *zap.Logger) *Relaxation {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relaxation{
		places:  places,
		cache:   c,
		catalog: catalog.Relaxation,
		log:     log.Named(domain.AgentRelaxation),
	}
}

func (r *Relaxation) ID() string { return domain.AgentRelaxation }

func (r *Relaxation) Process(ctx context.Context, message string, params Params) Payload {
	mood := params.Mood(r.catalog.DefaultMood)
	activityType := params.String("type", params.String("place_type", "mixed"))
	intensity := params.Intensity()
	location := params.String("location", r.catalog.DefaultLocation)
	if strings.EqualFold(location, r.catalog.DefaultLocation) {
		if found := r.extractLocation(message); found != "" {
			location = found
		}
	}

	lower := strings.ToLower(message)
	activities := map[string]any{}
	var places []Place
	if containsAny(lower, r.catalog.PlaceKeywords) {
		places = r.calmingPlaces(ctx, location, mood)
		activities["places"] = places
	}
	if activityType == "mixed" || activityType == "indoor" || len(places) == 0 {
		activities["indoor_activities"] = r.indoorActivities(mood, intensity)
	}
	if len(places) == 0 || containsAny(lower, r.catalog.StressKeywords) {
		activities["breathing_exercises"] = r.breathingExercises(intensity)
		if len(places) == 0 {
			activities["relaxation_tips"] = byMood(r.catalog.Tips, mood)
		}
	}

	return Payload{
		"activities":       activities,
		"mood_analysis":    mood,
		"activity_type":    activityType,
		"location_context": location,
		"total_found":      len(places),
		"search_parameters": map[string]any{
			"mood":      mood,
			"type":      activityType,
			"location":  location,
			"intensity": intensity,
		},
	}
}

// extractLocation finds a known city named in the message.
func (r *Relaxation) extractLocation(message string) string {
	cleaned := strings.Map(func(c rune) rune {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			return c
		}
		return ' '
	}, strings.ToLower(message))
	padded := " " + strings.Join(strings.Fields(cleaned), " ") + " "
	for _, city := range r.catalog.Cities {
		if strings.Contains(padded, " "+city+" ") {
			return titleCase(city)
		}
	}
	return ""
}

func (r *Relaxation) calmingPlaces(ctx context.Context, location, mood string) []Place {
	if r.places == nil {
		return r.curatedPlaces(location)
	}
	key := cache.Fingerprint(r.ID(), map[string]any{
		"source":   "places",
		"location": strings.ToLower(location),
		"mood":     mood,
	})
	raw, _, err := r.cache.Fetch(ctx, key, placesCacheTTL, func(ctx context.Context) (any, error) {
		places := r.searchPlaces(ctx, location, mood)
		if len(places) == 0 {
			return nil, errNoPlaces
		}
		return places, nil
	})
	var places []Place
	if err == nil {
		err = json.Unmarshal(raw, &places)
	}
	if err != nil {
		r.log.Warn("place search failed", zap.String("location", location), zap.Error(err))
	}
	if len(places) == 0 {
		return r.curatedPlaces(location)
	}
	return places
}

func (r *Relaxation) searchPlaces(ctx context.Context, location, mood string) []Place {
	amenities := byMood(r.catalog.Amenities, mood)
	if len(amenities) > amenitiesPerQuery {
		amenities = amenities[:amenitiesPerQuery]
	}

	seen := map[string]bool{}
	var places []Place
	for _, a := range amenities {
		results, err := r.places.Search(ctx, a.Query+" "+location, resultsPerAmenity*2)
		if err != nil {
			r.log.Debug("amenity search failed", zap.String("amenity", a.Query), zap.Error(err))
			continue
		}
		if len(results) > resultsPerAmenity {
			results = results[:resultsPerAmenity]
		}
		for _, p := range results {
			name := strings.ToLower(strings.TrimSpace(p.Name))
			if seen[name] {
				continue
			}
			seen[name] = true
			places = append(places, Place{
				Name:        p.Name,
				Type:        a.Name,
				Address:     p.DisplayName,
				Description: a.Name + " di " + location,
				Lat:         p.Lat,
				Lng:         p.Lng,
				Source:      "OpenStreetMap",
				OSMID:       p.OSMID,
			})
		}
	}
	if len(places) > maxPlaces {
		places = places[:maxPlaces]
	}
	return places
}

// curatedPlaces picks the longest curated city named in location, so
// "yogyakarta" is not mistaken for "jakarta".
func (r *Relaxation) curatedPlaces(location string) []Place {
	lower := strings.ToLower(location)
	best := ""
	for city := range r.catalog.CuratedPlaces {
		if strings.Contains(lower, city) && len(city) > len(best) {
			best = city
		}
	}
	if best == "" {
		best = strings.ToLower(r.catalog.DefaultLocation)
	}
	return withSource(r.catalog.CuratedPlaces[best])
}

func withSource(places []Place) []Place {
	out := make([]Place, len(places))
	for i, p := range places {
		p.Source = "Curated Database"
		out[i] = p
	}
	return out
}

func (r *Relaxation) indoorActivities(mood, intensity string) []Activity {
	all, ok := r.catalog.IndoorActivities[mood]
	if !ok {
		all = r.catalog.IndoorActivities[r.catalog.DefaultMood]
	}
	switch intensity {
	case "high":
		return all
	case "low":
		var easy []Activity
		for _, a := range all {
			if a.Difficulty == "easy" {
				easy = append(easy, a)
			}
		}
		if len(easy) > 3 {
			easy = easy[:3]
		}
		return easy
	default:
		if len(all) > 3 {
			return all[:3]
		}
		return all
	}
}

// breathingExercises picks exercises by intensity: the simplest one when
// low, all of them when high, 4-7-8 plus the simple one otherwise.
func (r *Relaxation) breathingExercises(intensity string) []BreathingExercise {
	all := r.catalog.Breathing
	if len(all) == 0 {
		return nil
	}
	simple := all[len(all)-1]
	switch intensity {
	case "low":
		return []BreathingExercise{simple}
	case "high":
		return all
	default:
		return []BreathingExercise{all[0], simple}
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
