package specialist

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

const defaultKey = "default"

// Catalog holds the mood tables the specialists draw from.
type Catalog struct {
	Music         MusicCatalog         `yaml:"music"`
	Entertainment EntertainmentCatalog `yaml:"entertainment"`
	Relaxation    RelaxationCatalog    `yaml:"relaxation"`
	Reflection    ReflectionCatalog    `yaml:"reflection"`
}

type MusicCatalog struct {
	DefaultGenre    string            `yaml:"default_genre"`
	Genres          map[string]string `yaml:"genres"`
	Translations    map[string]string `yaml:"translations"`
	UnwantedArtists []string          `yaml:"unwanted_artists"`
	FallbackTracks  []Track           `yaml:"fallback_tracks"`
	Ambient         []AmbientSound    `yaml:"ambient"`
}

// Track is one music recommendation.
type Track struct {
	Title       string `yaml:"title" json:"title"`
	Artist      string `yaml:"artist" json:"artist"`
	Album       string `yaml:"album" json:"album"`
	URL         string `yaml:"url" json:"url"`
	PreviewURL  string `yaml:"preview_url" json:"preview_url,omitempty"`
	CoverURL    string `yaml:"cover_url" json:"cover_url,omitempty"`
	ReleaseDate string `yaml:"release_date" json:"release_date"`
	Popularity  int    `yaml:"popularity" json:"popularity"`
	DurationMs  int    `yaml:"duration_ms" json:"duration_ms"`
	Explicit    bool   `yaml:"explicit" json:"explicit"`
	Note        string `yaml:"note" json:"note,omitempty"`
}

type AmbientSound struct {
	Name        string `yaml:"name" json:"name"`
	Title       string `yaml:"title" json:"title"`
	URL         string `yaml:"url" json:"url"`
	Description string `yaml:"description" json:"description"`
}

type EntertainmentCatalog struct {
	GIFTerms     map[string][]string `yaml:"gif_terms"`
	MovieGenres  map[string][]string `yaml:"movie_genres"`
	MovieSorts   map[string]string   `yaml:"movie_sorts"`
	RandomSorts  []string            `yaml:"random_sorts"`
	Jokes        map[string][]string `yaml:"jokes"`
	FallbackJoke string              `yaml:"fallback_joke"`
}

type RelaxationCatalog struct {
	DefaultMood      string                `yaml:"default_mood"`
	DefaultLocation  string                `yaml:"default_location"`
	Cities           []string              `yaml:"cities"`
	PlaceKeywords    []string              `yaml:"place_keywords"`
	StressKeywords   []string              `yaml:"stress_keywords"`
	Amenities        map[string][]Amenity  `yaml:"amenities"`
	CuratedPlaces    map[string][]Place    `yaml:"curated_places"`
	IndoorActivities map[string][]Activity `yaml:"indoor_activities"`
	Breathing        []BreathingExercise   `yaml:"breathing"`
	Tips             map[string][]string   `yaml:"tips"`
}

// Amenity is a Nominatim query term and its display label.
type Amenity struct {
	Query string `yaml:"query"`
	Name  string `yaml:"name"`
}

// Place is a calming place, either searched or curated.
type Place struct {
	Name        string  `yaml:"name" json:"name"`
	Type        string  `yaml:"type" json:"type"`
	Address     string  `yaml:"address" json:"address"`
	Description string  `yaml:"description" json:"description"`
	Lat         float64 `yaml:"lat" json:"lat"`
	Lng         float64 `yaml:"lng" json:"lng"`
	Rating      float64 `yaml:"rating" json:"rating,omitempty"`
	Source      string  `yaml:"source" json:"source"`
	OSMID       int64   `yaml:"-" json:"osm_id,omitempty"`
}

type Activity struct {
	Activity   string `yaml:"activity" json:"activity"`
	Duration   string `yaml:"duration" json:"duration"`
	Difficulty string `yaml:"difficulty" json:"difficulty"`
}

type BreathingExercise struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Duration    string   `yaml:"duration" json:"duration"`
	GoodFor     []string `yaml:"good_for" json:"good_for,omitempty"`
	Steps       []string `yaml:"steps" json:"steps"`
}

type ReflectionCatalog struct {
	DefaultMood      string                `yaml:"default_mood"`
	InsightsFallback []string              `yaml:"insights_fallback"`
	Questions        map[string][]string   `yaml:"questions"`
	Suggestions      map[string]Suggestion `yaml:"suggestions"`
	SuggestionSets   map[string][]string   `yaml:"suggestion_sets"`
	FollowUps        map[string][]string   `yaml:"follow_ups"`
}

type Suggestion struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	TimeNeeded  string `yaml:"time_needed" json:"time_needed"`
	Benefits    string `yaml:"benefits" json:"benefits"`
}

// LoadCatalog parses the embedded catalog.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog parses a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if c.Music.DefaultGenre == "" {
		return nil, fmt.Errorf("parse catalog: music.default_genre is required")
	}
	return &c, nil
}

// MustLoadCatalog is LoadCatalog for package-level wiring; the embedded
// document is fixed at build time.
func MustLoadCatalog() *Catalog {
	c, err := LoadCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// byMood looks up mood case-insensitively, falling back to the default entry.
func byMood[T any](table map[string]T, mood string) T {
	if v, ok := table[strings.ToLower(mood)]; ok {
		return v
	}
	return table[defaultKey]
}
