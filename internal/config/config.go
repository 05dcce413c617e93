// Package config provides configuration for the hati server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. HATI_HTTP_PORT.
const EnvPrefix = "HATI"

// Config holds the server configuration.
type Config struct {
	// Server settings
	HTTPPort    int
	FrontendURL string

	// Database
	DatabaseURL string

	// Mode selects the completion backend; MOCK runs offline.
	Mode string

	LLM     LLMConfig
	Spotify SpotifyConfig
	TMDB    APIKeyConfig
	Giphy   APIKeyConfig
	OSM     OSMConfig
	WS      WSConfig
	Log     LogConfig

	// Timeouts
	ProviderTimeout time.Duration

	// Cache
	SweepSchedule string
}

// LLMConfig configures the OpenAI-compatible completion backend.
type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

type APIKeyConfig struct {
	APIKey string
}

type OSMConfig struct {
	BaseURL   string
	UserAgent string
}

// WSConfig configures the chat WebSocket.
type WSConfig struct {
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
}

type LogConfig struct {
	Level  string
	Format string
}

var defaults = map[string]any{
	"http_port":             8000,
	"frontend_url":          "http://localhost:3000",
	"database_url":          "file:hati.db?cache=shared&mode=rwc",
	"mode":                  "",
	"llm.base_url":          "https://api.groq.com/openai",
	"llm.api_key":           "",
	"llm.model":             "llama-3.1-8b-instant",
	"llm.timeout":           30 * time.Second,
	"spotify.client_id":     "",
	"spotify.client_secret": "",
	"tmdb.api_key":          "",
	"giphy.api_key":         "",
	"osm.base_url":          "https://nominatim.openstreetmap.org",
	"osm.user_agent":        "HatiApp/1.0 (relaxation-assistant)",
	"provider.timeout":      10 * time.Second,
	"cache.sweep_schedule":  "@every 30m",
	"ws.ping_interval":      30 * time.Second,
	"ws.write_timeout":      10 * time.Second,
	"ws.read_timeout":       60 * time.Second,
	"ws.max_message_size":   65536,
	"log.level":             "info",
	"log.format":            "json",
}

// Load reads configuration from defaults, the optional config file and
// HATI_* environment variables, in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	return LoadFrom(viper.New(), configFile)
}

// LoadFrom is Load on a caller-provided viper instance.
func LoadFrom(v *viper.Viper, configFile string) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys commonly set without the prefix.
	_ = v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "GROQ_API_KEY")
	_ = v.BindEnv("spotify.client_id", EnvPrefix+"_SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_ID")
	_ = v.BindEnv("spotify.client_secret", EnvPrefix+"_SPOTIFY_CLIENT_SECRET", "SPOTIFY_CLIENT_SECRET")
	_ = v.BindEnv("tmdb.api_key", EnvPrefix+"_TMDB_API_KEY", "TMDB_API_KEY")
	_ = v.BindEnv("giphy.api_key", EnvPrefix+"_GIPHY_API_KEY", "GIPHY_API_KEY")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		HTTPPort:    v.GetInt("http_port"),
		FrontendURL: v.GetString("frontend_url"),
		DatabaseURL: v.GetString("database_url"),
		Mode:        v.GetString("mode"),
		LLM: LLMConfig{
			BaseURL: v.GetString("llm.base_url"),
			APIKey:  v.GetString("llm.api_key"),
			Model:   v.GetString("llm.model"),
			Timeout: v.GetDuration("llm.timeout"),
		},
		Spotify: SpotifyConfig{
			ClientID:     v.GetString("spotify.client_id"),
			ClientSecret: v.GetString("spotify.client_secret"),
		},
		TMDB:  APIKeyConfig{APIKey: v.GetString("tmdb.api_key")},
		Giphy: APIKeyConfig{APIKey: v.GetString("giphy.api_key")},
		OSM: OSMConfig{
			BaseURL:   v.GetString("osm.base_url"),
			UserAgent: v.GetString("osm.user_agent"),
		},
		WS: WSConfig{
			PingInterval:   v.GetDuration("ws.ping_interval"),
			WriteTimeout:   v.GetDuration("ws.write_timeout"),
			ReadTimeout:    v.GetDuration("ws.read_timeout"),
			MaxMessageSize: v.GetInt64("ws.max_message_size"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		ProviderTimeout: v.GetDuration("provider.timeout"),
		SweepSchedule:   v.GetString("cache.sweep_schedule"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port out of range: %d", c.HTTPPort)
	}
	if c.DatabaseURL == "" {
		return errors.New("database_url is required")
	}
	if c.WS.PingInterval >= c.WS.ReadTimeout {
		return fmt.Errorf("ws.ping_interval (%s) must be shorter than ws.read_timeout (%s)", c.WS.PingInterval, c.WS.ReadTimeout)
	}
	return nil
}
