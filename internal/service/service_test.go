package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xiaot623/hati/internal/domain"
	"github.com/xiaot623/hati/internal/history"
	"github.com/xiaot623/hati/internal/policy"
	"github.com/xiaot623/hati/internal/repository"
	"github.com/xiaot623/hati/internal/specialist"
	"github.com/xiaot623/hati/tests/helpers"
)

// stubSpecialist returns a fixed payload and records what it was asked.
type stubSpecialist struct {
	id      string
	payload specialist.Payload
	panics  bool

	mu       sync.Mutex
	params   []specialist.Params
	feedback []string
	success  []string
	failure  []string
}

func (s *stubSpecialist) ID() string { return s.id }

func (s *stubSpecialist) Process(ctx context.Context, message string, params specialist.Params) specialist.Payload {
	if s.panics {
		panic("boom")
	}
	s.mu.Lock()
	s.params = append(s.params, params)
	s.mu.Unlock()
	out := specialist.Payload{}
	for k, v := range s.payload {
		out[k] = v
	}
	return out
}

func (s *stubSpecialist) calls() []specialist.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]specialist.Params(nil), s.params...)
}

// learningSpecialist additionally implements every learner capability.
type learningSpecialist struct {
	*stubSpecialist
}

func (l learningSpecialist) LearnFeedback(ctx context.Context, sessionID, itemID, feedback string, data map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.feedback = append(l.feedback, sessionID+"/"+itemID+"/"+feedback)
}

func (l learningSpecialist) LearnFromSuccess(ctx context.Context, sessionID, request string, response map[string]any, feedback string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.success = append(l.success, request)
}

func (l learningSpecialist) LearnFromFailure(ctx context.Context, sessionID, request string, response map[string]any, feedback string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failure = append(l.failure, request)
}

type fixture struct {
	svc       *Service
	store     repository.Store
	completer *helpers.FakeCompleter
	agents    map[string]*stubSpecialist
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	store  repository.Store
	policy bool
	extra  []specialist.Specialist
}

func withStore(store repository.Store) fixtureOption {
	return func(c *fixtureConfig) { c.store = store }
}

func withPolicy() fixtureOption {
	return func(c *fixtureConfig) { c.policy = true }
}

func withSpecialist(s specialist.Specialist) fixtureOption {
	return func(c *fixtureConfig) { c.extra = append(c.extra, s) }
}

// newFixture wires a Service with stub music and reflection specialists.
func newFixture(t *testing.T, completer *helpers.FakeCompleter, opts ...fixtureOption) *fixture {
	t.Helper()
	var cfg fixtureConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	store := cfg.store
	if store == nil {
		store = helpers.NewTestSQLiteStore(t)
	}

	agents := map[string]*stubSpecialist{
		domain.AgentMusic: {
			id: domain.AgentMusic,
			payload: specialist.Payload{
				"recommendations": []any{
					map[string]any{"title": "Someone Like You", "artist": "Adele"},
					map[string]any{"title": "Fix You", "artist": "Coldplay"},
				},
				"genre":         "blues",
				"mood_analysis": "sad",
			},
		},
		domain.AgentReflection: {
			id: domain.AgentReflection,
			payload: specialist.Payload{
				"reflection": map[string]any{"insights": []any{"Kamu tidak sendirian."}},
			},
		},
	}
	all := []specialist.Specialist{agents[domain.AgentMusic], agents[domain.AgentReflection]}
	all = append(all, cfg.extra...)
	registry, err := specialist.NewRegistry(all...)
	require.NoError(t, err)

	var engine *policy.Engine
	if cfg.policy {
		engine, err = policy.NewEngine(context.Background(), policy.DefaultPolicy, domain.DefaultAgent)
		require.NoError(t, err)
	}

	log := zaptest.NewLogger(t)
	svc := New(Deps{
		Store:     store,
		Completer: completer,
		Registry:  registry,
		Policy:    engine,
		History:   history.NewCompactor(store, history.NewLLMSummarizer(completer), log),
		Log:       log,
	})
	return &fixture{svc: svc, store: store, completer: completer, agents: agents}
}

// failingStore rejects every write of a turn or mood sample.
type failingStore struct {
	repository.Store
}

func (failingStore) CreateTurn(ctx context.Context, turn *domain.Turn) error {
	return errDiskFull
}

func (failingStore) CreateMoodSample(ctx context.Context, sample *domain.MoodSample) error {
	return errDiskFull
}

var errDiskFull = errors.New("disk full")
