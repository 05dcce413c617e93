// Package service implements the dispatcher: delegation, specialist
// invocation, personalization and the bookkeeping around one chat turn.
package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/xiaot623/hati/internal/adapter/llm"
	"github.com/xiaot623/hati/internal/cache"
	"github.com/xiaot623/hati/internal/history"
	"github.com/xiaot623/hati/internal/policy"
	"github.com/xiaot623/hati/internal/repository"
	"github.com/xiaot623/hati/internal/specialist"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Deps are the collaborators of a Service. Policy may be nil, in which case
// only registration is checked.
type Deps struct {
	Store     repository.Store
	Completer llm.Completer
	Registry  *specialist.Registry
	Policy    *policy.Engine
	History   *history.Compactor
	Cache     *cache.Cache
	Log       *zap.Logger
	Now       func() time.Time
}

type Service struct {
	store     repository.Store
	completer llm.Completer
	registry  *specialist.Registry
	policy    *policy.Engine
	history   *history.Compactor
	cache     *cache.Cache
	log       *zap.Logger
	now       func() time.Time
}

func New(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	h := d.History
	if h == nil {
		h = history.NewCompactor(d.Store, history.NewLLMSummarizer(d.Completer), log)
	}
	c := d.Cache
	if c == nil {
		c = cache.New(d.Store, log)
	}
	return &Service{
		store:     d.Store,
		completer: d.Completer,
		registry:  d.Registry,
		policy:    d.Policy,
		history:   h,
		cache:     c,
		log:       log.Named("dispatcher"),
		now:       now,
	}
}

// History exposes the live conversation windows, e.g. to the reflection
// specialist.
func (s *Service) History() *history.Compactor {
	return s.history
}
