package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiaot623/hati/internal/adapter/llm"
	"github.com/xiaot623/hati/internal/domain"
	"github.com/xiaot623/hati/internal/memory"
	"github.com/xiaot623/hati/internal/specialist"
)

// analyticsTurnLimit bounds the conversation count reported by Analytics.
const analyticsTurnLimit = 1000

// Chat handles one chat request end to end.
func (s *Service) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("message is required")
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}
	if req.UserID == "" {
		req.UserID = "default"
	}

	start := s.now()
	s.log.Info("chat request", zap.String("session_id", req.SessionID), zap.Int("message_length", utf8.RuneCountInString(req.Message)))

	result := s.ProcessMessage(ctx, req)
	result.ProcessingTime = s.now().Sub(start).Seconds()
	result.Metadata = map[string]any{
		"user_id":        req.UserID,
		"session_id":     req.SessionID,
		"message_length": utf8.RuneCountInString(req.Message),
		"timestamp":      float64(s.now().UnixMilli()) / 1000,
	}
	return &result, nil
}

// Feedback routes user feedback about a result to the specialist that
// produced it. Specialists without learning capabilities accept it silently.
func (s *Service) Feedback(ctx context.Context, sessionID string, req domain.FeedbackRequest) error {
	if sessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	sp, err := s.registry.Get(req.AgentType)
	if err != nil {
		return err
	}
	data := req.Data
	if data == nil {
		data = map[string]any{}
	}
	request, _ := data["request"].(string)

	if l, ok := sp.(specialist.FeedbackLearner); ok {
		l.LearnFeedback(ctx, sessionID, req.TrackID, req.Feedback, data)
	}
	switch memory.Classify(req.Feedback) {
	case domain.SentimentPositive:
		if l, ok := sp.(specialist.SuccessLearner); ok {
			l.LearnFromSuccess(ctx, sessionID, request, data, req.Feedback)
		}
	case domain.SentimentNegative:
		if l, ok := sp.(specialist.FailureLearner); ok {
			l.LearnFromFailure(ctx, sessionID, request, data, req.Feedback)
		}
	}
	s.log.Debug("feedback received", zap.String("session_id", sessionID), zap.String("agent", req.AgentType), zap.String("feedback", req.Feedback))
	return nil
}

// Analytics reports a session's mood history over the trailing days.
func (s *Service) Analytics(ctx context.Context, sessionID string, days int) (*domain.AnalyticsReport, error) {
	if days <= 0 {
		days = 30
	}
	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	moods, err := s.store.GetMoodAnalytics(ctx, sessionID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get mood analytics: %w", err)
	}
	moods.PeriodDays = days

	count, err := s.store.CountTurns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count turns: %w", err)
	}
	profile, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &domain.AnalyticsReport{
		SessionID:          sessionID,
		PeriodDays:         days,
		MoodAnalytics:      *moods,
		TotalConversations: min(count, analyticsTurnLimit),
		UserProfile:        profile,
	}, nil
}

// Turns returns the newest turns of a session, oldest first.
func (s *Service) Turns(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		limit = 10
	}
	turns, err := s.store.ListRecentTurns(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	if turns == nil {
		turns = []domain.Turn{}
	}
	return turns, nil
}

// Cleanup deletes expired cache entries.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	n, err := s.cache.Sweep(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep cache: %w", err)
	}
	return n, nil
}

// Health reports the registered specialists and whether the completion
// backend answers.
func (s *Service) Health(ctx context.Context) domain.HealthStatus {
	status := domain.HealthStatus{
		Status:           "healthy",
		Version:          Version,
		AgentsRegistered: s.registry.Len(),
	}
	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn("store ping failed", zap.Error(err))
		status.Status = "degraded"
	}
	if _, err := s.completer.Complete(ctx, []llm.ChatMessage{llm.User("Hello")}, llm.CompletionOptions{MaxTokens: 10}); err != nil {
		s.log.Warn("completion backend unreachable", zap.Error(err))
	} else {
		status.LLMConnected = true
	}
	return status
}
