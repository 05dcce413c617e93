package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/hati/internal/domain"
	"github.com/xiaot623/hati/tests/helpers"
)

func TestChatGeneratesSessionID(t *testing.T) {
	completer := &helpers.FakeCompleter{JSON: helpers.Reply(sadMusicDelegation), Text: helpers.Reply("Ini buat kamu.")}
	f := newFixture(t, completer)

	result, err := f.svc.Chat(context.Background(), domain.ChatRequest{
		Message:     "cariin musik sedih dong",
		Preferences: json.RawMessage(`[]`),
	})
	require.NoError(t, err)

	_, err = uuid.Parse(result.SessionID)
	require.NoError(t, err, "session id should be a uuid")
	assert.Equal(t, domain.AgentMusic, result.AgentUsed)
	assert.Equal(t, "default", result.Metadata["user_id"])
	assert.Equal(t, result.SessionID, result.Metadata["session_id"])
	assert.Equal(t, 23, result.Metadata["message_length"])
	assert.GreaterOrEqual(t, result.ProcessingTime, 0.0)

	session, err := f.store.GetSession(context.Background(), result.SessionID)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Empty(t, session.Preferences, "a preference list is treated as no preferences")
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	f := newFixture(t, &helpers.FakeCompleter{})
	_, err := f.svc.Chat(context.Background(), domain.ChatRequest{Message: "   "})
	require.Error(t, err)
}

func TestFeedbackRoutesToLearners(t *testing.T) {
	learner := learningSpecialist{&stubSpecialist{id: domain.AgentEntertainment}}
	f := newFixture(t, &helpers.FakeCompleter{}, withSpecialist(learner))
	ctx := context.Background()

	require.NoError(t, f.svc.Feedback(ctx, "s1", domain.FeedbackRequest{
		AgentType: domain.AgentEntertainment,
		TrackID:   "t1",
		Feedback:  "love",
		Data:      map[string]any{"request": "kasih jokes"},
	}))
	require.NoError(t, f.svc.Feedback(ctx, "s1", domain.FeedbackRequest{
		AgentType: domain.AgentEntertainment,
		Feedback:  "dislike",
		Data:      map[string]any{"request": "kasih meme"},
	}))
	require.NoError(t, f.svc.Feedback(ctx, "s1", domain.FeedbackRequest{
		AgentType: domain.AgentEntertainment,
		Feedback:  "meh",
	}))

	assert.Equal(t, []string{"s1/t1/love", "s1//dislike", "s1//meh"}, learner.feedback)
	assert.Equal(t, []string{"kasih jokes"}, learner.success)
	assert.Equal(t, []string{"kasih meme"}, learner.failure)
}

func TestFeedbackWithoutLearnerCapabilities(t *testing.T) {
	f := newFixture(t, &helpers.FakeCompleter{})
	ctx := context.Background()

	require.NoError(t, f.svc.Feedback(ctx, "s1", domain.FeedbackRequest{AgentType: domain.AgentReflection, Feedback: "love"}))

	err := f.svc.Feedback(ctx, "s1", domain.FeedbackRequest{AgentType: "astrology", Feedback: "love"})
	require.ErrorIs(t, err, domain.ErrUnknownAgent)

	err = f.svc.Feedback(ctx, "", domain.FeedbackRequest{AgentType: domain.AgentReflection})
	require.Error(t, err)
}

func TestAnalyticsAndTurns(t *testing.T) {
	ctx := context.Background()
	completer := &helpers.FakeCompleter{JSON: helpers.Reply(sadMusicDelegation), Text: helpers.Reply("Ini buat kamu.")}
	f := newFixture(t, completer)

	for _, msg := range []string{"cariin musik sedih dong", "lagi dong", "satu lagi"} {
		_, err := f.svc.Chat(ctx, domain.ChatRequest{SessionID: "s1", UserName: "Rani", Message: msg})
		require.NoError(t, err)
	}
	require.NoError(t, f.store.CreateMoodSample(ctx, &domain.MoodSample{
		SessionID: "s1",
		Mood:      "happy",
		Triggers:  []string{"exam"},
		Ts:        time.Now().AddDate(0, 0, -40).UnixMilli(),
	}))

	report, err := f.svc.Analytics(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Equal(t, 30, report.PeriodDays)
	assert.Equal(t, 30, report.MoodAnalytics.PeriodDays)
	assert.Equal(t, map[string]int{"sad": 3}, report.MoodAnalytics.MoodFrequency)
	assert.Equal(t, 3, report.MoodAnalytics.TotalEntries)
	assert.Equal(t, 3, report.TotalConversations)
	require.NotNil(t, report.UserProfile)
	assert.Equal(t, "Rani", report.UserProfile.Name)

	report, err = f.svc.Analytics(ctx, "s1", 60)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"sad": 3, "happy": 1}, report.MoodAnalytics.MoodFrequency)
	assert.Equal(t, map[string]int{"exam": 1}, report.MoodAnalytics.CommonTriggers)

	turns, err := f.svc.Turns(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "lagi dong", turns[0].UserMessage)
	assert.Equal(t, "satu lagi", turns[1].UserMessage)

	empty, err := f.svc.Turns(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, &helpers.FakeCompleter{Text: helpers.Reply("hi")})
	status := f.svc.Health(context.Background())
	assert.Equal(t, domain.HealthStatus{Status: "healthy", Version: Version, AgentsRegistered: 2, LLMConnected: true}, status)

	f = newFixture(t, &helpers.FakeCompleter{Text: helpers.Fail("no key")})
	status = f.svc.Health(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.False(t, status.LLMConnected)
}
