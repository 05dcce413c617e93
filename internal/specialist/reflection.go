package specialist

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/xiaot623/hati/internal/adapter/llm"
	"github.com/xiaot623/hati/internal/domain"
)

const insightsPrompt = `Kamu adalah seorang counselor yang bijaksana dan empatik. Berikan insights yang mendalam dan bermakna berdasarkan pesan pengguna.

Mood yang terdeteksi: %s
Topik: %s

Tugas kamu:
1. Identifikasi tema-tema emosional dalam pesan
2. Berikan perspektif yang membangun dan mendukung
3. Bantu pengguna melihat situasi dari sudut pandang yang berbeda
4. Berikan validasi emosional yang tepat

Balas dalam format JSON: {"insights": ["insight 1", "insight 2", "insight 3"]}
Gaya bicara: hangat, mendukung, tidak menggurui, bahasa Indonesia yang natural.`

// HistoryReader exposes a session's live conversation window.
type HistoryReader interface {
	Snapshot(ctx context.Context, sessionID string) ([]domain.Turn, string)
}

// Reflection holds an introspective conversation: insights, questions and
// exercises for the user to sit with.
type Reflection struct {
	completer llm.Completer
	history   HistoryReader
	catalog   ReflectionCatalog
	log       *zap.Logger
}

// NewReflection creates the reflection specialist. history may be nil.
func NewReflection(completer llm.Completer, history HistoryReader, catalog *Catalog, log *zap.Logger) *Reflection {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reflection{
		completer: completer,
		history:   history,
		catalog:   catalog.Reflection,
		log:       log.Named(domain.AgentReflection),
	}
}

func (r *Reflection) ID() string { return domain.AgentReflection }

func (r *Reflection) Process(ctx context.Context, message string, params Params) Payload {
	mood := params.Mood(r.catalog.DefaultMood)
	conversationType := params.String("type", "deep")
	topic := params.String("topic", "general")

	sessionContext := map[string]any{
		"topic":             topic,
		"mood":              mood,
		"message_length":    utf8.RuneCountInString(message),
		"reflection_depth":  conversationType,
		"live_turns":        0,
		"has_prior_summary": false,
	}
	if r.history != nil {
		turns, summary := r.history.Snapshot(ctx, params.SessionID())
		sessionContext["live_turns"] = len(turns)
		sessionContext["has_prior_summary"] = summary != ""
	}

	return Payload{
		"reflection": map[string]any{
			"insights":    r.insights(ctx, message, mood, topic),
			"questions":   byMood(r.catalog.Questions, mood),
			"suggestions": r.suggestions(mood),
		},
		"conversation_type": conversationType,
		"emotional_context": mood,
		"follow_up_prompts": r.followUps(mood),
		"session_context":   sessionContext,
	}
}

func (r *Reflection) insights(ctx context.Context, message, mood, topic string) []string {
	if r.completer == nil {
		return r.catalog.InsightsFallback
	}
	messages := []llm.ChatMessage{
		llm.System(fmt.Sprintf(insightsPrompt, mood, topic)),
		llm.User("Pesan dari pengguna: " + message),
	}
	content, err := r.completer.Complete(ctx, messages, llm.CompletionOptions{
		Temperature: 0.7,
		MaxTokens:   300,
		JSONMode:    true,
	})
	if err != nil {
		r.log.Warn("insight generation failed", zap.Error(err))
		return r.catalog.InsightsFallback
	}

	var insights []string
	gjson.Get(content, "insights").ForEach(func(_, v gjson.Result) bool {
		if s := strings.TrimSpace(v.String()); s != "" {
			insights = append(insights, s)
		}
		return true
	})
	if len(insights) == 0 {
		return r.catalog.InsightsFallback
	}
	return insights
}

func (r *Reflection) suggestions(mood string) []Suggestion {
	keys := byMood(r.catalog.SuggestionSets, mood)
	out := make([]Suggestion, 0, 3)
	for _, k := range keys {
		if s, ok := r.catalog.Suggestions[k]; ok {
			out = append(out, s)
		}
		if len(out) == 3 {
			break
		}
	}
	return out
}

// followUps puts mood-specific prompts ahead of the general ones.
func (r *Reflection) followUps(mood string) []string {
	prompts := append([]string{}, r.catalog.FollowUps[strings.ToLower(mood)]...)
	prompts = append(prompts, r.catalog.FollowUps[defaultKey]...)
	if len(prompts) > 3 {
		prompts = prompts[:3]
	}
	return prompts
}
