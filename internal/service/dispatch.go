package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/xiaot623/hati/internal/adapter/llm"
	"github.com/xiaot623/hati/internal/domain"
	"github.com/xiaot623/hati/internal/policy"
	"github.com/xiaot623/hati/internal/specialist"
)

const personalizationTurns = 3

// renderedKeys are payload keys the client renders itself. The
// personalization call only needs to know how many items they hold.
var renderedKeys = map[string]string{
	domain.AgentMusic:         "recommendations",
	domain.AgentEntertainment: "content",
	domain.AgentRelaxation:    "activities",
}

// ProcessMessage runs one message through delegation, the chosen
// specialist and personalization, then records the turn. It never returns
// an error: any failure it cannot absorb yields the apology result, and
// nothing is persisted for it. req.SessionID must be set.
func (s *Service) ProcessMessage(ctx context.Context, req domain.ChatRequest) (result domain.ChatResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("pipeline panic", zap.String("session_id", req.SessionID), zap.Any("panic", r), zap.Stack("stack"))
			result = apology(req.SessionID)
		}
	}()

	profile := s.upsertSession(ctx, req)

	d := s.delegate(ctx, req.Message)
	if !slices.Contains(s.registry.IDs(), d.Agent) {
		s.log.Warn("delegation chose unregistered agent", zap.String("proposed", d.Agent))
		d = fallbackDelegation(domain.UnregisteredReasoning)
	}
	agent := s.guard(ctx, d.Agent, req.Message)
	if agent != d.Agent {
		s.log.Info("delegation rewritten", zap.String("proposed", d.Agent), zap.String("agent", agent))
	}

	sp, err := s.registry.Get(agent)
	if err != nil {
		s.log.Error("no specialist to handle message", zap.String("agent", agent), zap.Error(err))
		return apology(req.SessionID)
	}

	params := specialist.Params{}
	for k, v := range d.Parameters {
		params[k] = v
	}
	params["mood"] = d.Mood
	params["session_id"] = req.SessionID
	if profile != nil {
		params["user_profile"] = profile
	}

	payload := sp.Process(ctx, req.Message, params)
	if payload == nil {
		payload = specialist.Payload{}
	}
	payload["delegation_context"] = map[string]any{
		"detected_mood": d.Mood,
		"reasoning":     d.Reasoning,
	}

	recent, summary := s.history.Snapshot(ctx, req.SessionID)
	if len(recent) > personalizationTurns {
		recent = recent[len(recent)-personalizationTurns:]
	}
	response, err := s.personalize(ctx, req.Message, agent, payload, recent, summary)
	if err != nil {
		s.log.Error("personalization failed", zap.String("session_id", req.SessionID), zap.String("agent", agent), zap.Error(err))
		return apology(req.SessionID)
	}

	s.persist(ctx, req.SessionID, req.Message, response, d.Mood, agent, payload)

	return domain.ChatResult{
		Response:       response,
		AgentUsed:      agent,
		MoodDetected:   d.Mood,
		SpecialistData: payload,
		SessionID:      req.SessionID,
		Personalized:   len(recent) > 0 || summary != "",
	}
}

func apology(sessionID string) domain.ChatResult {
	return domain.ChatResult{
		Response:       domain.Apology,
		AgentUsed:      domain.DefaultAgent,
		MoodDetected:   domain.NeutralMood,
		SpecialistData: map[string]any{},
		SessionID:      sessionID,
		Failed:         true,
	}
}

func (s *Service) upsertSession(ctx context.Context, req domain.ChatRequest) *domain.Session {
	session, err := s.store.UpsertSession(ctx, req.SessionID, req.UserName, req.NormalizedPreferences())
	if err != nil {
		s.log.Warn("upsert session failed", zap.Error(domain.NewPersistenceError("upsert session "+req.SessionID, err)))
		return nil
	}
	return session
}

// delegate asks the completion backend which specialist should answer.
func (s *Service) delegate(ctx context.Context, message string) domain.Delegation {
	content, err := s.completer.Complete(ctx, []llm.ChatMessage{
		llm.System(delegationPrompt),
		llm.User(message),
	}, llm.CompletionOptions{Temperature: 0.3, JSONMode: true})
	if err != nil {
		s.log.Warn("delegation unavailable", zap.Error(err))
		return fallbackDelegation(domain.CompletionReasoning)
	}

	d, err := parseDelegation(content)
	if err != nil {
		s.log.Warn("delegation fallback", zap.String("content", content), zap.Error(err))
	}
	return d
}

// parseDelegation decodes a delegation response. On error it still returns
// the reflection fallback.
func parseDelegation(content string) (domain.Delegation, error) {
	var d domain.Delegation
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &d); err != nil {
		return fallbackDelegation(domain.FallbackReasoning), fmt.Errorf("%w: %v", domain.ErrDelegationParse, err)
	}
	if d.Agent == "" {
		d.Agent = domain.DefaultAgent
	}
	if d.Mood == "" {
		d.Mood = domain.NeutralMood
	}
	if d.Parameters == nil {
		d.Parameters = map[string]any{}
	}
	return d, nil
}

// fallbackDelegation is the fixed delegation used whenever the backend's
// answer cannot be trusted.
func fallbackDelegation(reasoning string) domain.Delegation {
	return domain.Delegation{
		Agent:      domain.DefaultAgent,
		Mood:       domain.FallbackMood,
		Parameters: map[string]any{},
		Reasoning:  reasoning,
	}
}

// guard confirms a registered proposed agent against the policy, which may
// move it to reflection. Whatever the policy says, an unregistered result
// becomes the default one.
func (s *Service) guard(ctx context.Context, proposed, message string) string {
	registered := s.registry.IDs()
	agent := proposed
	if s.policy != nil {
		decided, err := s.policy.Decide(ctx, policy.Input{Agent: proposed, Registered: registered, Message: message})
		if err != nil {
			s.log.Warn("delegation policy failed", zap.Error(err))
		}
		agent = decided
	}
	if !slices.Contains(registered, agent) {
		return domain.DefaultAgent
	}
	return agent
}

func (s *Service) personalize(ctx context.Context, message, agent string, payload specialist.Payload, recent []domain.Turn, summary string) (string, error) {
	view, err := json.MarshalIndent(personalizationView(agent, payload), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode personalization view: %w", err)
	}
	var summaryBlock string
	if summary != "" {
		summaryBlock = "\nRingkasan percakapan sebelumnya:\n" + summary + "\n"
	}

	messages := []llm.ChatMessage{
		llm.System(fmt.Sprintf(personalizationPrompt, message, agent, view, summaryBlock)),
	}
	for _, t := range recent {
		messages = append(messages, llm.User(t.UserMessage), llm.Assistant(t.Response))
	}
	messages = append(messages, llm.User(message))

	response, err := s.completer.Complete(ctx, messages, llm.CompletionOptions{Temperature: 0.8, MaxTokens: 500})
	if err != nil {
		return "", fmt.Errorf("personalize %s response: %w", agent, err)
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return "", errors.New("empty personalization response")
	}
	return response, nil
}

// personalizationView replaces the client-rendered part of a payload with
// item counts.
func personalizationView(agent string, payload specialist.Payload) map[string]any {
	view := make(map[string]any, len(payload))
	for k, v := range payload {
		view[k] = v
	}
	key, ok := renderedKeys[agent]
	if !ok {
		return view
	}
	value, ok := view[key]
	if !ok {
		return view
	}
	delete(view, key)

	raw, err := json.Marshal(value)
	if err != nil {
		return view
	}
	parsed := gjson.ParseBytes(raw)
	if parsed.IsArray() {
		view[key+"_count"] = parsed.Get("#").Int()
		return view
	}
	counts := map[string]int64{}
	parsed.ForEach(func(k, v gjson.Result) bool {
		if v.IsArray() {
			counts[k.String()] = v.Get("#").Int()
		}
		return true
	})
	view[key+"_count"] = counts
	return view
}

// persist records the turn and its mood sample. Failures are logged and
// swallowed so that the user still gets the reply.
func (s *Service) persist(ctx context.Context, sessionID, message, response, mood, agent string, payload specialist.Payload) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("encode specialist payload", zap.Error(err))
		data = nil
	}
	turn := domain.Turn{
		SessionID:   sessionID,
		UserMessage: message,
		Response:    response,
		Mood:        mood,
		AgentUsed:   agent,
		AgentData:   data,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateTurn(ctx, &turn); err != nil {
		s.log.Warn("save turn failed", zap.Error(domain.NewPersistenceError("create turn", err)))
	}

	sample := domain.MoodSample{
		SessionID:               sessionID,
		Mood:                    mood,
		Triggers:                []string{},
		SuccessfulInterventions: []string{agent},
		Ts:                      s.now().UnixMilli(),
	}
	if err := s.store.CreateMoodSample(ctx, &sample); err != nil {
		s.log.Warn("save mood sample failed", zap.Error(domain.NewPersistenceError("create mood sample", err)))
	}

	s.history.Append(ctx, turn)
}
