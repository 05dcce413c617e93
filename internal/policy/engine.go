// Package policy guards the delegation decision with an OPA policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query    rego.PreparedEvalQuery
	fallback string
}

// NewEngine creates a new policy engine with the given policy content.
// fallback is returned whenever evaluation fails or yields nothing usable.
func NewEngine(ctx context.Context, policyContent, fallback string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.delegation_policy.decision"),
		rego.Module("delegation_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query, fallback: fallback}, nil
}

// Input is what the policy sees about one delegation.
type Input struct {
	Agent      string   `json:"agent"`
	Registered []string `json:"registered"`
	Message    string   `json:"message"`
}

// Decide returns the specialist that should handle the message.
func (e *Engine) Decide(ctx context.Context, in Input) (string, error) {
	if in.Registered == nil {
		in.Registered = []string{}
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(in))
	if err != nil {
		return e.fallback, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return e.fallback, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok && s != "" {
		return s, nil
	}
	return e.fallback, fmt.Errorf("unexpected policy result %v", results[0].Expressions[0].Value)
}

// DefaultPolicy keeps a proposed specialist only when it is registered
// and the message is not about a personal topic that needs reflection.
const DefaultPolicy = `
package delegation_policy

default decision = "reflection"

decision = input.agent {
	registered
	not reflection_only
}

registered {
	input.registered[_] == input.agent
}

reflection_only {
	input.agent != "reflection"
	some i
	contains(lower(input.message), reflection_topics[i])
}

reflection_topics = [
	"selingkuh",
	"balas dendam",
	"bunuh diri",
	"self harm",
]
`
