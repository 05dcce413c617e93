package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy, "reflection")
	require.NoError(t, err)

	registered := []string{"music", "entertainment", "relaxation", "reflection"}

	tests := []struct {
		name string
		in   Input
		want string
	}{
		{"registered agent kept", Input{Agent: "music", Registered: registered, Message: "cariin musik"}, "music"},
		{"unregistered agent rewritten", Input{Agent: "weather", Registered: registered, Message: "cuaca"}, "reflection"},
		{"empty agent rewritten", Input{Agent: "", Registered: registered}, "reflection"},
		{"personal topic forced to reflection", Input{Agent: "entertainment", Registered: registered, Message: "Pacarku SELINGKUH, kasih jokes"}, "reflection"},
		{"nothing registered", Input{Agent: "music", Message: "lagu"}, "reflection"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Decide(ctx, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCustomPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, `
package delegation_policy

default decision = "reflection"

decision = "music" {
	input.agent == "entertainment"
}
`, "reflection")
	require.NoError(t, err)

	got, err := engine.Decide(ctx, Input{Agent: "entertainment"})
	require.NoError(t, err)
	assert.Equal(t, "music", got)
}

func TestInvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package broken\n decision = {", "reflection")
	assert.Error(t, err)
}
