package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xiaot623/hati/internal/config"
	"github.com/xiaot623/hati/internal/domain"
	"github.com/xiaot623/hati/internal/service"
	"github.com/xiaot623/hati/tests/helpers"
)

func TestWireMockMode(t *testing.T) {
	t.Setenv("HATI_MODE", "MOCK")
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")
	t.Setenv("HATI_SPOTIFY_CLIENT_ID", "")
	cfg, err := config.LoadFrom(viper.New(), "")
	require.NoError(t, err)

	ctx := context.Background()
	a, err := wire(ctx, cfg, zaptest.NewLogger(t), helpers.NewTestSQLiteStore(t))
	require.NoError(t, err)

	status := a.svc.Health(ctx)
	assert.Equal(t, domain.HealthStatus{Status: "healthy", Version: service.Version, AgentsRegistered: 4, LLMConnected: true}, status)

	result, err := a.svc.Chat(ctx, domain.ChatRequest{SessionID: "s1", Message: "cariin musik sedih dong"})
	require.NoError(t, err)
	assert.Equal(t, domain.AgentMusic, result.AgentUsed)
	assert.Equal(t, "sad", result.MoodDetected)
	assert.True(t, strings.HasPrefix(result.Response, "[MOCK]"), result.Response)

	models, err := a.backend.ListModels(ctx)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "mock-llama", models[0].ID)
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	want := []string{"analytics", "models", "serve", "sweep", "version"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("subcommands mismatch (-want +got):\n%s", diff)
	}

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, service.Version+"\n", out.String())

	root = newRootCmd()
	root.SetArgs([]string{"analytics", "s1", "--days", "0"})
	require.ErrorContains(t, root.Execute(), "--days must be positive")
}
