package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/hati/internal/config"
	"github.com/xiaot623/hati/internal/domain"
	"github.com/xiaot623/hati/internal/transport/ws"
)

type cannedChat struct{}

func (cannedChat) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResult, error) {
	return &domain.ChatResult{Response: "Semangat ya!", AgentUsed: "music", MoodDetected: "sad", SessionID: req.SessionID}, nil
}

func startServer(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := ws.NewHub(nil)
	go hub.Run(ctx)

	srv := ws.NewServer(config.WSConfig{
		PingInterval:   time.Second,
		WriteTimeout:   time.Second,
		ReadTimeout:    5 * time.Second,
		MaxMessageSize: 4096,
	}, hub, cannedChat{}, nil)
	e := echo.New()
	e.GET("/ws", srv.HandleWebSocket)
	ts := httptest.NewServer(e)
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestClientHelloAndChat(t *testing.T) {
	client, err := NewClient(startServer(t))
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.SendHello("s1", "u1", "Rani"))
	assert.Equal(t, "s1", client.SessionID())

	require.NoError(t, client.SendChat("cariin musik sedih dong"))
	client.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := client.conn.ReadMessage()
	require.NoError(t, err)

	var out bytes.Buffer
	printFrame(&out, data)
	assert.Equal(t, "\n[music · sad] Semangat ya!\n", out.String())
}

func TestPrintFrameError(t *testing.T) {
	var out bytes.Buffer
	printFrame(&out, []byte(`{"type":"error","code":"session_required","message":"must send hello first"}`))
	assert.Equal(t, "\n[error] session_required: must send hello first\n", out.String())
}
