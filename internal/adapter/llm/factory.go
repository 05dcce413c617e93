package llm

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// ModeMock selects the offline mock client.
const ModeMock = "MOCK"

// Backend is what the server needs from a completion backend.
type Backend interface {
	Completer
	ModelLister
}

// NewBackend creates a completion backend for mode.
// If mode is MOCK, returns a MockClient; otherwise returns a real Client.
func NewBackend(mode, baseURL, apiKey, model string, timeout time.Duration, log *zap.Logger) Backend {
	if strings.EqualFold(mode, ModeMock) {
		log.Info("mock mode detected, using mock completion client")
		return NewMockClient()
	}
	return NewClient(baseURL, apiKey, model, timeout)
}
