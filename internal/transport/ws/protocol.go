package ws

import (
	"encoding/json"

	"github.com/xiaot623/hati/internal/domain"
)

// Message types from client to server
const (
	TypeHello = "hello"
	TypeChat  = "chat"
)

// Message types from server to client
const (
	TypeHelloAck = "hello_ack"
	TypeReply    = "reply"
	TypeError    = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// HelloMessage binds the connection to a session.
type HelloMessage struct {
	BaseMessage
	UserID   string `json:"user_id,omitempty"`
	UserName string `json:"user_name,omitempty"`
}

// HelloAckMessage confirms the bound session.
type HelloAckMessage struct {
	BaseMessage
}

// ChatMessage carries one user message.
type ChatMessage struct {
	BaseMessage
	Message     string          `json:"message"`
	Preferences json.RawMessage `json:"preferences,omitempty"`
}

// ReplyMessage carries the companion's answer.
type ReplyMessage struct {
	BaseMessage
	Result *domain.ChatResult `json:"result"`
}

// ErrorMessage is sent when a message cannot be handled.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage  = "invalid_message"
	ErrorCodeSessionRequired = "session_required"
	ErrorCodeChatFailed      = "chat_failed"
)
