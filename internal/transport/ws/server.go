// Package ws serves the chat protocol over WebSocket connections.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/xiaot623/hati/internal/config"
	"github.com/xiaot623/hati/internal/domain"
)

const chatTimeout = 90 * time.Second

// Chatter answers one chat message.
type Chatter interface {
	Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResult, error)
}

// Server handles WebSocket connections.
type Server struct {
	cfg      config.WSConfig
	hub      *Hub
	chat     Chatter
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewServer creates a new WebSocket server.
func NewServer(cfg config.WSConfig, h *Hub, chat Chatter, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:  cfg,
		hub:  h,
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are enforced by the HTTP CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.Named("ws"),
	}
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.Error(err))
		return err
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Info("websocket closed", zap.String("conn_id", conn.ID), zap.Error(err))
			}
			return
		}
		s.handleMessage(conn, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.log.Warn("write failed", zap.String("conn_id", conn.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.hub.done:
			return
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(conn *Connection, data []byte) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch base.Type {
	case TypeHello:
		s.handleHello(conn, data)
	case TypeChat:
		s.handleChat(conn, data)
	default:
		s.sendError(conn, base.RequestID, ErrorCodeInvalidMessage, "unknown message type: "+base.Type)
	}
}

// handleHello binds the connection to the requested or a fresh session.
func (s *Server) handleHello(conn *Connection, data []byte) {
	var msg HelloMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid hello message")
		return
	}

	sessionID := strings.TrimSpace(msg.SessionID)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	conn.UserID = msg.UserID
	conn.UserName = msg.UserName
	s.hub.BindSession(conn, sessionID)

	s.hub.SendJSONToConnection(conn, HelloAckMessage{
		BaseMessage: BaseMessage{
			Type:      TypeHelloAck,
			Ts:        time.Now().UnixMilli(),
			RequestID: msg.RequestID,
			SessionID: sessionID,
		},
	})
	s.log.Debug("hello completed", zap.String("conn_id", conn.ID), zap.String("session_id", sessionID))
}

// handleChat answers a chat message asynchronously; the reply reaches every
// connection bound to the session.
func (s *Server) handleChat(conn *Connection, data []byte) {
	var msg ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", ErrorCodeInvalidMessage, "invalid chat message")
		return
	}
	if conn.SessionID == "" {
		s.sendError(conn, msg.RequestID, ErrorCodeSessionRequired, "must send hello first")
		return
	}
	if strings.TrimSpace(msg.Message) == "" {
		s.sendError(conn, msg.RequestID, ErrorCodeInvalidMessage, "message is required")
		return
	}

	req := domain.ChatRequest{
		Message:     msg.Message,
		UserID:      conn.UserID,
		SessionID:   conn.SessionID,
		UserName:    conn.UserName,
		Preferences: msg.Preferences,
	}
	requestID := msg.RequestID

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
		defer cancel()

		result, err := s.chat.Chat(ctx, req)
		if err != nil {
			s.log.Warn("chat failed", zap.String("session_id", req.SessionID), zap.Error(err))
			s.hub.BroadcastJSON(req.SessionID, ErrorMessage{
				BaseMessage: BaseMessage{Type: TypeError, Ts: time.Now().UnixMilli(), RequestID: requestID, SessionID: req.SessionID},
				Code:        ErrorCodeChatFailed,
				Message:     err.Error(),
			})
			return
		}
		s.hub.BroadcastJSON(req.SessionID, ReplyMessage{
			BaseMessage: BaseMessage{Type: TypeReply, Ts: time.Now().UnixMilli(), RequestID: requestID, SessionID: req.SessionID},
			Result:      result,
		})
	}()
}

// sendError sends an error message to a connection.
func (s *Server) sendError(conn *Connection, requestID, code, message string) {
	s.hub.SendJSONToConnection(conn, ErrorMessage{
		BaseMessage: BaseMessage{
			Type:      TypeError,
			Ts:        time.Now().UnixMilli(),
			RequestID: requestID,
			SessionID: conn.SessionID,
		},
		Code:    code,
		Message: message,
	})
}
