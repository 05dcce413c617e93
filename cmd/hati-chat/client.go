package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xiaot623/hati/internal/transport/ws"
)

// Client is a terminal chat client for the WebSocket endpoint.
type Client struct {
	conn      *websocket.Conn
	sessionID string
	done      chan struct{}
}

// NewClient connects to the server.
func NewClient(addr string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &Client{
		conn: conn,
		done: make(chan struct{}),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	close(c.done)
	return c.conn.Close()
}

// SendHello sends a hello message and waits for hello_ack.
func (c *Client) SendHello(sessionID, userID, userName string) error {
	msg := ws.HelloMessage{
		BaseMessage: ws.BaseMessage{
			Type:      ws.TypeHello,
			Ts:        time.Now().UnixMilli(),
			SessionID: sessionID,
		},
		UserID:   userID,
		UserName: userName,
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read hello_ack: %w", err)
	}

	var base ws.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return fmt.Errorf("unmarshal hello_ack: %w", err)
	}
	if base.Type == ws.TypeError {
		var errMsg ws.ErrorMessage
		json.Unmarshal(data, &errMsg)
		return fmt.Errorf("hello failed: %s - %s", errMsg.Code, errMsg.Message)
	}
	if base.Type != ws.TypeHelloAck {
		return fmt.Errorf("expected hello_ack, got: %s", base.Type)
	}

	c.sessionID = base.SessionID
	return nil
}

// SessionID is the session bound by the last hello.
func (c *Client) SessionID() string {
	return c.sessionID
}

// SendChat sends one chat message.
func (c *Client) SendChat(content string) error {
	return c.conn.WriteJSON(ws.ChatMessage{
		BaseMessage: ws.BaseMessage{
			Type:      ws.TypeChat,
			Ts:        time.Now().UnixMilli(),
			SessionID: c.sessionID,
			RequestID: fmt.Sprintf("req_%d", time.Now().UnixNano()),
		},
		Message: content,
	})
}

// ReadMessages prints replies and errors until the connection closes.
func (c *Client) ReadMessages(out io.Writer) error {
	for {
		select {
		case <-c.done:
			return nil
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		printFrame(out, data)
	}
}

func printFrame(out io.Writer, data []byte) {
	var base ws.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		fmt.Fprintf(out, "\n(unreadable frame: %v)\n", err)
		return
	}

	switch base.Type {
	case ws.TypeReply:
		var reply ws.ReplyMessage
		if err := json.Unmarshal(data, &reply); err != nil || reply.Result == nil {
			fmt.Fprintf(out, "\n(malformed reply)\n")
			return
		}
		fmt.Fprintf(out, "\n[%s · %s] %s\n", reply.Result.AgentUsed, reply.Result.MoodDetected, reply.Result.Response)
	case ws.TypeError:
		var errMsg ws.ErrorMessage
		json.Unmarshal(data, &errMsg)
		fmt.Fprintf(out, "\n[error] %s: %s\n", errMsg.Code, errMsg.Message)
	default:
		var pretty map[string]any
		json.Unmarshal(data, &pretty)
		formatted, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Fprintf(out, "\n[%s] Received:\n%s\n", base.Type, formatted)
	}
}
