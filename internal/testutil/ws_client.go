package testutil

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	gorillaWS "github.com/gorilla/websocket"
)

// WSMessage is the envelope the notification hub sends
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// Decode unmarshals the payload into v
func (m *WSMessage) Decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(m.Payload, v); err != nil {
		t.Fatalf("failed to decode %s payload: %v", m.Type, err)
	}
}

// WSClient is a test WebSocket client
type WSClient struct {
	t        *testing.T
	conn     *gorillaWS.Conn
	messages chan *WSMessage
	errors   chan error
	done     chan struct{}
	mu       sync.Mutex
}

// NewWSClient dials url (http:// is rewritten to ws://) with optional headers, e.g. a session cookie
func NewWSClient(t *testing.T, url string, header http.Header) *WSClient {
	t.Helper()

	url = strings.Replace(url, "http://", "ws://", 1)
	dialer := *gorillaWS.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second

	conn, _, err := dialer.Dial(url, header)
	if err != nil {
		t.Fatalf("failed to connect to websocket: %v", err)
	}

	client := &WSClient{
		t:        t,
		conn:     conn,
		messages: make(chan *WSMessage, 100),
		errors:   make(chan error, 10),
		done:     make(chan struct{}),
	}

	go client.readPump()

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

// readPump reads messages from the WebSocket connection
func (c *WSClient) readPump() {
	defer close(c.messages)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			case c.errors <- err:
			default:
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			select {
			case c.errors <- err:
			default:
			}
			continue
		}

		select {
		case c.messages <- &msg:
		case <-c.done:
			return
		}
	}
}

// Send writes a message of the given type
func (c *WSClient) Send(msgType string, payload any) {
	c.t.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		c.t.Fatalf("failed to marshal payload: %v", err)
	}
	data, err := json.Marshal(WSMessage{Type: msgType, Payload: raw, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		c.t.Fatalf("failed to marshal message: %v", err)
	}

	c.mu.Lock()
	err = c.conn.WriteMessage(gorillaWS.TextMessage, data)
	c.mu.Unlock()
	if err != nil {
		c.t.Fatalf("failed to send message: %v", err)
	}
}

// Expect waits for the next message of msgType, skipping others
func (c *WSClient) Expect(msgType string, timeout time.Duration) *WSMessage {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case msg, ok := <-c.messages:
			if !ok {
				c.t.Fatalf("connection closed while waiting for %s", msgType)
			}
			if msg.Type == msgType {
				return msg
			}
		case <-deadline:
			c.t.Fatalf("timed out waiting for %s", msgType)
			return nil
		}
	}
}

// ExpectNone asserts nothing of msgType arrives within wait
func (c *WSClient) ExpectNone(msgType string, wait time.Duration) {
	c.t.Helper()

	deadline := time.After(wait)
	for {
		select {
		case msg, ok := <-c.messages:
			if !ok {
				return
			}
			if msg.Type == msgType {
				c.t.Fatalf("unexpected %s message", msgType)
			}
		case <-deadline:
			return
		}
	}
}

// Close closes the WebSocket connection gracefully
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
		c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
		c.conn.Close()
	}
}
