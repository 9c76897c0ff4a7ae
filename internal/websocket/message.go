package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	// Client to Server
	MessageTypeDismiss MessageType = "DISMISS"

	// Server to Client
	MessageTypeNotification MessageType = "NOTIFICATION"
	MessageTypeDismissed    MessageType = "NOTIFICATION_DISMISSED"
	MessageTypeSessionEnded MessageType = "SESSION_ENDED"
	MessageTypeError        MessageType = "ERROR"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Client to Server payloads

type DismissPayload struct {
	ID string `json:"id"`
}

// Server to Client payloads

type NotificationPayload struct {
	ID      string `json:"id"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// SessionEndedPayload tells every open tab to navigate away
type SessionEndedPayload struct {
	Reason   string `json:"reason"`
	Redirect string `json:"redirect"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
