// Package websocket provides WebSocket hub and client management for the
// debug gateway.
package websocket

// WSMessage represents a WebSocket message.
type WSMessage struct {
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`
	Path    string `json:"path,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// BroadcastMessage wraps a message with its target session.
type BroadcastMessage struct {
	Session string
	Data    []byte
}

// Message types.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"
	TypePong        = "pong"
	TypeTelemetry   = "telemetry"
	TypeReload      = "reload"
	TypeError       = "error"
)
