package messaging

import (
	"context"
)

// Broker publishes messages to named channels.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Close() error
}

// Message is the envelope every published payload travels in. ID names the
// subject of the message and repeats when a failed delivery is retried.
type Message struct {
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
