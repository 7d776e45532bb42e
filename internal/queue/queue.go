// Package queue carries nav paths from the scheduler to refresh workers.
package queue

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Handler processes one delivered nav path.
type Handler func(ctx context.Context, navPath string) error

// Publisher enqueues nav paths for refresh.
type Publisher interface {
	// Publish enqueues navPath and returns the broker's message ID.
	Publish(ctx context.Context, navPath string) (string, error)
	Close() error
}

// Subscriber delivers queued nav paths to a handler, one at a time.
type Subscriber interface {
	// Receive blocks until ctx is cancelled, invoking handler per message.
	Receive(ctx context.Context, handler Handler) error
	Close() error
}

// encodePayload wraps a nav path for the wire.
func encodePayload(navPath string) []byte {
	return []byte(base64.StdEncoding.EncodeToString([]byte(navPath)))
}

// decodePayload unwraps a delivered message body back into a nav path.
func decodePayload(data []byte) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode queue payload: %w", err)
	}
	return string(decoded), nil
}
