package queue

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/dbsmedya/statsync/internal/logger"
)

// PubSubPublisher publishes nav paths to a Google Pub/Sub topic.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubPublisher connects to the project and targets topicID.
func NewPubSubPublisher(ctx context.Context, projectID, topicID string) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	return &PubSubPublisher{
		client: client,
		topic:  client.Topic(topicID),
	}, nil
}

// Publish enqueues navPath and waits for the broker to confirm it.
func (p *PubSubPublisher) Publish(ctx context.Context, navPath string) (string, error) {
	res := p.topic.Publish(ctx, &pubsub.Message{Data: encodePayload(navPath)})
	id, err := res.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to publish %s: %w", navPath, err)
	}
	return id, nil
}

// Close flushes pending publishes and releases the client.
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

// PubSubSubscriber consumes nav paths from a Google Pub/Sub subscription,
// one message at a time.
type PubSubSubscriber struct {
	client *pubsub.Client
	sub    *pubsub.Subscription
	logger *logger.Logger
}

// NewPubSubSubscriber connects to the project and targets subscriptionID.
func NewPubSubSubscriber(ctx context.Context, projectID, subscriptionID string, log *logger.Logger) (*PubSubSubscriber, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	sub := client.Subscription(subscriptionID)
	// Tables download sequentially to respect the source's rate limits.
	sub.ReceiveSettings.MaxOutstandingMessages = 1
	sub.ReceiveSettings.NumGoroutines = 1

	return &PubSubSubscriber{
		client: client,
		sub:    sub,
		logger: log,
	}, nil
}

// Receive blocks delivering messages to handler until ctx is cancelled.
//
// Every message is acked, including ones whose handler failed: a table that
// cannot refresh today stays stale in scb_ref and gets requeued by a later
// scheduling cycle, which beats redelivering a poison message forever.
func (s *PubSubSubscriber) Receive(ctx context.Context, handler Handler) error {
	return s.sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		defer m.Ack()

		navPath, err := decodePayload(m.Data)
		if err != nil {
			s.logger.Errorf("Discarding undecodable message %s: %v", m.ID, err)
			return
		}

		if err := handler(ctx, navPath); err != nil {
			s.logger.WithPath(navPath).Errorf("Refresh failed, leaving table stale: %v", err)
		}
	})
}

// Close releases the client.
func (s *PubSubSubscriber) Close() error {
	return s.client.Close()
}
