package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/dbsmedya/statsync/internal/logger"
)

func newTestClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "test-project",
		option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, srv
}

func newTestSubscriber(t *testing.T, client *pubsub.Client) (*PubSubSubscriber, *pubsub.Topic) {
	t.Helper()
	ctx := context.Background()

	topic, err := client.CreateTopic(ctx, "refresh")
	require.NoError(t, err)
	sub, err := client.CreateSubscription(ctx, "refresh-worker",
		pubsub.SubscriptionConfig{Topic: topic})
	require.NoError(t, err)

	sub.ReceiveSettings.MaxOutstandingMessages = 1
	sub.ReceiveSettings.NumGoroutines = 1

	return &PubSubSubscriber{
		client: client,
		sub:    sub,
		logger: logger.NewDefault(),
	}, topic
}

func TestPublisherSendsEncodedPayload(t *testing.T) {
	client, srv := newTestClient(t)

	topic, err := client.CreateTopic(context.Background(), "refresh")
	require.NoError(t, err)

	publisher := &PubSubPublisher{client: client, topic: topic}

	id, err := publisher.Publish(context.Background(), "BE.BE0101.BefolkningNy")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)

	navPath, err := decodePayload(msgs[0].Data)
	require.NoError(t, err)
	assert.Equal(t, "BE.BE0101.BefolkningNy", navPath)
}

func TestReceiveAcksWhenHandlerFails(t *testing.T) {
	client, srv := newTestClient(t)
	subscriber, topic := newTestSubscriber(t, client)

	res := topic.Publish(context.Background(), &pubsub.Message{Data: encodePayload("BE.Tab")})
	_, err := res.Get(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handled := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- subscriber.Receive(ctx, func(_ context.Context, navPath string) error {
			handled <- navPath
			return errors.New("source unavailable")
		})
	}()

	select {
	case navPath := <-handled:
		assert.Equal(t, "BE.Tab", navPath)
	case <-time.After(10 * time.Second):
		t.Fatal("message was not delivered")
	}

	// A failed refresh must still be acknowledged: the table stays stale in
	// scb_ref and a later scheduling pass requeues it, so redelivering the
	// same message would only duplicate work.
	assert.Eventually(t, func() bool {
		msgs := srv.Messages()
		return len(msgs) == 1 && msgs[0].Acks > 0
	}, 10*time.Second, 50*time.Millisecond, "failed message was never acked")

	cancel()
	require.NoError(t, <-done)
}

func TestReceiveDiscardsUndecodableMessage(t *testing.T) {
	client, srv := newTestClient(t)
	subscriber, topic := newTestSubscriber(t, client)

	res := topic.Publish(context.Background(), &pubsub.Message{Data: []byte("not base64!!!")})
	_, err := res.Get(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handlerCalled atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- subscriber.Receive(ctx, func(context.Context, string) error {
			handlerCalled.Store(true)
			return nil
		})
	}()

	// The message is dropped with an ack and never reaches the handler.
	assert.Eventually(t, func() bool {
		msgs := srv.Messages()
		return len(msgs) == 1 && msgs[0].Acks > 0
	}, 10*time.Second, 50*time.Millisecond, "undecodable message was never acked")
	assert.False(t, handlerCalled.Load())

	cancel()
	require.NoError(t, <-done)
}
