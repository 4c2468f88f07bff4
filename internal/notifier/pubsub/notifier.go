// Package pubsub hands alert payloads to Google Cloud Pub/Sub, where a
// downstream mailer consumes them.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"

	"github.com/dealwatch/pricewatch/internal/metrics"
)

// Notifier publishes alerts to a Pub/Sub topic.
type Notifier struct {
	client *pubsub.Client
	topic  string
}

// alertMessage is the payload shape consumed by the mailer subscription.
type alertMessage struct {
	Destination string `json:"destination"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

func fullTopicName(projectID, topicID string) string {
	return fmt.Sprintf("projects/%s/topics/%s", projectID, topicID)
}

// New creates a Pub/Sub client and verifies the topic is active. It
// authenticates using Application Default Credentials.
func New(ctx context.Context, projectID, topicID string) (*Notifier, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	name := fullTopicName(projectID, topicID)
	topic, err := client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("get pubsub topic %q: %w", topicID, err)
	}
	if topic.State != pubsubpb.Topic_ACTIVE {
		_ = client.Close()
		return nil, fmt.Errorf("pubsub topic %q is not active", topicID)
	}

	return &Notifier{client: client, topic: name}, nil
}

// Send publishes the alert and blocks until the server acknowledges it, so
// the tracker only deletes a watch once delivery is confirmed.
func (n *Notifier) Send(ctx context.Context, destination, subject, body string) error {
	data, err := json.Marshal(alertMessage{
		Destination: destination,
		Subject:     subject,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	publisher := n.client.Publisher(n.topic)
	result := publisher.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		metrics.ObserveNotification("pubsub", "error")
		return fmt.Errorf("publish alert: %w", err)
	}
	metrics.ObserveNotification("pubsub", "ok")
	return nil
}

// Close releases the underlying client connection.
func (n *Notifier) Close() error {
	if err := n.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
