package client

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/pubsub"
)

// PubSubClient wraps the Google Cloud Pub/Sub client.
type PubSubClient struct {
	client       *pubsub.Client
	topic        *pubsub.Topic
	subscription *pubsub.Subscription
}

// NewPubSubClient creates a new Pub/Sub client.
func NewPubSubClient(ctx context.Context, projectID, topicID string) (*PubSubClient, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return &PubSubClient{
		client: client,
		topic:  client.Topic(topicID),
	}, nil
}

// WithSubscription sets the subscription to use for receiving messages.
func (c *PubSubClient) WithSubscription(subscriptionID string) *PubSubClient {
	c.subscription = c.client.Subscription(subscriptionID)
	return c
}

// Close closes the client.
func (c *PubSubClient) Close() {
	if c.topic != nil {
		c.topic.Stop()
	}
	if c.client != nil {
		c.client.Close()
	}
}

// PublishWithAttributes publishes data as JSON and waits for the server ack.
func (c *PubSubClient) PublishWithAttributes(ctx context.Context, data interface{}, attrs map[string]string) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	result := c.topic.Publish(ctx, &pubsub.Message{
		Data:       jsonData,
		Attributes: attrs,
	})

	_, err = result.Get(ctx)
	return err
}

// SubscribeJSON receives messages until ctx is done. Messages are acked when
// handler succeeds and nacked otherwise.
func (c *PubSubClient) SubscribeJSON(ctx context.Context, handler func(ctx context.Context, data json.RawMessage, attrs map[string]string) error) error {
	if c.subscription == nil {
		return nil
	}

	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := handler(ctx, msg.Data, msg.Attributes); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}
