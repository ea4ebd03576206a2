package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type SNSApi interface {
	CreateTopic(ctx context.Context, params *sns.CreateTopicInput, optFns ...func(*sns.Options)) (*sns.CreateTopicOutput, error)
	GetTopicAttributes(ctx context.Context, params *sns.GetTopicAttributesInput, optFns ...func(*sns.Options)) (*sns.GetTopicAttributesOutput, error)
	DeleteTopic(ctx context.Context, params *sns.DeleteTopicInput, optFns ...func(*sns.Options)) (*sns.DeleteTopicOutput, error)
}

// TopicClient is a thin wrapper over SNS topic management. It keeps no state
// about topics between calls and never retries.
type TopicClient struct {
	client SNSApi
}

func NewTopicClient(client SNSApi) *TopicClient {
	return &TopicClient{client: client}
}

func NewTopicClientFromConfig(awsCfg aws.Config) *TopicClient {
	return NewTopicClient(sns.NewFromConfig(awsCfg))
}

func (c *TopicClient) CreateTopic(ctx context.Context, name string) (*sns.CreateTopicOutput, error) {
	resp, err := c.client.CreateTopic(ctx, &sns.CreateTopicInput{
		Name: aws.String(name),
	})
	if err != nil {
		slog.Error("couldn't create topic", "name", name, "error", err)
		return nil, fmt.Errorf("failed to create topic %s: %w", name, err)
	}

	slog.Info("created topic", "name", name, "arn", aws.ToString(resp.TopicArn))
	return resp, nil
}

// GetTopicAttributes returns all properties of a topic. What is returned may
// depend on the caller's permissions.
func (c *TopicClient) GetTopicAttributes(ctx context.Context, topicArn string) (map[string]string, error) {
	resp, err := c.client.GetTopicAttributes(ctx, &sns.GetTopicAttributesInput{
		TopicArn: aws.String(topicArn),
	})
	if err != nil {
		slog.Error("couldn't get topic attributes", "arn", topicArn, "error", err)
		return nil, fmt.Errorf("failed to get attributes of topic %s: %w", topicArn, err)
	}

	slog.Info("got topic attributes", "arn", topicArn, "count", len(resp.Attributes))
	return resp.Attributes, nil
}

// DeleteTopic deletes a topic and its subscriptions. SNS treats deleting a
// missing topic as success.
func (c *TopicClient) DeleteTopic(ctx context.Context, topicArn string) error {
	_, err := c.client.DeleteTopic(ctx, &sns.DeleteTopicInput{
		TopicArn: aws.String(topicArn),
	})
	if err != nil {
		slog.Error("couldn't delete topic", "arn", topicArn, "error", err)
		return fmt.Errorf("failed to delete topic %s: %w", topicArn, err)
	}

	slog.Info("deleted topic", "arn", topicArn)
	return nil
}
