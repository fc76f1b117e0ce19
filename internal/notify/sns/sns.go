// Package sns publishes notifications to an Amazon SNS topic.
package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
)

// API is the subset of the SNS client used here.
type API interface {
	Publish(ctx context.Context, in *awssns.PublishInput, optFns ...func(*awssns.Options)) (*awssns.PublishOutput, error)
}

type Publisher struct {
	api      API
	topicARN string
}

func New(api API, topicARN string) *Publisher {
	return &Publisher{api: api, topicARN: topicARN}
}

func NewFromConfig(cfg aws.Config, topicARN string) *Publisher {
	return New(awssns.NewFromConfig(cfg), topicARN)
}

func (p *Publisher) Publish(ctx context.Context, message string) error {
	_, err := p.api.Publish(ctx, &awssns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
