package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/pkg/errors"
)

const notificationSubject = "S3 Object Created"

type Publisher interface {
	Publish(ctx context.Context, obj S3ObjectInfo) error
}

type SNSApi interface {
	PublishWithContext(ctx aws.Context, input *sns.PublishInput, opts ...request.Option) (*sns.PublishOutput, error)
}

// SNSPublisher sends a NotificationMessage for each object to a single topic.
type SNSPublisher struct {
	snsClient SNSApi
	topicArn  string
}

func NewSNSPublisher(snsClient SNSApi, topicArn string) *SNSPublisher {
	return &SNSPublisher{snsClient: snsClient, topicArn: topicArn}
}

func (p *SNSPublisher) Publish(ctx context.Context, obj S3ObjectInfo) error {
	message, err := json.Marshal(NewNotificationMessage(obj))
	if err != nil {
		return errors.Wrap(err, "marshal notification message")
	}
	_, err = p.snsClient.PublishWithContext(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicArn),
		Subject:  aws.String(notificationSubject),
		Message:  aws.String(string(message)),
	})
	if err != nil {
		return errors.Wrapf(err, "publish to %s", p.topicArn)
	}
	return nil
}
