package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Notifier interface {
	Notify(ctx context.Context, s3Object S3ObjectInfo, logger *zap.Logger) error
}

type S3Api interface {
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
	ListObjectsV2WithContext(ctx aws.Context, input *s3.ListObjectsV2Input, opts ...request.Option) (*s3.ListObjectsV2Output, error)
}

// ObjectNotifier fetches a created object, logs a preview of its content and
// forwards a notification when a publisher is configured.
type ObjectNotifier struct {
	s3Client  S3Api
	publisher Publisher // nil disables publishing
}

func NewObjectNotifier(s3Client S3Api, publisher Publisher) *ObjectNotifier {
	return &ObjectNotifier{s3Client: s3Client, publisher: publisher}
}

func (n *ObjectNotifier) Notify(ctx context.Context, s3Object S3ObjectInfo, logger *zap.Logger) error {
	logger.Debug("fetching object", zap.Stringer("object", s3Object))

	obj, err := n.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s3Object.Bucket),
		Key:    aws.String(s3Object.Key),
	})
	if err != nil {
		return newRecordError(StageFetch, s3Object, err)
	}
	defer obj.Body.Close()

	contentType := aws.StringValue(obj.ContentType)
	content := nonTextPlaceholder
	if IsTextContentType(contentType) {
		content, err = decodeText(obj.Body)
		switch {
		case errors.Is(err, errInvalidUTF8):
			logger.Error(fmt.Sprintf("Failed to decode content of %s as UTF-8", s3Object.Key),
				zap.String("key", s3Object.Key),
				zap.Error(err),
			)
			content = undecodablePlaceholder
		case err != nil:
			return newRecordError(StageRead, s3Object, err)
		}
	}

	logger.Info(fmt.Sprintf("Object %s created in bucket %s.", s3Object.Key, s3Object.Bucket),
		zap.String("bucket", s3Object.Bucket),
		zap.String("key", s3Object.Key),
		zap.String("content_type", contentType),
		zap.String("size", humanize.Bytes(uint64(aws.Int64Value(obj.ContentLength)))),
		zap.String("content", content),
	)

	if n.publisher == nil {
		return nil
	}
	if err := n.publisher.Publish(ctx, s3Object); err != nil {
		return newRecordError(StagePublish, s3Object, err)
	}
	logger.Debug("notification published", zap.Stringer("object", s3Object))

	return nil
}
