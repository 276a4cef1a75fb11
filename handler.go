package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/sns"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Handler struct {
	notifier       Notifier
	s3Client       S3Api
	expectedBucket string
	logger         *zap.Logger
}

// NewHandler creates the AWS clients once so they are reused by every
// invocation served by this process.
func NewHandler(config Config, logger *zap.Logger) (*Handler, error) {
	sess, err := session.NewSession(config.AWSConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	s3Client := s3.New(sess)

	var publisher Publisher
	if config.TopicArn != "" {
		publisher = NewSNSPublisher(sns.New(sess), config.TopicArn)
	} else {
		logger.Info("SNS_TOPIC_ARN not set, notifications are disabled")
	}

	return &Handler{
		notifier:       NewObjectNotifier(s3Client, publisher),
		s3Client:       s3Client,
		expectedBucket: config.ExpectedBucket,
		logger:         logger,
	}, nil
}

// processS3Objects runs every object through the notifier in order. Failures
// are logged per object and returned combined; they never stop the batch.
func (h *Handler) processS3Objects(ctx context.Context, s3Objects []S3ObjectInfo) error {
	logger := invocationLogger(ctx, h.logger)

	var errs error
	for _, s3obj := range s3Objects {
		if h.expectedBucket != "" && s3obj.Bucket != h.expectedBucket {
			logger.Warn(fmt.Sprintf("Event from unexpected bucket: %s", s3obj.Bucket),
				zap.String("bucket", s3obj.Bucket),
				zap.String("expected_bucket", h.expectedBucket),
				zap.String("key", s3obj.Key),
			)
			continue
		}
		if err := h.notifier.Notify(ctx, s3obj, logger); err != nil {
			logger.Error(fmt.Sprintf("An error occurred while processing %s", s3obj.Key),
				zap.String("bucket", s3obj.Bucket),
				zap.String("key", s3obj.Key),
				zap.String("stage", string(stageOf(err))),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
		}
	}

	if errs != nil {
		logger.Warn("some objects could not be processed",
			zap.Int("failed", len(multierr.Errors(errs))),
			zap.Int("total", len(s3Objects)),
		)
	}
	return errs
}

// HandleLambdaEvent always reports success; record failures only show up in
// the logs.
func (h *Handler) HandleLambdaEvent(ctx context.Context, event events.S3Event) (events.APIGatewayProxyResponse, error) {
	var s3Objects []S3ObjectInfo
	for _, record := range event.Records {
		s3Objects = append(s3Objects, S3ObjectInfo{
			Bucket: record.S3.Bucket.Name,
			Key:    decodeObjectKey(record.S3.Object.Key),
		})
	}
	_ = h.processS3Objects(ctx, s3Objects)

	return successResponse(), nil
}

// HandleS3URL processes every object below an s3://bucket/prefix URL as if an
// event had been received for it.
func (h *Handler) HandleS3URL(ctx context.Context, s3URL string) error {
	bucket, prefix, err := ParseS3URL(s3URL)
	if err != nil {
		return fmt.Errorf("failed to parse S3 URL: %v", err)
	}

	var s3Objects []S3ObjectInfo
	var continuationToken *string
	for {
		resp, err := h.s3Client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return fmt.Errorf("failed to list objects: %v", err)
		}

		for _, item := range resp.Contents {
			s3Objects = append(s3Objects, S3ObjectInfo{
				Bucket: bucket,
				Key:    aws.StringValue(item.Key),
			})
		}

		if !aws.BoolValue(resp.IsTruncated) {
			break
		}
		continuationToken = resp.NextContinuationToken
	}

	_ = h.processS3Objects(ctx, s3Objects)
	return nil
}

// HandleEventFile replays a saved S3 event document. A path of "-" reads the
// event from stdin.
func (h *Handler) HandleEventFile(ctx context.Context, path string) (events.APIGatewayProxyResponse, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return events.APIGatewayProxyResponse{}, fmt.Errorf("failed to open event file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var event events.S3Event
	if err := json.NewDecoder(r).Decode(&event); err != nil {
		return events.APIGatewayProxyResponse{}, fmt.Errorf("failed to decode S3 event: %w", err)
	}
	return h.HandleLambdaEvent(ctx, event)
}

// decodeObjectKey undoes the URL encoding S3 applies to keys in event
// notifications. Keys that are not valid encodings are used as received.
func decodeObjectKey(key string) string {
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return key
	}
	return decoded
}
