package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockS3Api struct {
	mock.Mock
}

func (m *MockS3Api) GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *MockS3Api) ListObjectsV2WithContext(ctx aws.Context, input *s3.ListObjectsV2Input, _ ...request.Option) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)
	return out, args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, obj S3ObjectInfo) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

// trackingBody records whether the notifier touched the object body.
type trackingBody struct {
	r      io.Reader
	read   bool
	closed bool
}

func (b *trackingBody) Read(p []byte) (int, error) {
	b.read = true
	return b.r.Read(p)
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("connection reset")
}

func getObjectInput(bucket, key string) *s3.GetObjectInput {
	return &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}
}

func objectOutput(contentType string, body io.ReadCloser, size int64) *s3.GetObjectOutput {
	return &s3.GetObjectOutput{
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		Body:          body,
	}
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestNotify(t *testing.T) {
	ctx := context.Background()

	t.Run("Text object is logged and published", func(t *testing.T) {
		body := &trackingBody{r: strings.NewReader("a,b\n1,2")}
		mockS3 := new(MockS3Api)
		mockS3.On("GetObjectWithContext", mock.Anything, getObjectInput("data", "report.csv")).
			Return(objectOutput("text/csv", body, 7), nil)
		mockPublisher := new(MockPublisher)
		mockPublisher.On("Publish", mock.Anything, S3ObjectInfo{Bucket: "data", Key: "report.csv"}).Return(nil)
		logger, logs := newObservedLogger()

		n := NewObjectNotifier(mockS3, mockPublisher)
		err := n.Notify(ctx, S3ObjectInfo{Bucket: "data", Key: "report.csv"}, logger)
		require.NoError(t, err)

		entries := logs.FilterMessage("Object report.csv created in bucket data.").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		fields := entries[0].ContextMap()
		assert.Equal(t, "a,b\n1,2", fields["content"])
		assert.Equal(t, "data", fields["bucket"])
		assert.Equal(t, "report.csv", fields["key"])
		assert.Equal(t, "text/csv", fields["content_type"])
		assert.Equal(t, "7 B", fields["size"])
		assert.True(t, body.closed)

		mockS3.AssertExpectations(t)
		mockPublisher.AssertExpectations(t)
	})

	t.Run("Content type must match the allowlist exactly", func(t *testing.T) {
		for _, contentType := range []string{"text/plain; charset=utf-8", "TEXT/PLAIN"} {
			body := &trackingBody{r: strings.NewReader("hello")}
			mockS3 := new(MockS3Api)
			mockS3.On("GetObjectWithContext", mock.Anything, mock.Anything).
				Return(objectOutput(contentType, body, 5), nil)
			logger, logs := newObservedLogger()

			n := NewObjectNotifier(mockS3, nil)
			err := n.Notify(ctx, S3ObjectInfo{Bucket: "b", Key: "k.txt"}, logger)
			require.NoError(t, err)

			entries := logs.FilterMessage("Object k.txt created in bucket b.").All()
			require.Len(t, entries, 1, contentType)
			assert.Equal(t, nonTextPlaceholder, entries[0].ContextMap()["content"], contentType)
			assert.False(t, body.read, "body of %q must not be read", contentType)
		}
	})

	t.Run("Non-text object body is never read", func(t *testing.T) {
		body := &trackingBody{r: strings.NewReader("\x89PNG")}
		mockS3 := new(MockS3Api)
		mockS3.On("GetObjectWithContext", mock.Anything, mock.Anything).
			Return(objectOutput("application/octet-stream", body, 4), nil)
		logger, logs := newObservedLogger()

		n := NewObjectNotifier(mockS3, nil)
		err := n.Notify(ctx, S3ObjectInfo{Bucket: "b", Key: "image.bin"}, logger)
		require.NoError(t, err)

		entries := logs.FilterMessage("Object image.bin created in bucket b.").All()
		require.Len(t, entries, 1)
		assert.Equal(t, nonTextPlaceholder, entries[0].ContextMap()["content"])
		assert.False(t, body.read, "body of a non-text object must not be read")
		assert.True(t, body.closed)
	})

	t.Run("Invalid UTF-8 is replaced by placeholder", func(t *testing.T) {
		mockS3 := new(MockS3Api)
		mockS3.On("GetObjectWithContext", mock.Anything, mock.Anything).
			Return(objectOutput("text/plain", io.NopCloser(strings.NewReader("\xff\xfe\xfd")), 3), nil)
		mockPublisher := new(MockPublisher)
		mockPublisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
		logger, logs := newObservedLogger()

		n := NewObjectNotifier(mockS3, mockPublisher)
		err := n.Notify(ctx, S3ObjectInfo{Bucket: "b", Key: "broken.txt"}, logger)
		require.NoError(t, err)

		decodeErrors := logs.FilterMessage("Failed to decode content of broken.txt as UTF-8").All()
		require.Len(t, decodeErrors, 1)
		assert.Equal(t, zapcore.ErrorLevel, decodeErrors[0].Level)
		assert.Equal(t, "content is not valid UTF-8", decodeErrors[0].ContextMap()["error"])
		assert.NotContains(t, decodeErrors[0].ContextMap(), "errorVerbose")

		entries := logs.FilterMessage("Object broken.txt created in bucket b.").All()
		require.Len(t, entries, 1)
		assert.Equal(t, undecodablePlaceholder, entries[0].ContextMap()["content"])

		mockPublisher.AssertNumberOfCalls(t, "Publish", 1)
	})

	t.Run("Fetch error", func(t *testing.T) {
		mockS3 := new(MockS3Api)
		mockS3.On("GetObjectWithContext", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("NoSuchKey: The specified key does not exist."))
		mockPublisher := new(MockPublisher)
		logger, _ := newObservedLogger()

		n := NewObjectNotifier(mockS3, mockPublisher)
		err := n.Notify(ctx, S3ObjectInfo{Bucket: "b", Key: "missing"}, logger)

		require.Error(t, err)
		assert.Equal(t, StageFetch, stageOf(err))
		assert.Contains(t, err.Error(), "fetch s3://b/missing: NoSuchKey")
		mockPublisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("Read error", func(t *testing.T) {
		mockS3 := new(MockS3Api)
		mockS3.On("GetObjectWithContext", mock.Anything, mock.Anything).
			Return(objectOutput("application/json", io.NopCloser(failingReader{}), 10), nil)
		logger, _ := newObservedLogger()

		n := NewObjectNotifier(mockS3, nil)
		err := n.Notify(ctx, S3ObjectInfo{Bucket: "b", Key: "doc.json"}, logger)

		require.Error(t, err)
		assert.Equal(t, StageRead, stageOf(err))
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("Publish error", func(t *testing.T) {
		mockS3 := new(MockS3Api)
		mockS3.On("GetObjectWithContext", mock.Anything, mock.Anything).
			Return(objectOutput("text/plain", io.NopCloser(strings.NewReader("x")), 1), nil)
		mockPublisher := new(MockPublisher)
		mockPublisher.On("Publish", mock.Anything, mock.Anything).Return(fmt.Errorf("AuthorizationError"))
		logger, _ := newObservedLogger()

		n := NewObjectNotifier(mockS3, mockPublisher)
		err := n.Notify(ctx, S3ObjectInfo{Bucket: "b", Key: "x.txt"}, logger)

		require.Error(t, err)
		assert.Equal(t, StagePublish, stageOf(err))
	})
}
