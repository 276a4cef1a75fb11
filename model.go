package main

import (
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

type S3ObjectInfo struct {
	Bucket string
	Key    string
}

func (o S3ObjectInfo) String() string {
	return fmt.Sprintf("s3://%s/%s", o.Bucket, o.Key)
}

// NotificationMessage is the JSON document published to the topic for every
// processed object.
type NotificationMessage struct {
	Message string `json:"message"`
}

func NewNotificationMessage(obj S3ObjectInfo) NotificationMessage {
	return NotificationMessage{
		Message: fmt.Sprintf("Object %s created in bucket %s.", obj.Key, obj.Bucket),
	}
}

const successBody = "Notification sent for processed files!"

// successResponse is returned for every invocation, no matter how many
// records failed.
func successResponse() events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Body:       successBody,
	}
}
