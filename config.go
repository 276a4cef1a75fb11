package main

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	ExpectedBucket string `env:"S3_BUCKET_NAME" env-description:"only process events from this bucket"`
	TopicArn       string `env:"SNS_TOPIC_ARN" env-description:"SNS topic to notify, publishing is disabled when empty"`
	Endpoint       string `env:"AWS_ENDPOINT_URL" env-description:"custom AWS endpoint, e.g. a local S3 and SNS emulator"`
	Log            LogConfig
}

type LogConfig struct {
	Level       string `env:"LOG_LEVEL" env-default:"info" env-description:"debug, info, warn or error"`
	Development bool   `env:"LOG_DEVELOPMENT" env-default:"false" env-description:"human readable log output"`
}

func LoadConfigFromEnv() (Config, error) {
	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		return Config{}, fmt.Errorf("failed to read configuration from environment: %w", err)
	}
	return config, nil
}

// AWSConfig returns the SDK config shared by the S3 and SNS clients.
func (c Config) AWSConfig() *aws.Config {
	config := aws.NewConfig()
	if c.Endpoint != "" {
		config = config.WithEndpoint(c.Endpoint).WithS3ForcePathStyle(true)
	}
	return config
}

func ParseS3URL(url string) (bucket string, prefix string, err error) {
	if !strings.HasPrefix(url, "s3://") {
		return "", "", fmt.Errorf("invalid S3 URL, missing 's3://' prefix")
	}
	trimmedS3URL := strings.TrimPrefix(url, "s3://")
	splitPos := strings.Index(trimmedS3URL, "/")
	if splitPos == -1 {
		return "", "", fmt.Errorf("invalid S3 URL, no '/' found after bucket name")
	}
	bucket = trimmedS3URL[:splitPos]
	prefix = trimmedS3URL[splitPos+1:]
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 URL, empty bucket name")
	}
	return bucket, prefix, nil
}
