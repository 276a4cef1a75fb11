package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// newRootCommand builds the CLI used outside of Lambda. Flag defaults come
// from config so the environment keeps working and flags win when set.
func newRootCommand(config *Config) *cobra.Command {
	var eventPath string
	cmd := &cobra.Command{
		Use:   "s3-object-notifier [s3://bucket/prefix]",
		Short: "Log and announce created S3 objects",
		Long: `Fetch S3 objects, log a preview of text content and publish a
notification to SNS when a topic is configured.

Objects are selected either by an s3://bucket/prefix URL, in which case every
object below the prefix is processed, or by replaying a saved S3 event with
--event.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if eventPath == "" && len(args) == 0 {
				return errors.New("an s3://bucket/prefix argument or --event is required")
			}
			if eventPath != "" && len(args) > 0 {
				return errors.New("--event cannot be combined with an s3 url argument")
			}

			logger, err := NewLogger(config.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			h, err := NewHandler(*config, logger)
			if err != nil {
				return err
			}

			if eventPath != "" {
				resp, err := h.HandleEventFile(cmd.Context(), eventPath)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Body)
				return nil
			}
			return h.HandleS3URL(cmd.Context(), args[0])
		},
	}

	cmd.Flags().StringVar(&eventPath, "event", "", "path to an S3 event JSON document to replay, - for stdin")
	cmd.Flags().StringVar(&config.ExpectedBucket, "expected-bucket", config.ExpectedBucket, "only process objects from this bucket (fallback to S3_BUCKET_NAME)")
	cmd.Flags().StringVar(&config.TopicArn, "topic-arn", config.TopicArn, "SNS topic to notify (fallback to SNS_TOPIC_ARN)")
	cmd.Flags().StringVar(&config.Endpoint, "endpoint", config.Endpoint, "custom AWS endpoint (fallback to AWS_ENDPOINT_URL)")
	cmd.PersistentFlags().StringVar(&config.Log.Level, "log.level", config.Log.Level, "configure log level. Available values are \"debug\", \"info\", \"warn\", \"error\" (fallback to LOG_LEVEL)")
	cmd.PersistentFlags().BoolVar(&config.Log.Development, "log.development", config.Log.Development, "configure log for development with human readable output (fallback to LOG_DEVELOPMENT)")

	return cmd
}
