package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	config, err := LoadConfigFromEnv()
	if err != nil {
		log.Fatalln(err)
	}
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		logger, err := NewLogger(config.Log)
		if err != nil {
			log.Fatalln(err)
		}
		h, err := NewHandler(config, logger)
		if err != nil {
			log.Fatalln(err)
		}
		lambda.Start(h.HandleLambdaEvent)
		return
	}
	if err := newRootCommand(&config).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
