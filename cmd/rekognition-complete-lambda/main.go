// Package main provides the Lambda entry point for Rekognition completion.
//
// This Lambda is triggered by the Rekognition completion SNS topic. For
// each finished analysis job it drains the paginated result set and
// persists it as the capability's metadata artifact, then publishes a
// status event carrying the provider's completion notification.
package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"

	"github.com/smartmedia/aws-pipeline/internal/artifact"
	"github.com/smartmedia/aws-pipeline/internal/dispatch"
	"github.com/smartmedia/aws-pipeline/internal/lambdaboot"
	"github.com/smartmedia/aws-pipeline/internal/mediastore"
	"github.com/smartmedia/aws-pipeline/internal/rekog"
	"github.com/smartmedia/aws-pipeline/internal/status"
)

var coldStart = true

// Initialized at cold start.
var dispatcher *dispatch.Dispatcher

func init() {
	initStart := time.Now()
	cfg, awsCfg := lambdaboot.Boot()

	s3Client := s3.NewFromConfig(awsCfg)
	media := mediastore.NewStore(s3Client, cfg.InputBucket)
	publisher := status.NewPublisher(sqs.NewFromConfig(awsCfg), cfg.SQSQueueURL, media)
	analyzers := rekog.NewRegistry(rekognition.NewFromConfig(awsCfg))
	artifacts := artifact.NewStore(s3Client, cfg.OutputBucket)

	dispatcher = dispatch.New(dispatch.Config{
		InputBucket:  cfg.InputBucket,
		OutputBucket: cfg.OutputBucket,
	}, media, nil, analyzers, nil, nil, artifacts, publisher)

	lambdaboot.StartupLog("rekognition-complete-lambda", initStart).
		Bucket("output", cfg.OutputBucket).
		Queue("status", cfg.SQSQueueURL).
		Log()
}

func main() {
	lambda.Start(handler)
}

func handler(ctx context.Context, snsEvent events.SNSEvent) error {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "rekognition-complete-lambda").Msg("Cold start — first invocation")
	}

	return dispatcher.HandleRecognitionRecords(ctx, snsEvent.Records)
}
