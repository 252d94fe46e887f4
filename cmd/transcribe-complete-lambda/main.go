// Package main provides the Lambda entry point for transcription completion.
//
// This Lambda is triggered by the EventBridge rule matching Transcribe job
// state changes. For each completed job it downloads and persists the
// transcript document, then runs the enabled text-analytics detections
// (sentiment, key phrases, entities) over the transcript text, persisting
// one artifact and one status event per detection.
package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/rs/zerolog/log"

	"github.com/smartmedia/aws-pipeline/internal/artifact"
	"github.com/smartmedia/aws-pipeline/internal/dispatch"
	pipelineevents "github.com/smartmedia/aws-pipeline/internal/events"
	"github.com/smartmedia/aws-pipeline/internal/lambdaboot"
	"github.com/smartmedia/aws-pipeline/internal/mediastore"
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
	artifacts := artifact.NewStore(s3Client, cfg.OutputBucket)

	dispatcher = dispatch.New(dispatch.Config{
		InputBucket:  cfg.InputBucket,
		OutputBucket: cfg.OutputBucket,
		LanguageCode: cfg.LanguageCode,
	}, media, nil, nil, transcribe.NewFromConfig(awsCfg),
		comprehend.NewFromConfig(awsCfg), artifacts, publisher)

	lambdaboot.StartupLog("transcribe-complete-lambda", initStart).
		Bucket("output", cfg.OutputBucket).
		Queue("status", cfg.SQSQueueURL).
		Config("languageCode", cfg.LanguageCode).
		Log()
}

func main() {
	lambda.Start(handler)
}

func handler(ctx context.Context, event events.CloudWatchEvent) error {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "transcribe-complete-lambda").Msg("Cold start — first invocation")
	}

	ev, err := pipelineevents.ParseTranscriptionStateChange(event.Detail)
	if err != nil {
		log.Error().Err(err).Msg("Dropping malformed transcription state change")
		return nil
	}
	if err := dispatcher.HandleTranscriptionComplete(ctx, ev); err != nil {
		log.Error().Err(err).Str("jobName", ev.JobName).Msg("Failed to handle transcription completion")
		return err
	}
	return nil
}
