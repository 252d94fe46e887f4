// Package main provides the Lambda entry point for transcode completion.
//
// This Lambda is triggered by the Elastic Transcoder job-state SNS topic.
// For each completed job it copies the produced renditions to their
// canonical keys and fans out one invocation per analysis service enabled
// in the source object's flag string: the Rekognition video capabilities
// and the transcription job that feeds the text-analytics stage.
package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/rs/zerolog/log"

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
	if cfg.SNSTopicARN == "" || cfg.RekognitionRoleARN == "" {
		log.Fatal().Msg("SMARTMEDIA_SNS_TOPIC_ARN and SMARTMEDIA_REKOGNITION_ROLE_ARN are required")
	}

	media := mediastore.NewStore(s3.NewFromConfig(awsCfg), cfg.InputBucket)
	publisher := status.NewPublisher(sqs.NewFromConfig(awsCfg), cfg.SQSQueueURL, media)
	analyzers := rekog.NewRegistry(rekognition.NewFromConfig(awsCfg))

	dispatcher = dispatch.New(dispatch.Config{
		InputBucket:        cfg.InputBucket,
		OutputBucket:       cfg.OutputBucket,
		CompletionTopicARN: cfg.SNSTopicARN,
		RekognitionRoleARN: cfg.RekognitionRoleARN,
		LanguageCode:       cfg.LanguageCode,
		SampleRate:         cfg.SampleRate,
	}, media, nil, analyzers, transcribe.NewFromConfig(awsCfg), nil, nil, publisher)

	lambdaboot.StartupLog("ai-trigger-lambda", initStart).
		Bucket("input", cfg.InputBucket).
		Bucket("output", cfg.OutputBucket).
		Queue("status", cfg.SQSQueueURL).
		Topic("completion", cfg.SNSTopicARN).
		Log()
}

func main() {
	lambda.Start(handler)
}

func handler(ctx context.Context, snsEvent events.SNSEvent) error {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "ai-trigger-lambda").Msg("Cold start — first invocation")
	}

	return dispatcher.HandleTranscodeRecords(ctx, snsEvent.Records)
}
