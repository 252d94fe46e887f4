// Package main provides the Lambda entry point for upload handling.
//
// This Lambda is triggered by S3 ObjectCreated events on the input bucket.
// For each uploaded object it reads the upload metadata (site id, service
// flags, preset descriptor) and submits one Elastic Transcoder job covering
// every requested rendition, then publishes a status event for the
// submission.
package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/elastictranscoder"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"

	"github.com/smartmedia/aws-pipeline/internal/dispatch"
	"github.com/smartmedia/aws-pipeline/internal/lambdaboot"
	"github.com/smartmedia/aws-pipeline/internal/mediastore"
	"github.com/smartmedia/aws-pipeline/internal/status"
	"github.com/smartmedia/aws-pipeline/internal/transcode"
)

var coldStart = true

// Initialized at cold start.
var dispatcher *dispatch.Dispatcher

func init() {
	initStart := time.Now()
	cfg, awsCfg := lambdaboot.Boot()
	if cfg.PipelineID == "" {
		log.Fatal().Msg("SMARTMEDIA_PIPELINE_ID environment variable is required")
	}

	media := mediastore.NewStore(s3.NewFromConfig(awsCfg), cfg.InputBucket)
	submitter := transcode.NewSubmitter(elastictranscoder.NewFromConfig(awsCfg),
		cfg.PipelineID, cfg.SegmentDuration)
	publisher := status.NewPublisher(sqs.NewFromConfig(awsCfg), cfg.SQSQueueURL, media)

	dispatcher = dispatch.New(dispatch.Config{
		InputBucket:  cfg.InputBucket,
		OutputBucket: cfg.OutputBucket,
	}, media, submitter, nil, nil, nil, nil, publisher)

	lambdaboot.StartupLog("transcode-trigger-lambda", initStart).
		Bucket("input", cfg.InputBucket).
		Queue("status", cfg.SQSQueueURL).
		Pipeline("transcoder", cfg.PipelineID).
		Log()
}

func main() {
	lambda.Start(handler)
}

func handler(ctx context.Context, s3Event events.S3Event) error {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "transcode-trigger-lambda").Msg("Cold start — first invocation")
	}

	return dispatcher.HandleUploadRecords(ctx, s3Event.Records)
}
