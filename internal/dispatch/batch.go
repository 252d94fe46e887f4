package dispatch

import (
	"context"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"github.com/smartmedia/aws-pipeline/internal/events"
)

// Record loops for the batched Lambda event sources. Failures are isolated
// per record: a malformed or failing record is logged and skipped so the
// rest of the batch still processes, and the batch handler returns nil to
// keep the transport from redelivering the records that succeeded.

// HandleUploadRecords processes every object in an S3 notification batch.
func (d *Dispatcher) HandleUploadRecords(ctx context.Context, records []awsevents.S3EventRecord) error {
	for _, record := range records {
		ev := events.UploadEvent{
			Bucket: record.S3.Bucket.Name,
			Key:    record.S3.Object.URLDecodedKey,
		}
		if err := d.HandleUpload(ctx, ev); err != nil {
			log.Error().Err(err).Str("key", ev.Key).Msg("Failed to handle upload")
		}
	}
	return nil
}

// HandleTranscodeRecords processes every transcode notification in an SNS
// batch.
func (d *Dispatcher) HandleTranscodeRecords(ctx context.Context, records []awsevents.SNSEventRecord) error {
	for _, record := range records {
		ev, err := events.ParseTranscodeCompletion(record.SNS.Message)
		if err != nil {
			log.Error().Err(err).Str("messageId", record.SNS.MessageID).Msg("Dropping malformed transcode notification")
			continue
		}
		if err := d.HandleTranscodeComplete(ctx, ev); err != nil {
			log.Error().Err(err).Str("jobId", ev.JobID).Msg("Failed to handle transcode completion")
		}
	}
	return nil
}

// HandleRecognitionRecords processes every recognition notification in an
// SNS batch.
func (d *Dispatcher) HandleRecognitionRecords(ctx context.Context, records []awsevents.SNSEventRecord) error {
	for _, record := range records {
		ev, err := events.ParseRecognitionCompletion(record.SNS.Message)
		if err != nil {
			log.Error().Err(err).Str("messageId", record.SNS.MessageID).Msg("Dropping malformed recognition notification")
			continue
		}
		if err := d.HandleRecognitionComplete(ctx, ev); err != nil {
			log.Error().Err(err).Str("jobId", ev.JobID).Str("api", ev.API).Msg("Failed to handle recognition completion")
		}
	}
	return nil
}
