package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/rs/zerolog/log"

	"github.com/smartmedia/aws-pipeline/internal/analyze"
	"github.com/smartmedia/aws-pipeline/internal/artifact"
	"github.com/smartmedia/aws-pipeline/internal/events"
	"github.com/smartmedia/aws-pipeline/internal/flags"
	"github.com/smartmedia/aws-pipeline/internal/metrics"
)

// transcriptArtifactName is the metadata artifact holding the raw
// transcript document.
const transcriptArtifactName = "transcription"

// HandleTranscriptionComplete is the Transcribing → Analyzing transition:
// persist the finished transcript, then run the enabled text-analytics
// detections over its text. An empty transcript ends the branch after the
// transcript artifact is written.
func (d *Dispatcher) HandleTranscriptionComplete(ctx context.Context, ev events.TranscriptionStateChange) error {
	start := time.Now()

	job, err := d.transcribe.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(ev.JobName),
	})
	if err != nil {
		return fmt.Errorf("get transcription job %s: %w", ev.JobName, err)
	}

	mediaURI := aws.ToString(job.TranscriptionJob.Media.MediaFileUri)
	_, mediaKey, err := parseS3URI(mediaURI)
	if err != nil {
		return fmt.Errorf("transcription job %s: %w", ev.JobName, err)
	}
	objectKey := objectKeyOf(mediaKey)
	logger := log.With().Str("objectKey", objectKey).Str("jobName", ev.JobName).Logger()

	if !ev.Completed() {
		logger.Warn().Str("status", ev.Status).Msg("Transcription job did not complete")
		return d.status.Publish(ctx, objectKey, ProcessTranscription, ev.Status, ev)
	}

	transcriptURI := aws.ToString(job.TranscriptionJob.Transcript.TranscriptFileUri)
	doc, err := d.fetch(ctx, transcriptURI)
	if err != nil {
		return fmt.Errorf("transcription job %s: %w", ev.JobName, err)
	}

	key := artifact.MetadataPath(objectKey, transcriptArtifactName)
	if err := d.artifacts.PutRaw(ctx, key, bytes.NewReader(doc)); err != nil {
		return err
	}
	logger.Info().Str("artifact", key).Msg("Transcript persisted")

	if err := d.status.Publish(ctx, objectKey, ProcessTranscription, ev.Status, ev); err != nil {
		return err
	}

	text, err := analyze.ExtractTranscriptText(doc)
	if err != nil {
		return fmt.Errorf("transcription job %s: %w", ev.JobName, err)
	}
	if text == "" {
		logger.Info().Msg("Empty transcript, skipping text analytics")
		return nil
	}

	meta, err := d.media.Metadata(ctx, objectKey)
	if err != nil {
		return fmt.Errorf("transcription job %s: %w", ev.JobName, err)
	}
	cfg, err := flags.Decode(meta.Processes, flags.DefaultPositions)
	if err != nil {
		return fmt.Errorf("transcription job %s: %w", ev.JobName, err)
	}

	lang := analyze.LanguageCode(d.cfg.LanguageCode)
	ran := 0
	for _, detection := range analyze.Enabled(cfg) {
		result, err := detection.Run(ctx, d.comprehend, text, lang)
		if err != nil {
			return fmt.Errorf("analyze %s: %w", objectKey, err)
		}
		key := artifact.MetadataPath(objectKey, detection.ResultField)
		if err := d.artifacts.PutJSON(ctx, key, result); err != nil {
			return err
		}
		if err := d.status.Publish(ctx, objectKey, detection.API, "SUCCEEDED", nil); err != nil {
			return err
		}
		ran++
		logger.Info().Str("detection", detection.API).Str("artifact", key).Msg("Text analysis persisted")
	}

	metrics.NewStage("transcription-complete").
		Count("DetectionsRun", ran).
		Count("TranscriptBytes", len(doc)).
		Duration("StageTime", time.Since(start)).
		Flush()
	return nil
}
