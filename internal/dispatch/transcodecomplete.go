package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	transcribetypes "github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"

	"github.com/smartmedia/aws-pipeline/internal/events"
	"github.com/smartmedia/aws-pipeline/internal/flags"
	"github.com/smartmedia/aws-pipeline/internal/metrics"
	"github.com/smartmedia/aws-pipeline/internal/rekog"
	"github.com/smartmedia/aws-pipeline/internal/transcode"
)

// HandleTranscodeComplete is the Transcoding → Recognizing/Transcribing
// transition. On a completed job it copies the produced renditions to their
// canonical keys, then fans out one invocation per enabled capability. An
// unsuccessful job terminates the object's branch with only a status event.
func (d *Dispatcher) HandleTranscodeComplete(ctx context.Context, ev events.TranscodeCompletionEvent) error {
	objectKey := ev.SourceKey()
	logger := log.With().Str("objectKey", objectKey).Str("jobId", ev.JobID).Logger()
	start := time.Now()

	if !ev.Completed() {
		logger.Warn().Str("state", ev.State).Msg("Transcode job did not complete")
		return d.status.Publish(ctx, objectKey, ProcessTranscode, ev.State, ev)
	}

	meta, err := d.media.Metadata(ctx, objectKey)
	if err != nil {
		return fmt.Errorf("transcode complete %s: %w", objectKey, err)
	}
	cfg, err := flags.Decode(meta.Processes, flags.DefaultPositions)
	if err != nil {
		return fmt.Errorf("transcode complete %s: %w", objectKey, err)
	}

	if err := d.status.Publish(ctx, objectKey, ProcessTranscode, ev.State, ev); err != nil {
		return err
	}

	if !cfg.Any() {
		logger.Info().Msg("No analysis services enabled, pipeline ends here")
		return nil
	}

	started, err := d.startRecognition(ctx, objectKey, cfg, ev)
	if err != nil {
		return err
	}
	if cfg.Enabled(flags.Transcribe) {
		n, err := d.startTranscription(ctx, objectKey, ev)
		if err != nil {
			return err
		}
		started += n
	}

	logger.Info().Int("capabilities", started).Msg("Analysis fan-out complete")
	metrics.NewStage("transcode-complete").
		Count("CapabilitiesStarted", started).
		Duration("StageTime", time.Since(start)).
		Flush()
	return nil
}

// startRecognition copies the video rendition to its canonical key and
// submits one analysis job per enabled recognition capability. Returns the
// number of jobs started.
func (d *Dispatcher) startRecognition(ctx context.Context, objectKey string, cfg flags.Config, ev events.TranscodeCompletionEvent) (int, error) {
	enabled := d.analyzers.Enabled(cfg)
	if len(enabled) == 0 {
		return 0, nil
	}

	rendition, ok := transcode.FindVideoRendition(ev.Outputs)
	if !ok {
		// No video output means nothing for the recognition
		// capabilities to analyze; skip them rather than fail.
		log.Warn().Str("objectKey", objectKey).Msg("No video rendition produced, skipping recognition")
		return 0, nil
	}

	canonical := transcode.CanonicalVideoKey(objectKey)
	if err := d.media.Copy(ctx, d.cfg.OutputBucket, ev.OutputKeyPrefix+rendition,
		d.cfg.OutputBucket, canonical); err != nil {
		return 0, err
	}

	req := rekog.StartRequest{
		Bucket:   d.cfg.OutputBucket,
		Key:      canonical,
		TopicARN: d.cfg.CompletionTopicARN,
		RoleARN:  d.cfg.RekognitionRoleARN,
		Token:    ev.JobID,
		Tag:      objectKey,
	}

	started := 0
	for _, capability := range enabled {
		jobID, err := d.analyzers.Start(ctx, capability, req)
		if err != nil {
			return started, fmt.Errorf("start %s for %s: %w", capability.API, objectKey, err)
		}
		started++
		log.Info().
			Str("objectKey", objectKey).
			Str("capability", capability.API).
			Str("jobId", jobID).
			Msg("Recognition job started")
		if err := d.status.Publish(ctx, objectKey, capability.API, "SUBMITTED",
			map[string]string{"jobId": jobID}); err != nil {
			return started, err
		}
	}
	return started, nil
}

// startTranscription copies the audio rendition to its canonical key and
// submits the transcription job. The job name embeds the transcode job id,
// so a redelivered completion event collides with the first submission
// instead of duplicating work.
func (d *Dispatcher) startTranscription(ctx context.Context, objectKey string, ev events.TranscodeCompletionEvent) (int, error) {
	rendition, ok := transcode.FindAudioRendition(ev.Outputs)
	if !ok {
		log.Warn().Str("objectKey", objectKey).Msg("No audio rendition produced, skipping transcription")
		return 0, nil
	}

	canonical := transcode.CanonicalAudioKey(objectKey)
	if err := d.media.Copy(ctx, d.cfg.OutputBucket, ev.OutputKeyPrefix+rendition,
		d.cfg.OutputBucket, canonical); err != nil {
		return 0, err
	}

	jobName := objectKey + "_" + ev.JobID
	_, err := d.transcribe.StartTranscriptionJob(ctx, &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
		Media: &transcribetypes.Media{
			MediaFileUri: aws.String(fmt.Sprintf("s3://%s/%s", d.cfg.OutputBucket, canonical)),
		},
		MediaFormat:          transcribetypes.MediaFormatMp3,
		MediaSampleRateHertz: aws.Int32(d.cfg.SampleRate),
		LanguageCode:         transcribetypes.LanguageCode(d.cfg.LanguageCode),
	})
	if err != nil {
		if isConflict(err) {
			// Redelivered completion event; the job already exists.
			log.Info().Str("objectKey", objectKey).Str("jobName", jobName).Msg("Transcription job already started")
			return 0, nil
		}
		return 0, fmt.Errorf("start transcription for %s: %w", objectKey, err)
	}

	log.Info().Str("objectKey", objectKey).Str("jobName", jobName).Msg("Transcription job started")
	if err := d.status.Publish(ctx, objectKey, ProcessTranscription, "SUBMITTED",
		map[string]string{"jobName": jobName}); err != nil {
		return 1, err
	}
	return 1, nil
}

func isConflict(err error) bool {
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "ConflictException"
}
