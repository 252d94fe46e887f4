package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/smartmedia/aws-pipeline/internal/artifact"
	"github.com/smartmedia/aws-pipeline/internal/events"
	"github.com/smartmedia/aws-pipeline/internal/metrics"
)

// HandleRecognitionComplete is the Recognizing → Analyzing transition:
// drain the completed job's paginated results and persist them at the
// capability's metadata path. A failed job persists nothing; the failure
// status is forwarded verbatim in the stage's status event.
func (d *Dispatcher) HandleRecognitionComplete(ctx context.Context, ev events.RecognitionCompletionEvent) error {
	objectKey := ev.SourceKey()
	logger := log.With().
		Str("objectKey", objectKey).
		Str("capability", ev.API).
		Str("jobId", ev.JobID).
		Logger()
	start := time.Now()

	capability, ok := d.analyzers.ByAPI(ev.API)
	if !ok {
		return fmt.Errorf("%w: unknown recognition capability %q", events.ErrMalformedEvent, ev.API)
	}

	if !ev.Succeeded() {
		logger.Warn().Str("status", ev.Status).Msg("Recognition job did not succeed")
		return d.status.Publish(ctx, objectKey, ev.API, ev.Status, ev)
	}

	rs, err := d.drain(ctx, ev.JobID, d.analyzers.Fetcher(capability))
	if err != nil {
		return fmt.Errorf("collect %s results for %s: %w", ev.API, objectKey, err)
	}

	payload := map[string]any{
		"VideoMetadata":        rs.Metadata,
		capability.ResultField: rs.Items,
	}
	if rs.Truncated {
		payload["Truncated"] = true
	}

	key := artifact.MetadataPath(objectKey, capability.ResultField)
	if err := d.artifacts.PutJSON(ctx, key, payload); err != nil {
		return err
	}

	logger.Info().
		Int("items", len(rs.Items)).
		Bool("truncated", rs.Truncated).
		Str("artifact", key).
		Msg("Recognition results persisted")

	if err := d.status.Publish(ctx, objectKey, ev.API, ev.Status, ev); err != nil {
		return err
	}

	stage := metrics.NewStage("recognition").
		Dimension("Capability", ev.API).
		Count("ItemsCollected", len(rs.Items)).
		Duration("StageTime", time.Since(start))
	if rs.Truncated {
		stage.Count("TruncatedResults", 1)
	}
	stage.Flush()
	return nil
}
