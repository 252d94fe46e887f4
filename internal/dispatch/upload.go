package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/smartmedia/aws-pipeline/internal/events"
	"github.com/smartmedia/aws-pipeline/internal/metrics"
	"github.com/smartmedia/aws-pipeline/internal/transcode"
)

// HandleUpload is the Uploaded → Transcoding transition: read the preset
// descriptor off the uploaded object and submit one transcode job covering
// every requested rendition.
func (d *Dispatcher) HandleUpload(ctx context.Context, ev events.UploadEvent) error {
	if ev.IsPermissionsCheck() {
		// Access probe from the upstream system, not media.
		log.Debug().Str("key", ev.Key).Msg("Ignoring permissions check object")
		return nil
	}

	logger := log.With().Str("objectKey", ev.Key).Logger()
	start := time.Now()

	meta, err := d.media.Metadata(ctx, ev.Key)
	if err != nil {
		return fmt.Errorf("upload %s: %w", ev.Key, err)
	}

	renditions, err := d.transcoder.Renditions(ctx, meta.Presets)
	if err != nil {
		return fmt.Errorf("upload %s: %w", ev.Key, err)
	}

	jobID, err := d.transcoder.Submit(ctx, transcode.JobRequest{
		InputKey:     ev.Key,
		OutputPrefix: ev.Key + "/conversions/",
		Renditions:   renditions,
		SiteID:       meta.SiteID,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", ev.Key, err)
	}

	logger.Info().
		Str("jobId", jobID).
		Int("renditions", len(renditions)).
		Msg("Transcode job submitted")

	if err := d.status.Publish(ctx, ev.Key, ProcessTranscode, "SUBMITTED",
		map[string]string{"jobId": jobID}); err != nil {
		return err
	}

	metrics.NewStage("upload").
		Count("RenditionsRequested", len(renditions)).
		Duration("StageTime", time.Since(start)).
		Flush()
	return nil
}
