// Package dispatch is the pipeline stage controller. Each handler consumes
// one normalized completion event, decides which downstream capability
// invocations follow from the object's service configuration, and emits a
// status event for the transition. All cross-stage state lives in object
// storage and the capability providers' own job tracking; the dispatcher
// itself is stateless.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/transcribe"

	"github.com/smartmedia/aws-pipeline/internal/analyze"
	"github.com/smartmedia/aws-pipeline/internal/collect"
	"github.com/smartmedia/aws-pipeline/internal/mediastore"
	"github.com/smartmedia/aws-pipeline/internal/rekog"
	"github.com/smartmedia/aws-pipeline/internal/transcode"
)

// ProcessTranscode is the status process tag for the transcode stage. The
// analysis stages use their capability API names.
const ProcessTranscode = "ElasticTranscoderJob"

// ProcessTranscription is the status process tag for the transcription
// stage, matching the capability's start operation.
const ProcessTranscription = "StartTranscriptionJob"

// MediaStore reads source-object metadata and copies renditions.
type MediaStore interface {
	Metadata(ctx context.Context, objectKey string) (mediastore.ObjectMetadata, error)
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error
}

// TranscodeService resolves preset descriptors and submits transcode jobs.
type TranscodeService interface {
	Renditions(ctx context.Context, descriptor string) ([]transcode.Rendition, error)
	Submit(ctx context.Context, req transcode.JobRequest) (string, error)
}

// TranscribeClient is the transcription API surface the dispatcher calls.
type TranscribeClient interface {
	StartTranscriptionJob(ctx context.Context, in *transcribe.StartTranscriptionJobInput, opts ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, in *transcribe.GetTranscriptionJobInput, opts ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error)
}

// ArtifactStore persists stage results.
type ArtifactStore interface {
	PutJSON(ctx context.Context, key string, payload any) error
	PutRaw(ctx context.Context, key string, body io.Reader) error
}

// StatusPublisher emits one envelope per stage transition.
type StatusPublisher interface {
	Publish(ctx context.Context, objectKey, process, status string, payload any) error
}

// Config is the environment wiring the dispatcher needs.
type Config struct {
	InputBucket  string
	OutputBucket string

	CompletionTopicARN string
	RekognitionRoleARN string

	LanguageCode string
	SampleRate   int32
}

// Dispatcher wires the stage handlers to their collaborators. Construct one
// per Lambda cold start.
type Dispatcher struct {
	cfg Config

	media      MediaStore
	transcoder TranscodeService
	analyzers  *rekog.Registry
	transcribe TranscribeClient
	comprehend analyze.Client
	artifacts  ArtifactStore
	status     StatusPublisher

	// fetch retrieves a transcript document by URI; replaced in tests.
	fetch func(ctx context.Context, uri string) ([]byte, error)

	// drain collects a capability's paginated results; replaced in tests.
	drain func(ctx context.Context, jobID string, fetch collect.FetchFunc[any]) (collect.ResultSet[any], error)
}

// New returns a Dispatcher. Any collaborator a given Lambda does not use
// may be nil.
func New(cfg Config, media MediaStore, transcoder TranscodeService, analyzers *rekog.Registry,
	transcribeClient TranscribeClient, comprehendClient analyze.Client,
	artifacts ArtifactStore, statusPublisher StatusPublisher) *Dispatcher {
	return &Dispatcher{
		cfg:        cfg,
		media:      media,
		transcoder: transcoder,
		analyzers:  analyzers,
		transcribe: transcribeClient,
		comprehend: comprehendClient,
		artifacts:  artifacts,
		status:     statusPublisher,
		fetch:      fetchURI,
		drain:      collect.Drain[any],
	}
}

// fetchURI downloads a capability-provided result document. Transcript URIs
// are short-lived presigned HTTPS endpoints, so the body is streamed down
// without touching local disk.
func fetchURI(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("build transcript request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch transcript: status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// parseS3URI splits an s3://bucket/key URI into bucket and key.
func parseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("incomplete s3 uri: %q", uri)
	}
	return bucket, key, nil
}

// objectKeyOf extracts the logical object key from a derived S3 key: the
// first path element.
func objectKeyOf(key string) string {
	first, _, _ := strings.Cut(key, "/")
	return first
}
