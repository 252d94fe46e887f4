// Package rekog maps each video-analysis capability to its start call, its
// paginated result getter, and its result naming. The table is built at
// registration time, so handlers dispatch on capability values instead of
// API name strings.
package rekog

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/smartmedia/aws-pipeline/internal/collect"
	"github.com/smartmedia/aws-pipeline/internal/flags"
)

// maxPageSize is the largest Rekognition result page; one call per 1000
// items keeps the drain loop short.
const maxPageSize = 1000

// Client is the subset of the Rekognition API the pipeline calls.
// *rekognition.Client satisfies it; tests substitute fakes.
type Client interface {
	StartLabelDetection(ctx context.Context, in *rekognition.StartLabelDetectionInput, opts ...func(*rekognition.Options)) (*rekognition.StartLabelDetectionOutput, error)
	StartContentModeration(ctx context.Context, in *rekognition.StartContentModerationInput, opts ...func(*rekognition.Options)) (*rekognition.StartContentModerationOutput, error)
	StartFaceDetection(ctx context.Context, in *rekognition.StartFaceDetectionInput, opts ...func(*rekognition.Options)) (*rekognition.StartFaceDetectionOutput, error)
	StartPersonTracking(ctx context.Context, in *rekognition.StartPersonTrackingInput, opts ...func(*rekognition.Options)) (*rekognition.StartPersonTrackingOutput, error)
	GetLabelDetection(ctx context.Context, in *rekognition.GetLabelDetectionInput, opts ...func(*rekognition.Options)) (*rekognition.GetLabelDetectionOutput, error)
	GetContentModeration(ctx context.Context, in *rekognition.GetContentModerationInput, opts ...func(*rekognition.Options)) (*rekognition.GetContentModerationOutput, error)
	GetFaceDetection(ctx context.Context, in *rekognition.GetFaceDetectionInput, opts ...func(*rekognition.Options)) (*rekognition.GetFaceDetectionOutput, error)
	GetPersonTracking(ctx context.Context, in *rekognition.GetPersonTrackingInput, opts ...func(*rekognition.Options)) (*rekognition.GetPersonTrackingOutput, error)
}

// StartRequest carries everything a start call needs: the canonical video
// rendition, the completion notification channel, and the idempotency token
// derived from the upstream transcode job.
type StartRequest struct {
	Bucket   string
	Key      string
	TopicARN string
	RoleARN  string
	Token    string
	Tag      string
}

func (r StartRequest) video() *types.Video {
	return &types.Video{
		S3Object: &types.S3Object{
			Bucket: aws.String(r.Bucket),
			Name:   aws.String(r.Key),
		},
	}
}

func (r StartRequest) channel() *types.NotificationChannel {
	return &types.NotificationChannel{
		SNSTopicArn: aws.String(r.TopicARN),
		RoleArn:     aws.String(r.RoleARN),
	}
}

// Capability is one registered video-analysis kind.
type Capability struct {
	// API is the Rekognition operation name reported in completion
	// notifications and used as the status event process tag.
	API string

	// ResultField names the item field in the persisted artifact and the
	// artifact file itself (<key>/metadata/<ResultField>.json).
	ResultField string

	// Service is the flag position gating this capability.
	Service flags.Service

	start func(ctx context.Context, c Client, req StartRequest) (string, error)
	fetch func(ctx context.Context, c Client, jobID, nextToken string) (collect.Page[any], error)
}

// Registry is the capability table bound to a Rekognition client.
type Registry struct {
	client Client
	caps   []Capability
	byAPI  map[string]Capability
}

// NewRegistry builds the production capability table. Face detection has no
// server-side sort; the other getters sort by timestamp so items arrive in
// media order.
func NewRegistry(client Client) *Registry {
	caps := []Capability{
		{
			API:         "StartLabelDetection",
			ResultField: "Labels",
			Service:     flags.Labels,
			start:       startLabels,
			fetch:       fetchLabels,
		},
		{
			API:         "StartContentModeration",
			ResultField: "ModerationLabels",
			Service:     flags.Moderation,
			start:       startModeration,
			fetch:       fetchModeration,
		},
		{
			API:         "StartFaceDetection",
			ResultField: "Faces",
			Service:     flags.Faces,
			start:       startFaces,
			fetch:       fetchFaces,
		},
		{
			API:         "StartPersonTracking",
			ResultField: "Persons",
			Service:     flags.People,
			start:       startPeople,
			fetch:       fetchPeople,
		},
	}

	byAPI := make(map[string]Capability, len(caps))
	for _, c := range caps {
		byAPI[c.API] = c
	}
	return &Registry{client: client, caps: caps, byAPI: byAPI}
}

// ByAPI resolves a capability from the API name carried in a completion
// notification.
func (r *Registry) ByAPI(api string) (Capability, bool) {
	c, ok := r.byAPI[api]
	return c, ok
}

// Enabled returns the capabilities switched on by cfg, in registration
// order.
func (r *Registry) Enabled(cfg flags.Config) []Capability {
	var out []Capability
	for _, c := range r.caps {
		if cfg.Enabled(c.Service) {
			out = append(out, c)
		}
	}
	return out
}

// Start submits an analysis job for the capability and returns its job id.
func (r *Registry) Start(ctx context.Context, capability Capability, req StartRequest) (string, error) {
	jobID, err := capability.start(ctx, r.client, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", capability.API, err)
	}
	return jobID, nil
}

// Fetcher returns the capability's page fetcher, shaped for collect.Drain.
func (r *Registry) Fetcher(capability Capability) collect.FetchFunc[any] {
	return func(ctx context.Context, jobID, nextToken string) (collect.Page[any], error) {
		return capability.fetch(ctx, r.client, jobID, nextToken)
	}
}

func startLabels(ctx context.Context, c Client, req StartRequest) (string, error) {
	out, err := c.StartLabelDetection(ctx, &rekognition.StartLabelDetectionInput{
		Video:               req.video(),
		NotificationChannel: req.channel(),
		ClientRequestToken:  aws.String(req.Token),
		JobTag:              aws.String(req.Tag),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.JobId), nil
}

func startModeration(ctx context.Context, c Client, req StartRequest) (string, error) {
	out, err := c.StartContentModeration(ctx, &rekognition.StartContentModerationInput{
		Video:               req.video(),
		NotificationChannel: req.channel(),
		ClientRequestToken:  aws.String(req.Token),
		JobTag:              aws.String(req.Tag),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.JobId), nil
}

func startFaces(ctx context.Context, c Client, req StartRequest) (string, error) {
	out, err := c.StartFaceDetection(ctx, &rekognition.StartFaceDetectionInput{
		Video:               req.video(),
		NotificationChannel: req.channel(),
		ClientRequestToken:  aws.String(req.Token),
		JobTag:              aws.String(req.Tag),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.JobId), nil
}

func startPeople(ctx context.Context, c Client, req StartRequest) (string, error) {
	out, err := c.StartPersonTracking(ctx, &rekognition.StartPersonTrackingInput{
		Video:               req.video(),
		NotificationChannel: req.channel(),
		ClientRequestToken:  aws.String(req.Token),
		JobTag:              aws.String(req.Tag),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.JobId), nil
}

func fetchLabels(ctx context.Context, c Client, jobID, nextToken string) (collect.Page[any], error) {
	out, err := c.GetLabelDetection(ctx, &rekognition.GetLabelDetectionInput{
		JobId:      aws.String(jobID),
		MaxResults: aws.Int32(maxPageSize),
		NextToken:  pageToken(nextToken),
		SortBy:     types.LabelDetectionSortByTimestamp,
	})
	if err != nil {
		return collect.Page[any]{}, err
	}
	return page(out.Labels, out.NextToken, out.VideoMetadata), nil
}

func fetchModeration(ctx context.Context, c Client, jobID, nextToken string) (collect.Page[any], error) {
	out, err := c.GetContentModeration(ctx, &rekognition.GetContentModerationInput{
		JobId:      aws.String(jobID),
		MaxResults: aws.Int32(maxPageSize),
		NextToken:  pageToken(nextToken),
		SortBy:     types.ContentModerationSortByTimestamp,
	})
	if err != nil {
		return collect.Page[any]{}, err
	}
	return page(out.ModerationLabels, out.NextToken, out.VideoMetadata), nil
}

func fetchFaces(ctx context.Context, c Client, jobID, nextToken string) (collect.Page[any], error) {
	out, err := c.GetFaceDetection(ctx, &rekognition.GetFaceDetectionInput{
		JobId:      aws.String(jobID),
		MaxResults: aws.Int32(maxPageSize),
		NextToken:  pageToken(nextToken),
	})
	if err != nil {
		return collect.Page[any]{}, err
	}
	return page(out.Faces, out.NextToken, out.VideoMetadata), nil
}

func fetchPeople(ctx context.Context, c Client, jobID, nextToken string) (collect.Page[any], error) {
	out, err := c.GetPersonTracking(ctx, &rekognition.GetPersonTrackingInput{
		JobId:      aws.String(jobID),
		MaxResults: aws.Int32(maxPageSize),
		NextToken:  pageToken(nextToken),
		SortBy:     types.PersonTrackingSortByTimestamp,
	})
	if err != nil {
		return collect.Page[any]{}, err
	}
	return page(out.Persons, out.NextToken, out.VideoMetadata), nil
}

func pageToken(token string) *string {
	if token == "" {
		return nil
	}
	return aws.String(token)
}

func page[T any](items []T, next *string, meta *types.VideoMetadata) collect.Page[any] {
	p := collect.Page[any]{NextToken: aws.ToString(next)}
	for _, item := range items {
		p.Items = append(p.Items, item)
	}
	if meta != nil {
		p.Metadata = meta
	}
	return p
}
