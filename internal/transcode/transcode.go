// Package transcode turns the upload-time preset descriptor into an Elastic
// Transcoder job: one output per rendition, fragmented renditions grouped
// into adaptive-streaming playlists, and canonical rendition addressing for
// the downstream analysis stages.
package transcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elastictranscoder"
	"github.com/aws/aws-sdk-go-v2/service/elastictranscoder/types"
)

// ErrMalformedPresets reports a preset descriptor that is neither a
// comma-separated id list nor a JSON array of {presetId: container} pairs.
var ErrMalformedPresets = errors.New("malformed preset descriptor")

// Client is the subset of the Elastic Transcoder API the pipeline calls.
type Client interface {
	CreateJob(ctx context.Context, in *elastictranscoder.CreateJobInput, opts ...func(*elastictranscoder.Options)) (*elastictranscoder.CreateJobOutput, error)
	ReadPreset(ctx context.Context, in *elastictranscoder.ReadPresetInput, opts ...func(*elastictranscoder.Options)) (*elastictranscoder.ReadPresetOutput, error)
}

// Rendition is one requested output: an encoding preset plus the container
// it produces.
type Rendition struct {
	PresetID  string
	Container string
}

// fragmented containers are segmented for adaptive streaming and get grouped
// into playlists instead of standalone files.
var playlistFormats = map[string]string{
	"fmp4": "HLSv4",
	"ts":   "HLSv3",
}

// Fragmented reports whether the rendition is a segmented streaming output.
func (r Rendition) Fragmented() bool {
	_, ok := playlistFormats[r.Container]
	return ok
}

// OutputKey derives the job-relative key for the rendition. Fragmented
// outputs carry no extension; the playlist references them.
func (r Rendition) OutputKey() string {
	if r.Fragmented() {
		return r.PresetID + "_fragmented"
	}
	return r.PresetID + "." + r.Container
}

// ParsePresets decodes the "presets" metadata value. Two forms are accepted:
// a JSON array of single-entry {presetId: container} objects, or a
// comma-separated preset id list whose containers are resolved through the
// preset reader.
func ParsePresets(ctx context.Context, raw string, client Client) ([]Rendition, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty descriptor", ErrMalformedPresets)
	}

	if strings.HasPrefix(raw, "[") {
		return parseJSONDescriptor(raw)
	}

	var renditions []Rendition
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%w: empty preset id", ErrMalformedPresets)
		}
		out, err := client.ReadPreset(ctx, &elastictranscoder.ReadPresetInput{Id: aws.String(id)})
		if err != nil {
			return nil, fmt.Errorf("read preset %s: %w", id, err)
		}
		renditions = append(renditions, Rendition{
			PresetID:  id,
			Container: aws.ToString(out.Preset.Container),
		})
	}
	return renditions, nil
}

func parseJSONDescriptor(raw string) ([]Rendition, error) {
	var entries []map[string]string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPresets, err)
	}

	var renditions []Rendition
	for _, entry := range entries {
		for id, container := range entry {
			if id == "" || container == "" {
				return nil, fmt.Errorf("%w: empty preset id or container", ErrMalformedPresets)
			}
			renditions = append(renditions, Rendition{PresetID: id, Container: container})
		}
	}
	if len(renditions) == 0 {
		return nil, fmt.Errorf("%w: no renditions", ErrMalformedPresets)
	}
	return renditions, nil
}

// Submitter creates transcode jobs on a fixed pipeline.
type Submitter struct {
	client          Client
	pipelineID      string
	segmentDuration string
}

// NewSubmitter returns a Submitter bound to a pipeline. segmentDuration is
// the playlist segment length in seconds, as a string per the provider API.
func NewSubmitter(client Client, pipelineID, segmentDuration string) *Submitter {
	return &Submitter{client: client, pipelineID: pipelineID, segmentDuration: segmentDuration}
}

// Renditions resolves a preset descriptor through the submitter's client.
func (s *Submitter) Renditions(ctx context.Context, descriptor string) ([]Rendition, error) {
	return ParsePresets(ctx, descriptor, s.client)
}

// JobRequest describes one transcode submission.
type JobRequest struct {
	// InputKey is the uploaded object's key in the input bucket.
	InputKey string

	// OutputPrefix is prepended to every rendition key, conventionally
	// "<objectKey>/conversions/".
	OutputPrefix string

	Renditions []Rendition

	// SiteID travels in the job's user metadata so completion events can
	// be traced to a site without a metadata lookup.
	SiteID string
}

// Submit creates a single job carrying one output per rendition plus the
// playlist groupings for fragmented renditions, and returns the job id.
func (s *Submitter) Submit(ctx context.Context, req JobRequest) (string, error) {
	if len(req.Renditions) == 0 {
		return "", fmt.Errorf("%w: no renditions to submit", ErrMalformedPresets)
	}

	outputs := make([]types.CreateJobOutput, 0, len(req.Renditions))
	playlistKeys := map[string][]string{}
	for _, r := range req.Renditions {
		out := types.CreateJobOutput{
			Key:      aws.String(r.OutputKey()),
			PresetId: aws.String(r.PresetID),
		}
		if r.Fragmented() {
			out.SegmentDuration = aws.String(s.segmentDuration)
			playlistKeys[r.Container] = append(playlistKeys[r.Container], r.OutputKey())
		}
		outputs = append(outputs, out)
	}

	containers := make([]string, 0, len(playlistKeys))
	for container := range playlistKeys {
		containers = append(containers, container)
	}
	sort.Strings(containers)

	playlists := make([]types.CreateJobPlaylist, 0, len(containers))
	for _, container := range containers {
		playlists = append(playlists, types.CreateJobPlaylist{
			Name:       aws.String(container + "_playlist"),
			Format:     aws.String(playlistFormats[container]),
			OutputKeys: playlistKeys[container],
		})
	}

	out, err := s.client.CreateJob(ctx, &elastictranscoder.CreateJobInput{
		PipelineId:      aws.String(s.pipelineID),
		Input:           &types.JobInput{Key: aws.String(req.InputKey)},
		OutputKeyPrefix: aws.String(req.OutputPrefix),
		Outputs:         outputs,
		Playlists:       playlists,
		UserMetadata: map[string]string{
			"siteid":    req.SiteID,
			"sourcekey": req.InputKey,
		},
	})
	if err != nil {
		return "", fmt.Errorf("create transcode job: %w", err)
	}
	return aws.ToString(out.Job.Id), nil
}
