// Package events defines the typed completion-event schemas consumed by the
// pipeline lambdas and the boundary parsing that produces them. Each inbound
// transport payload (S3 notification, SNS message, EventBridge detail) is
// validated here; handlers never work from raw JSON maps.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedEvent reports a completion payload that is missing a required
// field or cannot be decoded.
var ErrMalformedEvent = errors.New("malformed completion event")

// PermissionsCheckKey is the sentinel object the upstream system uploads to
// verify bucket access. Its appearance is not a conversion request.
const PermissionsCheckKey = "permissions_check_file"

// UploadEvent is a single uploaded object to be transcoded.
type UploadEvent struct {
	Bucket string
	Key    string
}

// IsPermissionsCheck reports whether this upload is the access-probe
// sentinel rather than real media.
func (e UploadEvent) IsPermissionsCheck() bool {
	return e.Key == PermissionsCheckKey
}

// TranscodeOutput is one rendition produced by a transcode job.
type TranscodeOutput struct {
	ID       string `json:"id"`
	PresetID string `json:"presetId"`
	Key      string `json:"key"`
	Status   string `json:"status"`
	Duration int64  `json:"duration"`
	Width    int32  `json:"width"`
	Height   int32  `json:"height"`
}

// TranscodeCompletionEvent is the Elastic Transcoder job-state notification
// delivered via SNS.
type TranscodeCompletionEvent struct {
	State           string            `json:"state"`
	JobID           string            `json:"jobId"`
	PipelineID      string            `json:"pipelineId"`
	Input           TranscodeInput    `json:"input"`
	OutputKeyPrefix string            `json:"outputKeyPrefix"`
	Outputs         []TranscodeOutput `json:"outputs"`
	UserMetadata    map[string]string `json:"userMetadata"`
}

// TranscodeInput addresses the source object of a transcode job.
type TranscodeInput struct {
	Key string `json:"key"`
}

// Completed reports whether the transcode job finished successfully.
func (e TranscodeCompletionEvent) Completed() bool {
	return e.State == "COMPLETED"
}

// SourceKey returns the logical object key the job was created for: the
// first path element of the input key.
func (e TranscodeCompletionEvent) SourceKey() string {
	key, _, _ := strings.Cut(e.Input.Key, "/")
	return key
}

// ParseTranscodeCompletion decodes and validates an Elastic Transcoder SNS
// message body.
func ParseTranscodeCompletion(body string) (TranscodeCompletionEvent, error) {
	var ev TranscodeCompletionEvent
	if err := json.Unmarshal([]byte(body), &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.State == "" || ev.JobID == "" || ev.Input.Key == "" {
		return ev, fmt.Errorf("%w: transcode notification missing state, jobId or input key", ErrMalformedEvent)
	}
	return ev, nil
}

// RecognitionCompletionEvent is the Rekognition video-analysis completion
// notification delivered via SNS.
type RecognitionCompletionEvent struct {
	JobID  string         `json:"JobId"`
	API    string         `json:"API"`
	Status string         `json:"Status"`
	JobTag string         `json:"JobTag"`
	Video  RecognitionRef `json:"Video"`
}

// RecognitionRef addresses the analyzed rendition in S3.
type RecognitionRef struct {
	S3Bucket     string `json:"S3Bucket"`
	S3ObjectName string `json:"S3ObjectName"`
}

// Succeeded reports whether the analysis job finished successfully.
func (e RecognitionCompletionEvent) Succeeded() bool {
	return e.Status == "SUCCEEDED"
}

// SourceKey returns the logical object key: the first path element of the
// analyzed object's name.
func (e RecognitionCompletionEvent) SourceKey() string {
	key, _, _ := strings.Cut(e.Video.S3ObjectName, "/")
	return key
}

// ParseRecognitionCompletion decodes and validates a Rekognition SNS
// message body.
func ParseRecognitionCompletion(body string) (RecognitionCompletionEvent, error) {
	var ev RecognitionCompletionEvent
	if err := json.Unmarshal([]byte(body), &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.JobID == "" || ev.API == "" || ev.Status == "" {
		return ev, fmt.Errorf("%w: recognition notification missing JobId, API or Status", ErrMalformedEvent)
	}
	if ev.Video.S3Bucket == "" || ev.Video.S3ObjectName == "" {
		return ev, fmt.Errorf("%w: recognition notification missing video reference", ErrMalformedEvent)
	}
	return ev, nil
}

// TranscriptionStateChange is the EventBridge detail payload emitted when a
// transcription job changes state.
type TranscriptionStateChange struct {
	JobName string `json:"TranscriptionJobName"`
	Status  string `json:"TranscriptionJobStatus"`
}

// Completed reports whether the transcription job finished successfully.
func (e TranscriptionStateChange) Completed() bool {
	return e.Status == "COMPLETED"
}

// ParseTranscriptionStateChange decodes and validates an EventBridge
// transcription state-change detail.
func ParseTranscriptionStateChange(detail json.RawMessage) (TranscriptionStateChange, error) {
	var ev TranscriptionStateChange
	if err := json.Unmarshal(detail, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.JobName == "" || ev.Status == "" {
		return ev, fmt.Errorf("%w: transcription state change missing job name or status", ErrMalformedEvent)
	}
	return ev, nil
}
