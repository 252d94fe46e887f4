package dispatch

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rekogtypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"

	"github.com/smartmedia/aws-pipeline/internal/mediastore"
	"github.com/smartmedia/aws-pipeline/internal/transcode"
)

// fakeMedia serves canned object metadata and records copies. metaErr fails
// every metadata read, or only failKey's when failKey is set.
type fakeMedia struct {
	meta      mediastore.ObjectMetadata
	metaErr   error
	failKey   string
	metaCalls []string
	copies    []copyCall
}

type copyCall struct {
	srcBucket, srcKey string
	dstBucket, dstKey string
}

func (f *fakeMedia) Metadata(ctx context.Context, objectKey string) (mediastore.ObjectMetadata, error) {
	f.metaCalls = append(f.metaCalls, objectKey)
	if f.metaErr != nil && (f.failKey == "" || objectKey == f.failKey) {
		return mediastore.ObjectMetadata{}, f.metaErr
	}
	return f.meta, nil
}

func (f *fakeMedia) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	f.copies = append(f.copies, copyCall{srcBucket, srcKey, dstBucket, dstKey})
	return nil
}

// fakeTranscoder resolves a fixed rendition set and records submissions.
type fakeTranscoder struct {
	renditions []transcode.Rendition
	rendErr    error
	submitted  []transcode.JobRequest
	jobID      string
}

func (f *fakeTranscoder) Renditions(ctx context.Context, descriptor string) ([]transcode.Rendition, error) {
	return f.renditions, f.rendErr
}

func (f *fakeTranscoder) Submit(ctx context.Context, req transcode.JobRequest) (string, error) {
	f.submitted = append(f.submitted, req)
	return f.jobID, nil
}

// fakeTranscribe records the start input and serves a canned job descriptor.
type fakeTranscribe struct {
	startIn  *transcribe.StartTranscriptionJobInput
	startErr error
	getOut   *transcribe.GetTranscriptionJobOutput
}

func (f *fakeTranscribe) StartTranscriptionJob(ctx context.Context, in *transcribe.StartTranscriptionJobInput, opts ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error) {
	f.startIn = in
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &transcribe.StartTranscriptionJobOutput{}, nil
}

func (f *fakeTranscribe) GetTranscriptionJob(ctx context.Context, in *transcribe.GetTranscriptionJobInput, opts ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error) {
	return f.getOut, nil
}

// fakeArtifacts keeps persisted artifacts in memory by key.
type fakeArtifacts struct {
	jsonPuts map[string]any
	rawPuts  map[string][]byte
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{jsonPuts: map[string]any{}, rawPuts: map[string][]byte{}}
}

func (f *fakeArtifacts) PutJSON(ctx context.Context, key string, payload any) error {
	f.jsonPuts[key] = payload
	return nil
}

func (f *fakeArtifacts) PutRaw(ctx context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.rawPuts[key] = data
	return nil
}

// fakeStatus records every published stage transition.
type fakeStatus struct {
	events []statusEvent
}

type statusEvent struct {
	objectKey string
	process   string
	status    string
	payload   any
}

func (f *fakeStatus) Publish(ctx context.Context, objectKey, process, status string, payload any) error {
	f.events = append(f.events, statusEvent{objectKey, process, status, payload})
	return nil
}

// byProcess filters the recorded events down to one process tag.
func (f *fakeStatus) byProcess(process string) []statusEvent {
	var out []statusEvent
	for _, ev := range f.events {
		if ev.process == process {
			out = append(out, ev)
		}
	}
	return out
}

// fakeRekognition counts start calls per API and serves a single face page.
type fakeRekognition struct {
	starts map[string]int
}

func newFakeRekognition() *fakeRekognition {
	return &fakeRekognition{starts: map[string]int{}}
}

func (f *fakeRekognition) StartLabelDetection(ctx context.Context, in *rekognition.StartLabelDetectionInput, opts ...func(*rekognition.Options)) (*rekognition.StartLabelDetectionOutput, error) {
	f.starts["StartLabelDetection"]++
	return &rekognition.StartLabelDetectionOutput{JobId: aws.String("label-job")}, nil
}

func (f *fakeRekognition) StartContentModeration(ctx context.Context, in *rekognition.StartContentModerationInput, opts ...func(*rekognition.Options)) (*rekognition.StartContentModerationOutput, error) {
	f.starts["StartContentModeration"]++
	return &rekognition.StartContentModerationOutput{JobId: aws.String("mod-job")}, nil
}

func (f *fakeRekognition) StartFaceDetection(ctx context.Context, in *rekognition.StartFaceDetectionInput, opts ...func(*rekognition.Options)) (*rekognition.StartFaceDetectionOutput, error) {
	f.starts["StartFaceDetection"]++
	return &rekognition.StartFaceDetectionOutput{JobId: aws.String("face-job")}, nil
}

func (f *fakeRekognition) StartPersonTracking(ctx context.Context, in *rekognition.StartPersonTrackingInput, opts ...func(*rekognition.Options)) (*rekognition.StartPersonTrackingOutput, error) {
	f.starts["StartPersonTracking"]++
	return &rekognition.StartPersonTrackingOutput{JobId: aws.String("person-job")}, nil
}

func (f *fakeRekognition) GetLabelDetection(ctx context.Context, in *rekognition.GetLabelDetectionInput, opts ...func(*rekognition.Options)) (*rekognition.GetLabelDetectionOutput, error) {
	return &rekognition.GetLabelDetectionOutput{}, nil
}

func (f *fakeRekognition) GetContentModeration(ctx context.Context, in *rekognition.GetContentModerationInput, opts ...func(*rekognition.Options)) (*rekognition.GetContentModerationOutput, error) {
	return &rekognition.GetContentModerationOutput{
		ModerationLabels: []rekogtypes.ContentModerationDetection{{Timestamp: 2000}},
		VideoMetadata:    &rekogtypes.VideoMetadata{DurationMillis: aws.Int64(60000)},
	}, nil
}

func (f *fakeRekognition) GetFaceDetection(ctx context.Context, in *rekognition.GetFaceDetectionInput, opts ...func(*rekognition.Options)) (*rekognition.GetFaceDetectionOutput, error) {
	return &rekognition.GetFaceDetectionOutput{
		Faces:         []rekogtypes.FaceDetection{{Timestamp: 500}, {Timestamp: 1500}},
		VideoMetadata: &rekogtypes.VideoMetadata{DurationMillis: aws.Int64(60000)},
	}, nil
}

func (f *fakeRekognition) GetPersonTracking(ctx context.Context, in *rekognition.GetPersonTrackingInput, opts ...func(*rekognition.Options)) (*rekognition.GetPersonTrackingOutput, error) {
	return &rekognition.GetPersonTrackingOutput{}, nil
}

// fakeComprehend records which detections ran.
type fakeComprehend struct {
	sentiment  int
	keyPhrases int
	entities   int
}

func (f *fakeComprehend) DetectSentiment(ctx context.Context, in *comprehend.DetectSentimentInput, opts ...func(*comprehend.Options)) (*comprehend.DetectSentimentOutput, error) {
	f.sentiment++
	return &comprehend.DetectSentimentOutput{}, nil
}

func (f *fakeComprehend) DetectKeyPhrases(ctx context.Context, in *comprehend.DetectKeyPhrasesInput, opts ...func(*comprehend.Options)) (*comprehend.DetectKeyPhrasesOutput, error) {
	f.keyPhrases++
	return &comprehend.DetectKeyPhrasesOutput{}, nil
}

func (f *fakeComprehend) DetectEntities(ctx context.Context, in *comprehend.DetectEntitiesInput, opts ...func(*comprehend.Options)) (*comprehend.DetectEntitiesOutput, error) {
	f.entities++
	return &comprehend.DetectEntitiesOutput{}, nil
}
