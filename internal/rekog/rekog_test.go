package rekog

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/smartmedia/aws-pipeline/internal/collect"
	"github.com/smartmedia/aws-pipeline/internal/flags"
)

// fakeClient records start inputs and serves canned label pages.
type fakeClient struct {
	labelStart   *rekognition.StartLabelDetectionInput
	faceGet      *rekognition.GetFaceDetectionInput
	labelPages   []*rekognition.GetLabelDetectionOutput
	labelPageIdx int
}

func (f *fakeClient) StartLabelDetection(ctx context.Context, in *rekognition.StartLabelDetectionInput, opts ...func(*rekognition.Options)) (*rekognition.StartLabelDetectionOutput, error) {
	f.labelStart = in
	return &rekognition.StartLabelDetectionOutput{JobId: aws.String("label-job-1")}, nil
}

func (f *fakeClient) StartContentModeration(ctx context.Context, in *rekognition.StartContentModerationInput, opts ...func(*rekognition.Options)) (*rekognition.StartContentModerationOutput, error) {
	return &rekognition.StartContentModerationOutput{JobId: aws.String("mod-job-1")}, nil
}

func (f *fakeClient) StartFaceDetection(ctx context.Context, in *rekognition.StartFaceDetectionInput, opts ...func(*rekognition.Options)) (*rekognition.StartFaceDetectionOutput, error) {
	return &rekognition.StartFaceDetectionOutput{JobId: aws.String("face-job-1")}, nil
}

func (f *fakeClient) StartPersonTracking(ctx context.Context, in *rekognition.StartPersonTrackingInput, opts ...func(*rekognition.Options)) (*rekognition.StartPersonTrackingOutput, error) {
	return &rekognition.StartPersonTrackingOutput{JobId: aws.String("person-job-1")}, nil
}

func (f *fakeClient) GetLabelDetection(ctx context.Context, in *rekognition.GetLabelDetectionInput, opts ...func(*rekognition.Options)) (*rekognition.GetLabelDetectionOutput, error) {
	out := f.labelPages[f.labelPageIdx]
	f.labelPageIdx++
	return out, nil
}

func (f *fakeClient) GetContentModeration(ctx context.Context, in *rekognition.GetContentModerationInput, opts ...func(*rekognition.Options)) (*rekognition.GetContentModerationOutput, error) {
	return &rekognition.GetContentModerationOutput{}, nil
}

func (f *fakeClient) GetFaceDetection(ctx context.Context, in *rekognition.GetFaceDetectionInput, opts ...func(*rekognition.Options)) (*rekognition.GetFaceDetectionOutput, error) {
	f.faceGet = in
	return &rekognition.GetFaceDetectionOutput{
		Faces: []types.FaceDetection{{Timestamp: 1000}},
	}, nil
}

func (f *fakeClient) GetPersonTracking(ctx context.Context, in *rekognition.GetPersonTrackingInput, opts ...func(*rekognition.Options)) (*rekognition.GetPersonTrackingOutput, error) {
	return &rekognition.GetPersonTrackingOutput{}, nil
}

func TestRegistry_ByAPI(t *testing.T) {
	r := NewRegistry(&fakeClient{})

	for api, field := range map[string]string{
		"StartLabelDetection":    "Labels",
		"StartContentModeration": "ModerationLabels",
		"StartFaceDetection":     "Faces",
		"StartPersonTracking":    "Persons",
	} {
		c, ok := r.ByAPI(api)
		if !ok {
			t.Fatalf("capability %s not registered", api)
		}
		if c.ResultField != field {
			t.Errorf("%s: expected result field %s, got %s", api, field, c.ResultField)
		}
	}

	if _, ok := r.ByAPI("StartCelebrityRecognition"); ok {
		t.Error("unknown API must not resolve")
	}
}

func TestRegistry_Enabled(t *testing.T) {
	r := NewRegistry(&fakeClient{})

	cfg := flags.Config{flags.Moderation: true, flags.People: true}
	enabled := r.Enabled(cfg)
	if len(enabled) != 2 {
		t.Fatalf("expected 2 enabled capabilities, got %d", len(enabled))
	}
	if enabled[0].API != "StartContentModeration" || enabled[1].API != "StartPersonTracking" {
		t.Errorf("unexpected order: %s, %s", enabled[0].API, enabled[1].API)
	}

	if got := r.Enabled(flags.Config{}); len(got) != 0 {
		t.Errorf("no flags set: expected no capabilities, got %d", len(got))
	}
}

func TestRegistry_StartCarriesRequest(t *testing.T) {
	fc := &fakeClient{}
	r := NewRegistry(fc)
	labels, _ := r.ByAPI("StartLabelDetection")

	jobID, err := r.Start(context.Background(), labels, StartRequest{
		Bucket:   "output-bucket",
		Key:      "abc123/conversions/video.mp4",
		TopicARN: "arn:aws:sns:us-east-1:1:topic",
		RoleARN:  "arn:aws:iam::1:role/rekog",
		Token:    "et-job-1",
		Tag:      "abc123",
	})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if jobID != "label-job-1" {
		t.Errorf("unexpected job id %q", jobID)
	}

	in := fc.labelStart
	if in == nil {
		t.Fatal("StartLabelDetection was not called")
	}
	if aws.ToString(in.Video.S3Object.Bucket) != "output-bucket" ||
		aws.ToString(in.Video.S3Object.Name) != "abc123/conversions/video.mp4" {
		t.Errorf("unexpected video reference: %+v", in.Video.S3Object)
	}
	if aws.ToString(in.ClientRequestToken) != "et-job-1" {
		t.Errorf("idempotency token not carried: %v", in.ClientRequestToken)
	}
	if aws.ToString(in.JobTag) != "abc123" {
		t.Errorf("job tag not carried: %v", in.JobTag)
	}
	if aws.ToString(in.NotificationChannel.SNSTopicArn) != "arn:aws:sns:us-east-1:1:topic" {
		t.Errorf("notification channel not carried: %+v", in.NotificationChannel)
	}
}

func TestRegistry_LabelFetcherPaginates(t *testing.T) {
	fc := &fakeClient{
		labelPages: []*rekognition.GetLabelDetectionOutput{
			{
				Labels:        []types.LabelDetection{{Timestamp: 0}, {Timestamp: 500}},
				NextToken:     aws.String("t1"),
				VideoMetadata: &types.VideoMetadata{DurationMillis: aws.Int64(60000)},
			},
			{
				Labels:        []types.LabelDetection{{Timestamp: 1000}},
				VideoMetadata: &types.VideoMetadata{DurationMillis: aws.Int64(60000)},
			},
		},
	}
	r := NewRegistry(fc)
	labels, _ := r.ByAPI("StartLabelDetection")

	rs, err := collect.Drain(context.Background(), "label-job-1", r.Fetcher(labels))
	if err != nil {
		t.Fatalf("Drain returned error: %v", err)
	}
	if len(rs.Items) != 3 {
		t.Errorf("expected 3 labels across pages, got %d", len(rs.Items))
	}
	meta, ok := rs.Metadata.(*types.VideoMetadata)
	if !ok || aws.ToInt64(meta.DurationMillis) != 60000 {
		t.Errorf("video metadata not captured: %v", rs.Metadata)
	}
}

func TestRegistry_FaceFetcherOmitsFirstPageToken(t *testing.T) {
	fc := &fakeClient{}
	r := NewRegistry(fc)
	faces, _ := r.ByAPI("StartFaceDetection")

	if _, err := r.Fetcher(faces)(context.Background(), "face-job-1", ""); err != nil {
		t.Fatalf("fetch returned error: %v", err)
	}
	if fc.faceGet.NextToken != nil {
		t.Error("first page must not send a NextToken")
	}
	if aws.ToInt32(fc.faceGet.MaxResults) != 1000 {
		t.Errorf("expected page size 1000, got %v", fc.faceGet.MaxResults)
	}
}
