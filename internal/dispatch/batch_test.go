package dispatch

import (
	"context"
	"errors"
	"testing"

	awsevents "github.com/aws/aws-lambda-go/events"

	"github.com/smartmedia/aws-pipeline/internal/mediastore"
	"github.com/smartmedia/aws-pipeline/internal/rekog"
	"github.com/smartmedia/aws-pipeline/internal/transcode"
)

func s3Record(bucket, key, decodedKey string) awsevents.S3EventRecord {
	return awsevents.S3EventRecord{S3: awsevents.S3Entity{
		Bucket: awsevents.S3Bucket{Name: bucket},
		Object: awsevents.S3Object{Key: key, URLDecodedKey: decodedKey},
	}}
}

func snsRecord(id, message string) awsevents.SNSEventRecord {
	return awsevents.SNSEventRecord{SNS: awsevents.SNSEntity{
		MessageID: id,
		Message:   message,
	}}
}

func TestHandleUploadRecords_IsolatesFailures(t *testing.T) {
	media := &fakeMedia{
		meta:    mediastore.ObjectMetadata{SiteID: "site-1", Presets: "p1"},
		metaErr: errors.New("head failed"),
		failKey: "bad123",
	}
	transcoder := &fakeTranscoder{
		renditions: []transcode.Rendition{{PresetID: "p1", Container: "mp4"}},
		jobID:      "et-job-1",
	}
	status := &fakeStatus{}
	d := New(Config{InputBucket: "input", OutputBucket: "output"},
		media, transcoder, nil, nil, nil, nil, status)

	err := d.HandleUploadRecords(context.Background(), []awsevents.S3EventRecord{
		s3Record("input", "bad123", "bad123"),
		s3Record("input", "abc%3A123", "abc:123"),
	})
	if err != nil {
		t.Fatalf("batch with one bad record must not fail: %v", err)
	}

	if len(transcoder.submitted) != 1 {
		t.Fatalf("expected the remaining record to be processed, got %d submissions", len(transcoder.submitted))
	}
	if got := transcoder.submitted[0].InputKey; got != "abc:123" {
		t.Errorf("submission must use the decoded object key, got %q", got)
	}
}

func TestHandleTranscodeRecords_IsolatesFailures(t *testing.T) {
	media := &fakeMedia{
		meta:    mediastore.ObjectMetadata{SiteID: "site-1", Processes: "00000000"},
		metaErr: errors.New("head failed"),
		failKey: "bad123",
	}
	status := &fakeStatus{}
	d := New(Config{InputBucket: "input", OutputBucket: "output"},
		media, nil, rekog.NewRegistry(newFakeRekognition()), &fakeTranscribe{}, nil, nil, status)

	badCompletion := `{"state":"COMPLETED","jobId":"et-1","input":{"key":"bad123"},"outputKeyPrefix":"bad123/conversions/","outputs":[]}`
	goodCompletion := `{"state":"COMPLETED","jobId":"et-2","input":{"key":"good456"},"outputKeyPrefix":"good456/conversions/","outputs":[]}`

	err := d.HandleTranscodeRecords(context.Background(), []awsevents.SNSEventRecord{
		snsRecord("m1", "not json"),
		snsRecord("m2", badCompletion),
		snsRecord("m3", goodCompletion),
	})
	if err != nil {
		t.Fatalf("batch with bad records must not fail: %v", err)
	}

	if len(status.events) != 1 {
		t.Fatalf("expected only the good record's status event, got %d", len(status.events))
	}
	if ev := status.events[0]; ev.objectKey != "good456" || ev.status != "COMPLETED" {
		t.Errorf("unexpected status event %+v", ev)
	}
}

func TestHandleRecognitionRecords_IsolatesFailures(t *testing.T) {
	artifacts := newFakeArtifacts()
	status := &fakeStatus{}
	d := New(Config{OutputBucket: "output"}, nil, nil,
		rekog.NewRegistry(newFakeRekognition()), nil, nil, artifacts, status)

	unknown := `{"JobId":"j1","API":"StartCelebrityRecognition","Status":"SUCCEEDED","Video":{"S3Bucket":"output","S3ObjectName":"bad123/conversions/video.mp4"}}`
	good := `{"JobId":"face-job","API":"StartFaceDetection","Status":"SUCCEEDED","JobTag":"good456","Video":{"S3Bucket":"output","S3ObjectName":"good456/conversions/video.mp4"}}`

	err := d.HandleRecognitionRecords(context.Background(), []awsevents.SNSEventRecord{
		snsRecord("m1", unknown),
		snsRecord("m2", "not json"),
		snsRecord("m3", good),
	})
	if err != nil {
		t.Fatalf("batch with bad records must not fail: %v", err)
	}

	if _, ok := artifacts.jsonPuts["good456/metadata/Faces.json"]; !ok {
		t.Fatalf("expected the remaining record's artifact, got %v", artifacts.jsonPuts)
	}
	if len(status.events) != 1 || status.events[0].objectKey != "good456" {
		t.Errorf("unexpected status events %+v", status.events)
	}
}
