// Package mediastore reads source-object metadata and moves renditions
// between derived locations. The uploaded object is the single source of
// truth for per-object configuration: its metadata carries the site id, the
// service flag string, and the preset descriptor.
package mediastore

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Metadata keys attached to uploaded objects by the producing system.
const (
	metaSiteID    = "siteid"
	metaProcesses = "processes"
	metaPresets   = "presets"
)

// API is the S3 surface the store needs. *s3.Client satisfies it.
type API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, opts ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// ObjectMetadata is the per-object configuration read from the source
// object at upload time and referenced by every later stage.
type ObjectMetadata struct {
	SiteID    string
	Processes string
	Presets   string
}

// Store reads metadata from the input bucket and copies renditions in the
// output bucket.
type Store struct {
	client      API
	inputBucket string
}

// NewStore returns a Store for the given input bucket.
func NewStore(client API, inputBucket string) *Store {
	return &Store{client: client, inputBucket: inputBucket}
}

// Metadata heads the source object and returns its pipeline metadata.
func (s *Store) Metadata(ctx context.Context, objectKey string) (ObjectMetadata, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.inputBucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return ObjectMetadata{}, fmt.Errorf("head %s: %w", objectKey, err)
	}
	return ObjectMetadata{
		SiteID:    out.Metadata[metaSiteID],
		Processes: out.Metadata[metaProcesses],
		Presets:   out.Metadata[metaPresets],
	}, nil
}

// SiteID resolves just the site identifier; this satisfies the status
// publisher's resolver interface.
func (s *Store) SiteID(ctx context.Context, objectKey string) (string, error) {
	meta, err := s.Metadata(ctx, objectKey)
	if err != nil {
		return "", err
	}
	return meta.SiteID, nil
}

// Copy duplicates an object within or across buckets. Destination writes
// overwrite, keeping redelivered events idempotent.
func (s *Store) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(url.PathEscape(srcBucket + "/" + srcKey)),
	})
	if err != nil {
		return fmt.Errorf("copy %s/%s to %s/%s: %w", srcBucket, srcKey, dstBucket, dstKey, err)
	}
	return nil
}
