// Package artifact writes each capability's collected result as a JSON
// object at a deterministic path derived from the source object's key.
// Writes overwrite, so redelivered completion events are safe to repeat.
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Putter is the S3 write surface the store needs. *s3.Client satisfies it.
type Putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// MetadataPath derives the artifact key for a named result:
// <objectKey>/metadata/<name>.json.
func MetadataPath(objectKey, name string) string {
	return path.Join(objectKey, "metadata", name+".json")
}

// Store persists analysis artifacts to one bucket.
type Store struct {
	client Putter
	bucket string
}

// NewStore returns a Store writing to bucket.
func NewStore(client Putter, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// PutJSON marshals payload and writes it at key, overwriting any previous
// artifact there.
func (s *Store) PutJSON(ctx context.Context, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal artifact %s: %w", key, err)
	}
	return s.PutRaw(ctx, key, bytes.NewReader(body))
}

// PutRaw streams pre-encoded JSON to key. Used for payloads fetched from a
// capability verbatim, like transcript documents.
func (s *Store) PutRaw(ctx context.Context, key string, body io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put artifact %s: %w", key, err)
	}
	log.Debug().Str("bucket", s.bucket).Str("key", key).Msg("Artifact written")
	return nil
}
