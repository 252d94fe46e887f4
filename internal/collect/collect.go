// Package collect drains a multi-page asynchronous result set from a
// capability that exposes job-id based polling, tolerating transient
// throttling with exponential backoff.
package collect

import (
	"context"
	"errors"
	"time"

	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

// maxAttempts bounds the retries for a single page fetch. Past the ceiling
// the drain stops and returns what it has.
const maxAttempts = 8

// baseDelay is the first backoff interval; it doubles per attempt.
// Variable so tests can collapse the schedule.
var baseDelay = 2 * time.Second

// transientCodes are provider error codes that indicate throttling rather
// than a real failure. Anything else aborts the collection.
var transientCodes = map[string]bool{
	"ThrottlingException":                    true,
	"ProvisionedThroughputExceededException": true,
}

// IsTransient reports whether err is a retryable capacity/throttling error.
func IsTransient(err error) bool {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return transientCodes[ae.ErrorCode()]
	}
	return false
}

// Page is one page of a capability's result set. Metadata is expected to be
// identical on every page; the drain keeps the last one seen.
type Page[T any] struct {
	Items     []T
	NextToken string
	Metadata  any
}

// FetchFunc retrieves one page of results for a job. An empty nextToken
// requests the first page.
type FetchFunc[T any] func(ctx context.Context, jobID, nextToken string) (Page[T], error)

// ResultSet is the accumulated output of a drain. Truncated is set when the
// retry ceiling was hit and later pages were abandoned; callers must treat
// such a result as incomplete.
type ResultSet[T any] struct {
	Items     []T
	Metadata  any
	Truncated bool
}

// Drain fetches every page of a job's result set in order. Transient
// throttling on a page is retried with exponential backoff up to the
// ceiling; on exhaustion the pages fetched so far are returned with
// Truncated set and no error. Any other fetch error aborts the drain and is
// returned alongside the partial accumulation.
func Drain[T any](ctx context.Context, jobID string, fetch FetchFunc[T]) (ResultSet[T], error) {
	var rs ResultSet[T]
	nextToken := ""

	for {
		page, err := fetchWithRetry(ctx, jobID, nextToken, fetch)
		if err != nil {
			if IsTransient(err) {
				// Retry ceiling exceeded. Hand back whatever was
				// accumulated; the artifact records the truncation.
				log.Warn().
					Str("jobId", jobID).
					Int("items", len(rs.Items)).
					Msg("Retry ceiling hit, returning partial result set")
				rs.Truncated = true
				return rs, nil
			}
			return rs, err
		}

		rs.Items = append(rs.Items, page.Items...)
		if page.Metadata != nil {
			rs.Metadata = page.Metadata
		}

		if page.NextToken == "" {
			return rs, nil
		}
		nextToken = page.NextToken
	}
}

// fetchWithRetry fetches a single page, retrying transient errors. It
// returns the last transient error if attempts are exhausted, and any
// non-transient error immediately.
func fetchWithRetry[T any](ctx context.Context, jobID, nextToken string, fetch FetchFunc[T]) (Page[T], error) {
	attempt := 0
	op := func() (Page[T], error) {
		page, err := fetch(ctx, jobID, nextToken)
		if err != nil {
			if !IsTransient(err) {
				return page, backoff.Permanent(err)
			}
			attempt++
			log.Warn().
				Str("jobId", jobID).
				Int("attempt", attempt).
				Err(err).
				Msg("Capability throttled, backing off")
		}
		return page, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 10 * time.Minute

	return backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(maxAttempts))
}
