// Package codesource locates per-site code snapshots in S3 so remediation
// messages can point the fixer at real source.
package codesource

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/a11ykit/remedia/internal/dispatch"
	"github.com/a11ykit/remedia/pkg/logger"
)

// S3API is the slice of the S3 client the locator uses.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Locator resolves code snapshots stored under <siteID>/<domain>/latest.tar.gz
// in a fixed bucket. A missing snapshot is a nil result, not an error.
type Locator struct {
	s3     S3API
	bucket string
	log    logger.Logger
}

// NewLocator creates a locator over the given bucket.
func NewLocator(api S3API, bucket string, log logger.Logger) *Locator {
	return &Locator{s3: api, bucket: bucket, log: log}
}

// snapshotKey is the object key layout snapshots are uploaded under.
func snapshotKey(siteID, domain string) string {
	return fmt.Sprintf("%s/%s/latest.tar.gz", siteID, domain)
}

// GetCodeInfo checks whether a snapshot exists for the site and domain and
// returns its location. Absent snapshots resolve to nil.
func (l *Locator) GetCodeInfo(ctx context.Context, siteID, domain string) (*dispatch.CodeInfo, error) {
	if l.bucket == "" {
		return nil, nil
	}

	key := snapshotKey(siteID, domain)
	_, err := l.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			l.log.Debug("No code snapshot for site", "site", siteID, "domain", domain, "key", key)
			return nil, nil
		}
		return nil, fmt.Errorf("checking code snapshot %s: %w", key, err)
	}

	return &dispatch.CodeInfo{Bucket: l.bucket, Path: key}, nil
}

// isNotFound reports whether err is S3's missing-object answer. HeadObject
// surfaces 404 as a generic NotFound API error rather than types.NoSuchKey.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	code := apiErr.ErrorCode()
	return code == "NotFound" || code == "NoSuchKey"
}
