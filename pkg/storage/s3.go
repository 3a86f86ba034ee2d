// Package storage checks that the S3 data a load reads from is present.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"go.uber.org/zap"

	"github.com/ekaya-inc/songplay-warehouse/pkg/apperrors"
	"github.com/ekaya-inc/songplay-warehouse/pkg/warehouse"
)

// Location is a parsed s3://bucket/key URI.
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	if l.Key == "" {
		return "s3://" + l.Bucket
	}
	return "s3://" + l.Bucket + "/" + l.Key
}

// ParseLocation splits an s3:// URI into bucket and key.
func ParseLocation(uri string) (Location, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return Location{}, fmt.Errorf("%w: %q is not an s3:// URI", apperrors.ErrInvalidConfig, uri)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("%w: %q has no bucket", apperrors.ErrInvalidConfig, uri)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

// Checker verifies that COPY sources exist. It only lists and heads
// objects; the warehouse reads the data itself.
type Checker struct {
	client s3iface.S3API
	logger *zap.Logger
}

// NewChecker creates a checker backed by client.
func NewChecker(client s3iface.S3API, logger *zap.Logger) *Checker {
	return &Checker{
		client: client,
		logger: logger.Named("storage"),
	}
}

// NewS3Client creates an S3 client for region using the default credential
// chain.
func NewS3Client(region string) (*s3.S3, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return s3.New(sess), nil
}

// CheckSources checks every source and reports all that are missing.
// A source's location must have at least one object under it, and a
// jsonpaths file other than "auto" must exist.
func (c *Checker) CheckSources(ctx context.Context, sources []warehouse.CopySource) error {
	var errs []error
	for _, src := range sources {
		if err := c.checkPrefix(ctx, src.Location); err != nil {
			errs = append(errs, fmt.Errorf("%s (%s): %w", src.Table, src.LocationKey, err))
		}
		if src.JSONPaths != warehouse.JSONAuto {
			if err := c.checkObject(ctx, src.JSONPaths); err != nil {
				errs = append(errs, fmt.Errorf("%s (%s): %w", src.Table, src.JSONPathsKey, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Checker) checkPrefix(ctx context.Context, uri string) error {
	loc, err := ParseLocation(uri)
	if err != nil {
		return err
	}

	out, err := c.client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(loc.Bucket),
		Prefix:  aws.String(loc.Key),
		MaxKeys: aws.Int64(1),
	})
	if err != nil {
		return classify(loc, err)
	}
	if aws.Int64Value(out.KeyCount) == 0 && len(out.Contents) == 0 {
		return fmt.Errorf("%w: no objects under %s", apperrors.ErrSourceNotFound, loc)
	}

	c.logger.Info("Source present", zap.String("location", loc.String()))
	return nil
}

func (c *Checker) checkObject(ctx context.Context, uri string) error {
	loc, err := ParseLocation(uri)
	if err != nil {
		return err
	}

	out, err := c.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return classify(loc, err)
	}

	c.logger.Info("Source present",
		zap.String("location", loc.String()),
		zap.Int64("bytes", aws.Int64Value(out.ContentLength)))
	return nil
}

// classify maps missing buckets and keys to ErrSourceNotFound. Other
// failures, such as access denied, are returned as they are.
func classify(loc Location, err error) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchBucket, s3.ErrCodeNoSuchKey, "NotFound":
			return fmt.Errorf("%w: %s", apperrors.ErrSourceNotFound, loc)
		}
	}
	return fmt.Errorf("failed to check %s: %w", loc, err)
}
