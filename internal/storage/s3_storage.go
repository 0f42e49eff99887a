package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	apperrors "go-meal-analyzer/internal/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3GetObjectAPI is the slice of the S3 client the fetcher needs.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3PhotoFetcher reads photos through the AWS SDK using the default
// credential chain.
type S3PhotoFetcher struct {
	client   S3GetObjectAPI
	maxBytes int64
}

// NewS3PhotoFetcher loads the default AWS config for region.
func NewS3PhotoFetcher(ctx context.Context, region string, maxBytes int64) (*S3PhotoFetcher, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return NewS3PhotoFetcherWithClient(s3.NewFromConfig(cfg), maxBytes), nil
}

func NewS3PhotoFetcherWithClient(client S3GetObjectAPI, maxBytes int64) *S3PhotoFetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPhotoBytes
	}
	return &S3PhotoFetcher{client: client, maxBytes: maxBytes}
}

// Handles reports whether u is an S3 object URL.
func (s *S3PhotoFetcher) Handles(u *url.URL) bool {
	_, _, ok := ParseS3URL(u)
	return ok
}

// ParseS3URL extracts bucket and key from virtual-hosted
// (bucket.s3.region.amazonaws.com/key) or path-style
// (s3.region.amazonaws.com/bucket/key) URLs.
func ParseS3URL(u *url.URL) (bucket, key string, ok bool) {
	host := strings.ToLower(u.Hostname())
	if !strings.HasSuffix(host, ".amazonaws.com") {
		return "", "", false
	}
	path := strings.TrimPrefix(u.Path, "/")

	if strings.HasPrefix(host, "s3.") || strings.HasPrefix(host, "s3-") {
		bucket, key, ok = strings.Cut(path, "/")
		if !ok || bucket == "" || key == "" {
			return "", "", false
		}
		return bucket, key, true
	}

	i := strings.Index(host, ".s3.")
	if i < 0 {
		i = strings.Index(host, ".s3-")
	}
	if i <= 0 || path == "" {
		return "", "", false
	}
	return host[:i], path, true
}

func (s *S3PhotoFetcher) Fetch(ctx context.Context, photoURL string) (*Photo, error) {
	parsedURL, err := url.Parse(photoURL)
	if err != nil {
		return nil, apperrors.NewURLNotAllowedError("invalid S3 URL", err)
	}
	bucket, key, ok := ParseS3URL(parsedURL)
	if !ok {
		return nil, apperrors.NewURLNotAllowedError("URL is not an S3 object", nil)
	}
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, apperrors.NewNetworkError("s3 download failed", err)
	}

	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return readPhoto(objectStream{
		Body:        out.Body,
		Size:        size,
		ContentType: aws.ToString(out.ContentType),
	}, "s3", s.maxBytes)
}
