// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-s3mcp.
//
// go-s3mcp is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package s3client implements the engine's remote-storage capability
// over the AWS SDK, with typed error classification, adaptive
// transport retry, and optional request rate limiting.
package s3client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"golang.org/x/time/rate"

	"github.com/jeremyhahn/go-s3mcp/pkg/fetch"
)

// api is the subset of the S3 client the package uses; tests inject a
// fake.
type api interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Opts configures the client.
type Opts struct {
	// Region is the remote store region.
	Region string

	// Profile is an optional named credential profile (e.g. for SSO).
	Profile string

	// Endpoint overrides the store endpoint for S3-compatible stores;
	// path-style addressing is enabled when set.
	Endpoint string

	// AccessKey and SecretKey are optional static credentials.
	AccessKey string
	SecretKey string

	// MaxBuckets caps ListBuckets results (default 5).
	MaxBuckets int

	// RequestsPerSecond rate-limits outgoing calls; 0 disables.
	RequestsPerSecond float64

	// ConnectTimeout bounds connection establishment (default 5s).
	ConnectTimeout time.Duration

	// ResponseTimeout bounds the wait for response headers (default 60s).
	ResponseTimeout time.Duration
}

// Client implements fetch.Remote against an S3-compatible store.
type Client struct {
	api        api
	allowlist  *fetch.Allowlist
	maxBuckets int
	limiter    *rate.Limiter
}

// Compile-time check that Client satisfies the engine's capability.
var _ fetch.Remote = (*Client)(nil)

// New builds a client. The transport carries its own adaptive retry
// mode with bounded attempts; the engine's retry policy layers above
// it.
func New(ctx context.Context, opts *Opts, allowlist *fetch.Allowlist) (*Client, error) {
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	responseTimeout := opts.ResponseTimeout
	if responseTimeout <= 0 {
		responseTimeout = 60 * time.Second
	}

	httpClient := awshttp.NewBuildableClient().
		WithDialerOptions(func(d *net.Dialer) {
			d.Timeout = connectTimeout
		}).
		WithTransportOptions(func(t *http.Transport) {
			t.ResponseHeaderTimeout = responseTimeout
		})

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryMode(aws.RetryModeAdaptive),
		awsconfig.WithRetryMaxAttempts(3),
		awsconfig.WithHTTPClient(httpClient),
	}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(opts.Profile))
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	maxBuckets := opts.MaxBuckets
	if maxBuckets <= 0 {
		maxBuckets = 5
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		api:        client,
		allowlist:  allowlist,
		maxBuckets: maxBuckets,
		limiter:    limiter,
	}, nil
}

// wait applies the request rate limit, if configured.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fetch.WrapTransient(err)
	}
	return nil
}

// ListBuckets returns the buckets visible to the caller, filtered by
// the allowlist, ordered by name, optionally starting after the given
// name, capped at MaxBuckets.
func (c *Client) ListBuckets(ctx context.Context, startAfter string) ([]fetch.Bucket, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	out, err := c.api.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, mapError("list buckets", err)
	}

	buckets := make([]fetch.Bucket, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		name := aws.ToString(b.Name)
		if !c.allowlist.Allows(name) {
			continue
		}
		if startAfter != "" && name <= startAfter {
			continue
		}
		buckets = append(buckets, fetch.Bucket{
			Name:      name,
			CreatedAt: b.CreationDate,
		})
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	if len(buckets) > c.maxBuckets {
		buckets = buckets[:c.maxBuckets]
	}
	return buckets, nil
}

// ListObjects returns up to maxKeys objects under prefix.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string, maxKeys int) ([]fetch.Object, error) {
	if err := c.allowlist.Check(bucket); err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	if maxKeys <= 0 || maxKeys > 1000 {
		maxKeys = 1000
	}

	out, err := c.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(int32(maxKeys)),
	})
	if err != nil {
		return nil, mapError("list objects", err)
	}

	objects := make([]fetch.Object, 0, len(out.Contents))
	for _, obj := range out.Contents {
		objects = append(objects, fetch.Object{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: obj.LastModified,
		})
	}
	return objects, nil
}

// Head returns an object's metadata without transferring its body.
func (c *Client) Head(ctx context.Context, bucket, key string) (*fetch.Metadata, error) {
	if err := c.allowlist.Check(bucket); err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	out, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError("head object", err)
	}

	return &fetch.Metadata{
		ContentType:  contentTypeOrDefault(out.ContentType),
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: out.LastModified,
	}, nil
}

// Get returns an object's body stream together with its metadata.
func (c *Client) Get(ctx context.Context, bucket, key string) (io.ReadCloser, *fetch.Metadata, error) {
	if err := c.allowlist.Check(bucket); err != nil {
		return nil, nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, nil, err
	}

	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, nil, mapError("get object", err)
	}

	meta := &fetch.Metadata{
		ContentType:  contentTypeOrDefault(out.ContentType),
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: out.LastModified,
	}
	return out.Body, meta, nil
}

func contentTypeOrDefault(ct *string) string {
	if ct == nil || *ct == "" {
		return "application/octet-stream"
	}
	return *ct
}

// mapError classifies an SDK error into the engine's taxonomy so
// callers branch on error kinds instead of message strings.
func mapError(op string, err error) error {
	wrapped := fmt.Errorf("%s: %w", op, err)

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) {
		return fetch.WrapNotFound(wrapped)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return fetch.WrapNotFound(wrapped)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return fetch.WrapPermission(wrapped)
		case "SlowDown", "Throttling", "ThrottlingException", "TooManyRequestsException",
			"RequestTimeout", "ServiceUnavailable", "InternalError":
			return fetch.WrapTransient(wrapped)
		default:
			// Remaining API errors are request-shaped and will not
			// succeed on retry.
			return wrapped
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fetch.WrapTransient(wrapped)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fetch.WrapTransient(wrapped)
	}

	// Anything else that reached us without an API error code is a
	// transport-level failure.
	return fetch.WrapTransient(wrapped)
}
