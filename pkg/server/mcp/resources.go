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

package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/jeremyhahn/go-s3mcp/pkg/fetch"
)

// Resource represents an MCP resource
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

// ResourceManager exposes objects in the allowed buckets as MCP
// resources.
type ResourceManager struct {
	remote    fetch.Remote
	allowlist *fetch.Allowlist
	maxKeys   int
	workers   int
}

// NewResourceManager creates a new resource manager
func NewResourceManager(remote fetch.Remote, allowlist *fetch.Allowlist, maxKeys, workers int) *ResourceManager {
	if maxKeys <= 0 {
		maxKeys = fetch.DefaultListMaxKeys
	}
	if workers <= 0 {
		workers = fetch.DefaultWorkers
	}
	return &ResourceManager{
		remote:    remote,
		allowlist: allowlist,
		maxKeys:   maxKeys,
		workers:   workers,
	}
}

// ListResources lists objects across the allowed buckets. The cursor
// is a bucket name; listing resumes with the first bucket sorting
// after it.
func (m *ResourceManager) ListResources(ctx context.Context, cursor string) ([]Resource, error) {
	buckets, err := m.remote.ListBuckets(ctx, cursor)
	if err != nil {
		return nil, err
	}

	perBucket := make([][]Resource, len(buckets))
	errs := make([]error, len(buckets))

	// Buckets are listed concurrently; results keep bucket order.
	sem := make(chan struct{}, m.workers)
	var wg sync.WaitGroup
	for i, bucket := range buckets {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			objects, err := m.remote.ListObjects(ctx, name, "", m.maxKeys)
			if err != nil {
				errs[i] = fmt.Errorf("list bucket %s: %w", name, err)
				return
			}

			resources := make([]Resource, 0, len(objects))
			for _, obj := range objects {
				r := Resource{
					URI:  fmt.Sprintf("s3://%s/%s", name, obj.Key),
					Name: baseName(obj.Key),
				}
				if obj.LastModified != nil {
					r.Description = fmt.Sprintf("Size: %d bytes, Last Modified: %s",
						obj.Size, obj.LastModified.Format("2006-01-02 15:04:05"))
				} else {
					r.Description = fmt.Sprintf("Size: %d bytes", obj.Size)
				}
				resources = append(resources, r)
			}
			perBucket[i] = resources
		}(i, bucket.Name)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var all []Resource
	for _, resources := range perBucket {
		all = append(all, resources...)
	}
	return all, nil
}

// ReadResource reads a resource's content. Text objects return a text
// contents item; everything else returns a base64 blob.
func (m *ResourceManager) ReadResource(ctx context.Context, uri string) (any, error) {
	bucket, key, err := parseResourceURI(uri)
	if err != nil {
		return nil, err
	}

	fetcher := fetch.NewFetcher(m.remote, m.allowlist)
	result, err := fetcher.Fetch(ctx, fetch.Identity{Bucket: bucket, Key: key}, 0)
	if err != nil {
		return nil, err
	}

	if fetch.IsText(key, result.Metadata.ContentType) {
		return TextResourceContents{
			URI:      uri,
			MIMEType: result.Metadata.ContentType,
			Text:     string(result.Data),
		}, nil
	}

	return BlobResourceContents{
		URI:      uri,
		MIMEType: result.Metadata.ContentType,
		Blob:     base64.StdEncoding.EncodeToString(result.Data),
	}, nil
}

// parseResourceURI splits an s3://bucket/key URI.
func parseResourceURI(uri string) (string, string, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidResourceURI, uri)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidResourceURI, uri)
	}
	return bucket, key, nil
}

// baseName extracts a display name from an object key.
func baseName(key string) string {
	parts := strings.Split(key, "/")
	return parts[len(parts)-1]
}

// SubscribeToResource subscribes to resource changes (not implemented)
func (m *ResourceManager) SubscribeToResource(ctx context.Context, uri string) error {
	return ErrResourceSubscriptionsNotImplemented
}

// UnsubscribeFromResource unsubscribes from resource changes (not implemented)
func (m *ResourceManager) UnsubscribeFromResource(ctx context.Context, uri string) error {
	return ErrResourceSubscriptionsNotImplemented
}
