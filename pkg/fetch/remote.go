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

// Package fetch implements the batch object retrieval engine: allowlist
// enforcement, metadata probing, single-object fetch/save with bounded
// retry, content classification, and the batch orchestrator that turns a
// key set or prefix into a directory of local files.
package fetch

import (
	"context"
	"io"
	"time"
)

// Identity addresses a single object in the remote store.
type Identity struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// String returns the bucket/key form of the identity.
func (id Identity) String() string {
	return id.Bucket + "/" + id.Key
}

// Bucket describes a bucket returned by the remote store.
type Bucket struct {
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Object describes one entry returned by a listing call.
type Object struct {
	Key          string     `json:"key"`
	Size         int64      `json:"size"`
	LastModified *time.Time `json:"last_modified,omitempty"`
}

// Metadata describes an object without its body. The prober and the
// fetcher produce consistent values for the same identity at the same
// point in time; remote state may change between calls.
type Metadata struct {
	ContentType  string     `json:"content_type"`
	Size         int64      `json:"size_bytes"`
	LastModified *time.Time `json:"last_modified,omitempty"`
}

// Remote is the remote-storage capability the engine consumes. An
// implementation is expected to enforce its own connection-level timeout
// and transport retry; the engine's retry policy is an application-level
// layer above that, not a replacement for it. Implementations return
// errors classified with the package taxonomy (ErrNotFound,
// ErrPermission, ErrTransient) so callers branch on a closed set of
// error kinds instead of matching message strings.
type Remote interface {
	// ListBuckets returns the buckets visible to the caller, ordered by
	// name, optionally starting after the given bucket name.
	ListBuckets(ctx context.Context, startAfter string) ([]Bucket, error)

	// ListObjects returns up to maxKeys objects under prefix in the
	// given bucket. maxKeys <= 0 selects the backend default.
	ListObjects(ctx context.Context, bucket, prefix string, maxKeys int) ([]Object, error)

	// Head returns an object's metadata without transferring its body.
	Head(ctx context.Context, bucket, key string) (*Metadata, error)

	// Get returns an object's body stream together with its metadata.
	// The caller owns the returned ReadCloser.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, *Metadata, error)
}
