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

package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FetchResult holds a fully materialized object body with its metadata.
type FetchResult struct {
	Data     []byte
	Metadata Metadata
}

// SavedFile describes one object written to the local filesystem.
type SavedFile struct {
	Key     string `json:"key,omitempty"`
	SavedTo string `json:"saved_to"`
	Metadata
}

// Fetcher retrieves complete object bodies with bounded retry and
// optionally writes them to local paths.
type Fetcher struct {
	remote    Remote
	allowlist *Allowlist
	backoff   RetryPolicy
}

// NewFetcher creates a fetcher over the given remote capability.
func NewFetcher(remote Remote, allowlist *Allowlist) *Fetcher {
	return &Fetcher{
		remote:    remote,
		allowlist: allowlist,
		backoff:   RetryPolicy{},
	}
}

// Fetch retrieves the complete object body. Transient failures are
// retried up to maxRetries attempts; maxRetries < 1 selects the
// default budget.
func (f *Fetcher) Fetch(ctx context.Context, id Identity, maxRetries int) (*FetchResult, error) {
	if err := f.allowlist.Check(id.Bucket); err != nil {
		return nil, err
	}

	policy := f.backoff
	policy.MaxRetries = maxRetries

	result, err := withRetry(ctx, policy, func() (*FetchResult, error) {
		body, meta, err := f.remote.Get(ctx, id.Bucket, id.Key)
		if err != nil {
			return nil, err
		}
		defer func() { _ = body.Close() }()

		data, err := io.ReadAll(body)
		if err != nil {
			// A stream broken mid-read is a network failure.
			return nil, WrapTransient(fmt.Errorf("read body: %w", err))
		}

		m := Metadata{}
		if meta != nil {
			m = *meta
		}
		m.Size = int64(len(data))

		return &FetchResult{Data: data, Metadata: m}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	return result, nil
}

// Save retrieves the object and writes it to outputPath. When
// outputPath is an existing directory or ends with a path separator,
// the filename is derived from the key's last segment. Parent
// directories are created as needed. The write is staged through a
// temporary file and renamed into place, so a failed save never leaves
// a file claiming success; an existing file at the path is overwritten.
func (f *Fetcher) Save(ctx context.Context, id Identity, outputPath string, maxRetries int) (*SavedFile, error) {
	result, err := f.Fetch(ctx, id, maxRetries)
	if err != nil {
		return nil, err
	}

	resolved := resolveOutputPath(outputPath, id.Key)
	if parent := filepath.Dir(resolved); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory %s: %w", parent, err)
		}
	}

	tmp := fmt.Sprintf("%s.tmp-%s", resolved, uuid.NewString())
	if err := os.WriteFile(tmp, result.Data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("write %s: %w", resolved, err)
	}
	if err := os.Rename(tmp, resolved); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("finalize %s: %w", resolved, err)
	}

	return &SavedFile{
		SavedTo:  resolved,
		Metadata: result.Metadata,
	}, nil
}

// resolveOutputPath derives the final file path for a key. A target
// that is an existing directory or ends with a separator receives the
// key's basename.
func resolveOutputPath(outputPath, key string) string {
	trailing := strings.HasSuffix(outputPath, "/") || strings.HasSuffix(outputPath, string(os.PathSeparator))
	if !trailing {
		if info, err := os.Stat(outputPath); err == nil && info.IsDir() {
			trailing = true
		}
	}
	if trailing {
		return filepath.Join(outputPath, path.Base(key))
	}
	return filepath.Clean(outputPath)
}
