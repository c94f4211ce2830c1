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
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jeremyhahn/go-s3mcp/pkg/adapters"
)

const (
	// DefaultWorkers bounds simultaneous in-flight fetches so a batch
	// does not trip remote throttling.
	DefaultWorkers = 4

	// DefaultListMaxKeys is the listing page cap used for prefix
	// expansion.
	DefaultListMaxKeys = 1000
)

// BatchRequest describes a batch retrieval. Exactly one of Keys
// (non-empty) or Prefix must be resolvable to a non-empty key set.
type BatchRequest struct {
	// Bucket is the bucket all keys are fetched from.
	Bucket string

	// OutputDir is the local directory results are written under. It
	// is created if absent.
	OutputDir string

	// Keys is the explicit ordered key set. Empty means expand Prefix.
	Keys []string

	// Prefix, when non-nil, is expanded to the set of matching keys by
	// a listing call. A pointer distinguishes "list everything" (empty
	// string) from "not provided".
	Prefix *string

	// MaxBytes, when positive, rejects any object whose probed size
	// exceeds it before transferring the body.
	MaxBytes int64

	// MaxRetries is the per-key attempt budget; < 1 selects the
	// default.
	MaxRetries int
}

// BatchError attributes a failure to a single key.
type BatchError struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// BatchResult aggregates a batch's outcome. Every resolved key appears
// in exactly one of Files or Errors; FilesSaved == len(Files). Entry
// order follows completion order under the worker pool.
type BatchResult struct {
	FilesSaved int          `json:"files_saved"`
	Files      []SavedFile  `json:"files"`
	Errors     []BatchError `json:"errors"`
}

// OrchestratorOptions tunes the batch orchestrator.
type OrchestratorOptions struct {
	// Workers bounds concurrent per-key fetches (default
	// DefaultWorkers).
	Workers int

	// ListMaxKeys caps prefix expansion (default DefaultListMaxKeys).
	ListMaxKeys int

	// Logger receives per-key progress (default no-op).
	Logger adapters.Logger
}

// Orchestrator resolves a key set, computes a shared output layout, and
// drives per-key fetches with per-key error isolation.
type Orchestrator struct {
	remote      Remote
	allowlist   *Allowlist
	prober      *Prober
	fetcher     *Fetcher
	workers     int
	listMaxKeys int
	logger      adapters.Logger
}

// NewOrchestrator creates a batch orchestrator. opts may be nil.
func NewOrchestrator(remote Remote, allowlist *Allowlist, opts *OrchestratorOptions) *Orchestrator {
	o := &Orchestrator{
		remote:      remote,
		allowlist:   allowlist,
		prober:      NewProber(remote, allowlist),
		fetcher:     NewFetcher(remote, allowlist),
		workers:     DefaultWorkers,
		listMaxKeys: DefaultListMaxKeys,
		logger:      adapters.NewNoOpLogger(),
	}
	if opts != nil {
		if opts.Workers > 0 {
			o.workers = opts.Workers
		}
		if opts.ListMaxKeys > 0 {
			o.listMaxKeys = opts.ListMaxKeys
		}
		if opts.Logger != nil {
			o.logger = opts.Logger
		}
	}
	return o
}

// RetrieveBatch downloads the requested objects into req.OutputDir. A
// validation failure rejects the whole request before any network
// activity; every other failure is recorded against its key and never
// aborts processing of the remaining keys.
func (o *Orchestrator) RetrieveBatch(ctx context.Context, req *BatchRequest) (*BatchResult, error) {
	if len(req.Keys) == 0 && req.Prefix == nil {
		return nil, fmt.Errorf("%w: either 'keys' or 'prefix' must be provided", ErrValidation)
	}

	keys := req.Keys
	if len(keys) == 0 {
		if err := o.allowlist.Check(req.Bucket); err != nil {
			return nil, err
		}
		objects, err := o.remote.ListObjects(ctx, req.Bucket, *req.Prefix, o.listMaxKeys)
		if err != nil {
			return nil, fmt.Errorf("expand prefix %q: %w", *req.Prefix, err)
		}
		keys = make([]string, 0, len(objects))
		for _, obj := range objects {
			keys = append(keys, obj.Key)
		}
		if len(keys) == 0 {
			return nil, fmt.Errorf("%w: prefix %q matched no objects", ErrValidation, *req.Prefix)
		}
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", req.OutputDir, err)
	}

	shared := sharedKeyPrefix(keys)
	o.logger.Debug(ctx, "Batch resolved",
		adapters.Field{Key: "bucket", Value: req.Bucket},
		adapters.Field{Key: "keys", Value: len(keys)},
		adapters.Field{Key: "shared_prefix", Value: shared})

	result := &BatchResult{
		Files:  make([]SavedFile, 0, len(keys)),
		Errors: make([]BatchError, 0),
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		work = make(chan string)
	)

	record := func(saved *SavedFile, key string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.Errors = append(result.Errors, BatchError{Key: key, Error: err.Error()})
			return
		}
		saved.Key = key
		result.Files = append(result.Files, *saved)
	}

	workers := o.workers
	if workers > len(keys) {
		workers = len(keys)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range work {
				saved, err := o.processKey(ctx, req, key, shared)
				record(saved, key, err)
			}
		}()
	}

	for _, key := range keys {
		work <- key
	}
	close(work)
	wg.Wait()

	result.FilesSaved = len(result.Files)
	o.logger.Info(ctx, "Batch complete",
		adapters.Field{Key: "bucket", Value: req.Bucket},
		adapters.Field{Key: "files_saved", Value: result.FilesSaved},
		adapters.Field{Key: "errors", Value: len(result.Errors)})
	return result, nil
}

// processKey determines a single key's outcome: size gating, then
// fetch-and-save to its path relative to the shared prefix.
func (o *Orchestrator) processKey(ctx context.Context, req *BatchRequest, key, shared string) (*SavedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, WrapTransient(err)
	}

	id := Identity{Bucket: req.Bucket, Key: key}

	if req.MaxBytes > 0 {
		meta, err := o.prober.Probe(ctx, id)
		if err != nil {
			return nil, err
		}
		if meta.Size > req.MaxBytes {
			return nil, fmt.Errorf("%w: object size (%d bytes) exceeds max_bytes limit (%d)",
				ErrSizeLimit, meta.Size, req.MaxBytes)
		}
	}

	relative := path.Base(key)
	if shared != "" {
		relative = strings.TrimPrefix(key, shared)
	}
	outputPath := filepath.Join(req.OutputDir, filepath.FromSlash(relative))

	return o.fetcher.Save(ctx, id, outputPath, req.MaxRetries)
}

// sharedKeyPrefix returns the longest leading substring common to all
// keys, trimmed back to the last '/' boundary so a partial path segment
// is never treated as shared. Keys with no common directory boundary
// yield "".
func sharedKeyPrefix(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	prefix := keys[0]
	for _, key := range keys[1:] {
		for !strings.HasPrefix(key, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		return prefix[:i+1]
	}
	return ""
}
