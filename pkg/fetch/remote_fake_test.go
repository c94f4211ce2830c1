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
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// fakeRemote is an in-memory Remote with injectable per-operation
// failures and call counters.
type fakeRemote struct {
	mu      sync.Mutex
	objects map[string]map[string]fakeObject

	headErr error
	getErr  error
	listErr error

	// getErrSticky makes every Get call fail with getErr.
	getErrSticky bool

	// getFailures makes the first N Get calls fail with getErr, then
	// succeed.
	getFailures int

	headCalls int
	getCalls  int
	listCalls int
}

type fakeObject struct {
	data        []byte
	contentType string
}

var _ Remote = (*fakeRemote)(nil)

func newFakeRemote() *fakeRemote {
	return &fakeRemote{objects: make(map[string]map[string]fakeObject)}
}

func (f *fakeRemote) put(bucket, key, contentType string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects[bucket] == nil {
		f.objects[bucket] = make(map[string]fakeObject)
	}
	f.objects[bucket][key] = fakeObject{data: data, contentType: contentType}
}

func (f *fakeRemote) ListBuckets(ctx context.Context, startAfter string) ([]Bucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var names []string
	for name := range f.objects {
		if startAfter == "" || name > startAfter {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	now := time.Now()
	buckets := make([]Bucket, 0, len(names))
	for _, name := range names {
		buckets = append(buckets, Bucket{Name: name, CreatedAt: &now})
	}
	return buckets, nil
}

func (f *fakeRemote) ListObjects(ctx context.Context, bucket, prefix string, maxKeys int) ([]Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	objects, ok := f.objects[bucket]
	if !ok {
		return nil, WrapNotFound(fmt.Errorf("bucket %s", bucket))
	}
	var keys []string
	for key := range objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if maxKeys > 0 && len(keys) > maxKeys {
		keys = keys[:maxKeys]
	}
	out := make([]Object, 0, len(keys))
	for _, key := range keys {
		out = append(out, Object{Key: key, Size: int64(len(objects[key].data))})
	}
	return out, nil
}

func (f *fakeRemote) Head(ctx context.Context, bucket, key string) (*Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headCalls++
	if f.headErr != nil {
		return nil, f.headErr
	}
	obj, err := f.lookup(bucket, key)
	if err != nil {
		return nil, err
	}
	return &Metadata{ContentType: obj.contentType, Size: int64(len(obj.data))}, nil
}

func (f *fakeRemote) Get(ctx context.Context, bucket, key string) (io.ReadCloser, *Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErrSticky {
		return nil, nil, f.getErr
	}
	if f.getFailures > 0 {
		f.getFailures--
		return nil, nil, f.getErr
	}
	obj, err := f.lookup(bucket, key)
	if err != nil {
		return nil, nil, err
	}
	meta := &Metadata{ContentType: obj.contentType, Size: int64(len(obj.data))}
	return io.NopCloser(bytes.NewReader(obj.data)), meta, nil
}

func (f *fakeRemote) lookup(bucket, key string) (fakeObject, error) {
	objects, ok := f.objects[bucket]
	if !ok {
		return fakeObject{}, WrapNotFound(fmt.Errorf("bucket %s", bucket))
	}
	obj, ok := objects[key]
	if !ok {
		return fakeObject{}, WrapNotFound(fmt.Errorf("key %s", key))
	}
	return obj, nil
}
