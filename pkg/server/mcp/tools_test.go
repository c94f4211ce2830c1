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
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-s3mcp/pkg/adapters"
	"github.com/jeremyhahn/go-s3mcp/pkg/fetch"
)

// fakeRemote is an in-memory object store for tests.
type fakeRemote struct {
	buckets map[string]map[string]fakeObject
}

type fakeObject struct {
	data        []byte
	contentType string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{buckets: make(map[string]map[string]fakeObject)}
}

func (f *fakeRemote) put(bucket, key, contentType string, data []byte) {
	if f.buckets[bucket] == nil {
		f.buckets[bucket] = make(map[string]fakeObject)
	}
	f.buckets[bucket][key] = fakeObject{data: data, contentType: contentType}
}

func (f *fakeRemote) ListBuckets(ctx context.Context, startAfter string) ([]fetch.Bucket, error) {
	var names []string
	for name := range f.buckets {
		if startAfter == "" || name > startAfter {
			names = append(names, name)
		}
	}
	// Deterministic order for assertions.
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if names[j] < names[i] {
				names[i], names[j] = names[j], names[i]
			}
		}
	}
	now := time.Now()
	buckets := make([]fetch.Bucket, 0, len(names))
	for _, name := range names {
		buckets = append(buckets, fetch.Bucket{Name: name, CreatedAt: &now})
	}
	return buckets, nil
}

func (f *fakeRemote) ListObjects(ctx context.Context, bucket, prefix string, maxKeys int) ([]fetch.Object, error) {
	objects, ok := f.buckets[bucket]
	if !ok {
		return nil, fetch.WrapNotFound(fmt.Errorf("bucket %s", bucket))
	}
	var keys []string
	for key := range objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	if maxKeys > 0 && len(keys) > maxKeys {
		keys = keys[:maxKeys]
	}
	out := make([]fetch.Object, 0, len(keys))
	for _, key := range keys {
		out = append(out, fetch.Object{Key: key, Size: int64(len(objects[key].data))})
	}
	return out, nil
}

func (f *fakeRemote) Head(ctx context.Context, bucket, key string) (*fetch.Metadata, error) {
	obj, err := f.lookup(bucket, key)
	if err != nil {
		return nil, err
	}
	return &fetch.Metadata{ContentType: obj.contentType, Size: int64(len(obj.data))}, nil
}

func (f *fakeRemote) Get(ctx context.Context, bucket, key string) (io.ReadCloser, *fetch.Metadata, error) {
	obj, err := f.lookup(bucket, key)
	if err != nil {
		return nil, nil, err
	}
	meta := &fetch.Metadata{ContentType: obj.contentType, Size: int64(len(obj.data))}
	return io.NopCloser(bytes.NewReader(obj.data)), meta, nil
}

func (f *fakeRemote) lookup(bucket, key string) (fakeObject, error) {
	objects, ok := f.buckets[bucket]
	if !ok {
		return fakeObject{}, fetch.WrapNotFound(fmt.Errorf("bucket %s", bucket))
	}
	obj, ok := objects[key]
	if !ok {
		return fakeObject{}, fetch.WrapNotFound(fmt.Errorf("key %s", key))
	}
	return obj, nil
}

// fakeExtractor returns a fixed string for any document.
type fakeExtractor struct {
	text string
}

func (f *fakeExtractor) ExtractText(data []byte) (string, error) {
	return f.text, nil
}

func newTestExecutor(remote fetch.Remote, buckets ...string) *ToolExecutor {
	return NewToolExecutor(remote, fetch.NewAllowlist(buckets), &fakeExtractor{text: "extracted"},
		2, 100, adapters.NewNoOpLogger())
}

func textOf(t *testing.T, content []any) string {
	t.Helper()
	require.Len(t, content, 1)
	tc, ok := content[0].(TextContent)
	require.True(t, ok, "expected text content, got %T", content[0])
	return tc.Text
}

func TestExecuteUnknownTool(t *testing.T) {
	e := newTestExecutor(newFakeRemote())

	_, err := e.Execute(context.Background(), "DeleteEverything", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestExecuteListBuckets(t *testing.T) {
	remote := newFakeRemote()
	remote.put("alpha", "a.txt", "text/plain", []byte("a"))
	remote.put("beta", "b.txt", "text/plain", []byte("b"))
	e := newTestExecutor(remote, "alpha", "beta")

	content, err := e.Execute(context.Background(), "ListBuckets", map[string]any{})
	require.NoError(t, err)

	var result struct {
		Count   int `json:"count"`
		Buckets []struct {
			Name string `json:"name"`
		} `json:"buckets"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, content)), &result))
	assert.Equal(t, 2, result.Count)
}

func TestExecuteListObjectsRequiresBucket(t *testing.T) {
	e := newTestExecutor(newFakeRemote())

	_, err := e.Execute(context.Background(), "ListObjectsV2", map[string]any{})
	assert.ErrorIs(t, err, ErrMissingParameter)
}

func TestExecuteListObjects(t *testing.T) {
	remote := newFakeRemote()
	remote.put("data", "reports/q1.csv", "text/csv", []byte("a,b"))
	remote.put("data", "reports/q2.csv", "text/csv", []byte("c,d"))
	remote.put("data", "other/x.bin", "application/octet-stream", []byte{1})
	e := newTestExecutor(remote, "data")

	content, err := e.Execute(context.Background(), "ListObjectsV2", map[string]any{
		"bucket_name": "data",
		"prefix":      "reports/",
	})
	require.NoError(t, err)

	text := textOf(t, content)
	assert.Contains(t, text, "reports/q1.csv")
	assert.Contains(t, text, "reports/q2.csv")
	assert.NotContains(t, text, "other/x.bin")
}

func TestExecuteHeadObject(t *testing.T) {
	remote := newFakeRemote()
	remote.put("data", "file.json", "application/json", []byte(`{"a":1}`))
	e := newTestExecutor(remote, "data")

	content, err := e.Execute(context.Background(), "HeadObject", map[string]any{
		"bucket_name": "data",
		"key":         "file.json",
	})
	require.NoError(t, err)

	var result struct {
		ContentType string `json:"content_type"`
		SizeBytes   int64  `json:"size_bytes"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, content)), &result))
	assert.Equal(t, "application/json", result.ContentType)
	assert.Equal(t, int64(7), result.SizeBytes)
}

func TestExecuteGetObjectText(t *testing.T) {
	remote := newFakeRemote()
	remote.put("data", "notes.md", "text/markdown", []byte("# hello"))
	e := newTestExecutor(remote, "data")

	content, err := e.Execute(context.Background(), "GetObject", map[string]any{
		"bucket_name": "data",
		"key":         "notes.md",
	})
	require.NoError(t, err)
	assert.Equal(t, "# hello", textOf(t, content))
}

func TestExecuteGetObjectBinary(t *testing.T) {
	raw := []byte{0x50, 0x4b, 0x03, 0x04}
	remote := newFakeRemote()
	remote.put("data", "archive.zip", "application/zip", raw)
	e := newTestExecutor(remote, "data")

	content, err := e.Execute(context.Background(), "GetObject", map[string]any{
		"bucket_name": "data",
		"key":         "archive.zip",
	})
	require.NoError(t, err)

	require.Len(t, content, 1)
	er, ok := content[0].(EmbeddedResource)
	require.True(t, ok, "expected embedded resource, got %T", content[0])
	blob, ok := er.Resource.(BlobResourceContents)
	require.True(t, ok)
	assert.Equal(t, "s3://data/archive.zip", blob.URI)
	assert.Equal(t, "application/zip", blob.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), blob.Blob)
}

func TestExecuteGetObjectExtractText(t *testing.T) {
	remote := newFakeRemote()
	remote.put("data", "report.pdf", "application/pdf", []byte("%PDF-1.4"))
	e := newTestExecutor(remote, "data")

	content, err := e.Execute(context.Background(), "GetObject", map[string]any{
		"bucket_name":  "data",
		"key":          "report.pdf",
		"extract_text": true,
	})
	require.NoError(t, err)
	assert.Equal(t, "extracted", textOf(t, content))
}

func TestExecuteGetObjectExtractWithoutExtractor(t *testing.T) {
	remote := newFakeRemote()
	remote.put("data", "report.pdf", "application/pdf", []byte("%PDF-1.4"))
	e := NewToolExecutor(remote, fetch.NewAllowlist([]string{"data"}), nil,
		2, 100, adapters.NewNoOpLogger())

	_, err := e.Execute(context.Background(), "GetObject", map[string]any{
		"bucket_name":  "data",
		"key":          "report.pdf",
		"extract_text": true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, fetch.ErrMissingCapability)
}

func TestExecuteGetObjectForbiddenBucket(t *testing.T) {
	remote := newFakeRemote()
	remote.put("secret", "creds.txt", "text/plain", []byte("x"))
	e := newTestExecutor(remote, "public")

	_, err := e.Execute(context.Background(), "GetObject", map[string]any{
		"bucket_name": "secret",
		"key":         "creds.txt",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, fetch.ErrPermission)
}

func TestExecuteDownloadObject(t *testing.T) {
	remote := newFakeRemote()
	remote.put("data", "reports/summary.txt", "text/plain", []byte("done"))
	e := newTestExecutor(remote, "data")

	dir := t.TempDir()
	content, err := e.Execute(context.Background(), "DownloadObject", map[string]any{
		"bucket_name": "data",
		"key":         "reports/summary.txt",
		"output_path": dir + string(os.PathSeparator),
	})
	require.NoError(t, err)

	var saved fetch.SavedFile
	require.NoError(t, json.Unmarshal([]byte(textOf(t, content)), &saved))
	assert.Equal(t, filepath.Join(dir, "summary.txt"), saved.SavedTo)

	data, err := os.ReadFile(saved.SavedTo)
	require.NoError(t, err)
	assert.Equal(t, "done", string(data))
}

func TestExecuteGetObjectsBatch(t *testing.T) {
	remote := newFakeRemote()
	remote.put("data", "logs/app/1.log", "text/plain", []byte("one"))
	remote.put("data", "logs/app/2.log", "text/plain", []byte("two"))
	e := newTestExecutor(remote, "data")

	dir := t.TempDir()
	content, err := e.Execute(context.Background(), "GetObjectsBatch", map[string]any{
		"bucket_name": "data",
		"output_dir":  dir,
		"keys":        []any{"logs/app/1.log", "logs/app/2.log"},
	})
	require.NoError(t, err)

	var result fetch.BatchResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, content)), &result))
	assert.Equal(t, 2, result.FilesSaved)
	assert.Empty(t, result.Errors)
}

func TestExecuteGetObjectsBatchByPrefix(t *testing.T) {
	remote := newFakeRemote()
	remote.put("data", "exports/a.csv", "text/csv", []byte("a"))
	remote.put("data", "exports/b.csv", "text/csv", []byte("b"))
	remote.put("data", "other.txt", "text/plain", []byte("x"))
	e := newTestExecutor(remote, "data")

	dir := t.TempDir()
	content, err := e.Execute(context.Background(), "GetObjectsBatch", map[string]any{
		"bucket_name": "data",
		"output_dir":  dir,
		"prefix":      "exports/",
	})
	require.NoError(t, err)

	var result fetch.BatchResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, content)), &result))
	assert.Equal(t, 2, result.FilesSaved)
}

func TestExecuteGetObjectsBatchRequiresKeysOrPrefix(t *testing.T) {
	e := newTestExecutor(newFakeRemote(), "data")

	_, err := e.Execute(context.Background(), "GetObjectsBatch", map[string]any{
		"bucket_name": "data",
		"output_dir":  t.TempDir(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, fetch.ErrValidation)
}

func TestIntArg(t *testing.T) {
	args := map[string]any{
		"float":  float64(7),
		"int":    3,
		"string": "12",
		"bad":    "not-a-number",
	}

	v, ok := intArg(args, "float")
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	v, ok = intArg(args, "int")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = intArg(args, "string")
	assert.True(t, ok)
	assert.Equal(t, 12, v)

	_, ok = intArg(args, "bad")
	assert.False(t, ok)

	_, ok = intArg(args, "missing")
	assert.False(t, ok)
}
