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
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-s3mcp/pkg/fetch"
)

func newTestServer(t *testing.T, remote fetch.Remote, buckets ...string) *Server {
	t.Helper()
	server, err := NewServer(&ServerConfig{
		Mode:      ModeStdio,
		Remote:    remote,
		Allowlist: fetch.NewAllowlist(buckets),
		Extractor: &fakeExtractor{text: "extracted"},
	})
	require.NoError(t, err)
	return server
}

func rpcRequest(t *testing.T, method string, params any) *jsonrpc2.Request {
	t.Helper()
	req := &jsonrpc2.Request{Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		require.NoError(t, err)
		msg := json.RawMessage(raw)
		req.Params = &msg
	}
	return req
}

func TestHandleInitialize(t *testing.T) {
	server := newTestServer(t, newFakeRemote())
	handler := NewRPCHandler(server)

	result, err := handler.Handle(context.Background(), nil, rpcRequest(t, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
	}))
	require.NoError(t, err)

	resp, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2024-11-05", resp["protocolVersion"])

	info, ok := resp["serverInfo"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "go-s3mcp", info["name"])
}

func TestHandlePing(t *testing.T) {
	server := newTestServer(t, newFakeRemote())
	handler := NewRPCHandler(server)

	result, err := handler.Handle(context.Background(), nil, rpcRequest(t, "ping", nil))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"status": "ok"}, result)
}

func TestHandleUnknownMethod(t *testing.T) {
	server := newTestServer(t, newFakeRemote())
	handler := NewRPCHandler(server)

	_, err := handler.Handle(context.Background(), nil, rpcRequest(t, "nope/nothing", nil))
	require.Error(t, err)

	var rpcErr *jsonrpc2.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, int64(ErrCodeMethodNotFound), rpcErr.Code)
}

func TestHandleToolsList(t *testing.T) {
	server := newTestServer(t, newFakeRemote())
	handler := NewRPCHandler(server)

	result, err := handler.Handle(context.Background(), nil, rpcRequest(t, "tools/list", nil))
	require.NoError(t, err)

	resp, ok := result.(map[string]any)
	require.True(t, ok)
	tools, ok := resp["tools"].([]Tool)
	require.True(t, ok)
	assert.Len(t, tools, 6)

	names := make(map[string]bool)
	for _, tool := range tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"ListBuckets", "ListObjectsV2", "HeadObject", "GetObject", "DownloadObject", "GetObjectsBatch"} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}

func TestHandleToolsCall(t *testing.T) {
	remote := newFakeRemote()
	remote.put("data", "greeting.txt", "text/plain", []byte("hi"))
	server := newTestServer(t, remote, "data")
	handler := NewRPCHandler(server)

	result, err := handler.Handle(context.Background(), nil, rpcRequest(t, "tools/call", map[string]any{
		"name": "GetObject",
		"arguments": map[string]any{
			"bucket_name": "data",
			"key":         "greeting.txt",
		},
	}))
	require.NoError(t, err)

	resp, ok := result.(map[string]any)
	require.True(t, ok)
	content, ok := resp["content"].([]any)
	require.True(t, ok)
	require.Len(t, content, 1)
	assert.Equal(t, NewTextContent("hi"), content[0])
}

func TestHandleToolsCallMissingParams(t *testing.T) {
	server := newTestServer(t, newFakeRemote())
	handler := NewRPCHandler(server)

	_, err := handler.Handle(context.Background(), nil, rpcRequest(t, "tools/call", nil))
	require.Error(t, err)

	var rpcErr *jsonrpc2.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, int64(ErrCodeInvalidParams), rpcErr.Code)
}

func TestHandleToolsCallValidationErrorCode(t *testing.T) {
	server := newTestServer(t, newFakeRemote(), "data")
	handler := NewRPCHandler(server)

	_, err := handler.Handle(context.Background(), nil, rpcRequest(t, "tools/call", map[string]any{
		"name": "GetObjectsBatch",
		"arguments": map[string]any{
			"bucket_name": "data",
			"output_dir":  t.TempDir(),
		},
	}))
	require.Error(t, err)

	var rpcErr *jsonrpc2.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, int64(ErrCodeInvalidParams), rpcErr.Code)
}

func TestHandleResourcesReadInvalidURI(t *testing.T) {
	server := newTestServer(t, newFakeRemote(), "data")
	handler := NewRPCHandler(server)

	_, err := handler.Handle(context.Background(), nil, rpcRequest(t, "resources/read", map[string]any{
		"uri": "ftp://nope",
	}))
	require.Error(t, err)

	var rpcErr *jsonrpc2.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, int64(ErrCodeInvalidParams), rpcErr.Code)
}

func TestHTTPHandlerRoundTrip(t *testing.T) {
	remote := newFakeRemote()
	remote.put("data", "greeting.txt", "text/plain", []byte("hi"))
	server := newTestServer(t, remote, "data")
	handler := NewHTTPHandler(server)

	body, err := json.Marshal(JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  "ping",
		ID:      1,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp JSONRPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Result)
}

func TestHTTPHandlerRejectsGet(t *testing.T) {
	server := newTestServer(t, newFakeRemote())
	handler := NewHTTPHandler(server)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHTTPHandlerRejectsInvalidJSON(t *testing.T) {
	server := newTestServer(t, newFakeRemote())
	handler := NewHTTPHandler(server)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{nope")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp JSONRPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeParseError, resp.Error.Code)
}

func TestHTTPHandlerRejectsWrongVersion(t *testing.T) {
	server := newTestServer(t, newFakeRemote())
	handler := NewHTTPHandler(server)

	body, err := json.Marshal(JSONRPCRequest{JSONRPC: "1.0", Method: "ping", ID: 2})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp JSONRPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidRequest, resp.Error.Code)
}
